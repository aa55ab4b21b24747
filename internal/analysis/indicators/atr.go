package indicators

import (
	"context"
	"fmt"
	"math"
	"strings"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// VolatilityLevel classifies current ATR against its rolling average.
type VolatilityLevel string

const (
	VolatilityUnknown VolatilityLevel = ""
	VolatilityLow     VolatilityLevel = "low"
	VolatilityMedium  VolatilityLevel = "medium"
	VolatilityHigh    VolatilityLevel = "high"
)

const volatilityLookback = 20

// ATR implements Average True Range. The true-range series is smoothed with
// either a simple mean or a Wilder-style EMA seeded by that mean.
type ATR struct {
	Base
	maType MAType

	trValues    []float64
	alpha       float64
	previousATR *float64
}

// NewATR creates an ATR indicator. An empty maType defaults to EMA smoothing.
func NewATR(cfg Config, maType MAType, logger ports.Logger) (*ATR, error) {
	maType = MAType(strings.ToLower(string(maType)))
	if maType == "" {
		maType = EMA
	}
	if maType != SMA && maType != EMA {
		return nil, fmt.Errorf("%w: ATR smoothing must be sma or ema, got %q", ports.ErrInvalidConfig, maType)
	}

	base, err := newBase(fmt.Sprintf("ATR_%d", cfg.Period), cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &ATR{Base: base, maType: maType}
	if maType == EMA {
		a.alpha = 2.0 / float64(a.cfg.Period+1)
	}
	return a, nil
}

// RequiredDataPoints is period+1: true range needs the previous close.
func (a *ATR) RequiredDataPoints() int { return a.cfg.Period + 1 }

// Update ingests one candle and returns the new ATR result, if any.
func (a *ATR) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return a.applyUpdate(ctx, candle, a.Calculate)
}

// Reset clears buffers, the true-range history and the smoothing state.
func (a *ATR) Reset() {
	a.Base.Reset()
	a.trValues = nil
	a.previousATR = nil
}

// Calculate appends the newest true range and smooths the series into an ATR
// value once enough ranges have accumulated.
func (a *ATR) Calculate(_ context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, 2) {
		return nil, nil
	}
	current := candles[len(candles)-1]
	previous := candles[len(candles)-2]

	tr := trueRange(current, previous)
	a.trValues = append(a.trValues, tr)
	if len(a.trValues) > a.cfg.MaxHistory {
		a.trValues = a.trValues[len(a.trValues)-a.cfg.MaxHistory:]
	}

	value, ok := a.atr()
	if !ok {
		return nil, nil
	}

	return &domain.IndicatorResult{
		Timestamp:  current.Timestamp,
		Value:      value,
		Signal:     a.generateSignal(value),
		Confidence: a.confidence(value),
		Metadata: map[string]interface{}{
			"period":     a.cfg.Period,
			"ma_type":    string(a.maType),
			"true_range": tr,
		},
	}, nil
}

// trueRange is the greatest of high-low, |high-prevClose| and |low-prevClose|.
func trueRange(current, previous domain.Candle) float64 {
	tr := current.High - current.Low
	if hc := math.Abs(current.High - previous.Close); hc > tr {
		tr = hc
	}
	if lc := math.Abs(current.Low - previous.Close); lc > tr {
		tr = lc
	}
	return tr
}

func (a *ATR) atr() (float64, bool) {
	if len(a.trValues) < a.cfg.Period {
		return 0, false
	}

	if a.maType == EMA {
		if a.previousATR == nil {
			seed := meanOf(a.trValues[len(a.trValues)-a.cfg.Period:])
			a.previousATR = &seed
			return seed, true
		}
		current := a.trValues[len(a.trValues)-1]
		value := current*a.alpha + *a.previousATR*(1-a.alpha)
		a.previousATR = &value
		return value, true
	}

	return meanOf(a.trValues[len(a.trValues)-a.cfg.Period:]), true
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// generateSignal tags relative volatility against the last 10 ATR values.
func (a *ATR) generateSignal(value float64) domain.Signal {
	if len(a.results) < 10 {
		return domain.SignalNone
	}

	recent := a.results[len(a.results)-10:]
	if len(recent) < 5 {
		return domain.SignalNone
	}
	avg := 0.0
	for _, r := range recent {
		avg += r.Value
	}
	avg /= float64(len(recent))

	switch {
	case value > avg*1.5:
		return domain.SignalHighVolatility
	case value < avg*0.5:
		return domain.SignalLowVolatility
	default:
		return domain.SignalNormalVolatility
	}
}

func (a *ATR) confidence(value float64) float64 {
	if len(a.results) < 5 {
		return 0.5
	}

	recent := a.results[len(a.results)-5:]
	avg := 0.0
	for _, r := range recent {
		avg += r.Value
	}
	avg /= float64(len(recent))

	if avg > 0 {
		ratio := value / avg
		if ratio > 1.5 || ratio < 0.5 {
			return math.Min(math.Abs(ratio-1.0), 1.0)
		}
	}
	return 0.5
}

// VolatilityLevel classifies the current ATR against its 20-result average.
func (a *ATR) VolatilityLevel() VolatilityLevel {
	if len(a.results) < volatilityLookback {
		return VolatilityUnknown
	}

	recent := a.results[len(a.results)-volatilityLookback:]
	current := recent[len(recent)-1].Value
	avg := 0.0
	for _, r := range recent {
		avg += r.Value
	}
	avg /= float64(len(recent))

	switch {
	case current > avg*1.5:
		return VolatilityHigh
	case current < avg*0.7:
		return VolatilityLow
	default:
		return VolatilityMedium
	}
}
