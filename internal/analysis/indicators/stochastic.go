package indicators

import (
	"context"
	"fmt"
	"math"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

const kValueHistory = 100

// Stochastic implements the stochastic oscillator (%K and %D).
type Stochastic struct {
	Base
	kPeriod    int
	dPeriod    int
	smoothK    int // accepted for configuration parity; %K is emitted raw
	overbought float64
	oversold   float64

	kValues []float64
}

// NewStochastic creates a stochastic oscillator. Zero thresholds default to
// 80/20, zero dPeriod to 3.
func NewStochastic(cfg Config, dPeriod, smoothK int, overbought, oversold float64, logger ports.Logger) (*Stochastic, error) {
	if dPeriod <= 0 {
		dPeriod = 3
	}
	if smoothK <= 0 {
		smoothK = 3
	}
	if overbought == 0 {
		overbought = 80
	}
	if oversold == 0 {
		oversold = 20
	}

	base, err := newBase(fmt.Sprintf("STOCH_%d_%d", cfg.Period, dPeriod), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Stochastic{
		Base:       base,
		kPeriod:    base.cfg.Period,
		dPeriod:    dPeriod,
		smoothK:    smoothK,
		overbought: overbought,
		oversold:   oversold,
	}, nil
}

// Update ingests one candle and returns the new %K/%D result, if any.
func (s *Stochastic) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return s.applyUpdate(ctx, candle, s.Calculate)
}

// Reset clears buffers and the %K history.
func (s *Stochastic) Reset() {
	s.Base.Reset()
	s.kValues = nil
}

// Calculate computes %K over the window and %D as a simple mean of recent %K.
func (s *Stochastic) Calculate(_ context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, s.kPeriod) {
		return nil, nil
	}
	current := candles[len(candles)-1]

	k := s.percentK(candles)

	s.kValues = append(s.kValues, k)
	if len(s.kValues) > kValueHistory {
		s.kValues = s.kValues[len(s.kValues)-kValueHistory:]
	}

	d, hasD := s.percentD()

	values := map[string]float64{"k": k}
	if hasD {
		values["d"] = d
	}

	return &domain.IndicatorResult{
		Timestamp:  current.Timestamp,
		Values:     values,
		Signal:     s.generateSignal(k, d, hasD),
		Confidence: s.confidence(k, d, hasD),
		Metadata: map[string]interface{}{
			"k_period":   s.kPeriod,
			"d_period":   s.dPeriod,
			"overbought": s.overbought,
			"oversold":   s.oversold,
		},
	}, nil
}

// percentK returns (close - lowestLow) / (highestHigh - lowestLow) * 100.
// A flat window collapses to 50.
func (s *Stochastic) percentK(candles []domain.Candle) float64 {
	recent := candles[len(candles)-s.kPeriod:]
	highest := recent[0].High
	lowest := recent[0].Low
	for _, c := range recent[1:] {
		if c.High > highest {
			highest = c.High
		}
		if c.Low < lowest {
			lowest = c.Low
		}
	}

	if highest == lowest {
		return 50
	}
	return (candles[len(candles)-1].Close - lowest) / (highest - lowest) * 100
}

func (s *Stochastic) percentD() (float64, bool) {
	if len(s.kValues) < s.dPeriod {
		return 0, false
	}
	sum := 0.0
	for _, k := range s.kValues[len(s.kValues)-s.dPeriod:] {
		sum += k
	}
	return sum / float64(s.dPeriod), true
}

// generateSignal combines threshold conditions on both lines with %K/%D
// crossovers against the previous result.
func (s *Stochastic) generateSignal(k, d float64, hasD bool) domain.Signal {
	if !hasD {
		return domain.SignalNone
	}

	if k >= s.overbought && d >= s.overbought {
		return domain.SignalSell
	}
	if k <= s.oversold && d <= s.oversold {
		return domain.SignalBuy
	}

	if previous := s.LastResult(); previous != nil && previous.IsComposite() {
		prevK, okK := previous.Values["k"]
		prevD, okD := previous.Values["d"]
		if okK && okD {
			if prevK <= prevD && k > d {
				return domain.SignalBuy
			}
			if prevK >= prevD && k < d {
				return domain.SignalSell
			}
		}
	}

	return domain.SignalHold
}

func (s *Stochastic) confidence(k, d float64, hasD bool) float64 {
	if !hasD {
		return 0.1
	}

	extreme := 0.1
	if k >= s.overbought || k <= s.oversold {
		extreme = math.Min(math.Abs(k-50)/50, 1.0)
	}
	alignment := 1.0 - math.Abs(k-d)/100

	return (extreme + alignment) / 2
}
