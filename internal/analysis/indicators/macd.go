package indicators

import (
	"context"
	"fmt"
	"math"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

const macdValueHistory = 100

// MACD implements Moving Average Convergence Divergence. It owns its fast and
// slow EMA sub-indicators outright; composition is fixed at construction.
//
// The signal line is a simplified EMA recurrence over a capped buffer of raw
// MACD values rather than a nested EMA indicator. Once the buffer cap is
// reached the values diverge slightly from the textbook definition.
type MACD struct {
	Base
	fastPeriod   int
	slowPeriod   int
	signalPeriod int

	fastEMA *MovingAverage
	slowEMA *MovingAverage

	macdValues []float64
}

// NewMACD creates a MACD indicator. Zero periods default to 12/26/9.
func NewMACD(cfg Config, fastPeriod, slowPeriod, signalPeriod int, logger ports.Logger) (*MACD, error) {
	if fastPeriod <= 0 {
		fastPeriod = 12
	}
	if slowPeriod <= 0 {
		slowPeriod = 26
	}
	if signalPeriod <= 0 {
		signalPeriod = 9
	}
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("%w: fast period (%d) must be below slow period (%d)",
			ports.ErrInvalidConfig, fastPeriod, slowPeriod)
	}

	// The slow period gates readiness.
	cfg.Period = slowPeriod
	cfg.MinPeriods = 0
	base, err := newBase(fmt.Sprintf("MACD_%d_%d_%d", fastPeriod, slowPeriod, signalPeriod), cfg, logger)
	if err != nil {
		return nil, err
	}

	fastEMA, err := NewMovingAverage(Config{Period: fastPeriod, Timeframe: cfg.Timeframe}, EMA, logger)
	if err != nil {
		return nil, err
	}
	slowEMA, err := NewMovingAverage(Config{Period: slowPeriod, Timeframe: cfg.Timeframe}, EMA, logger)
	if err != nil {
		return nil, err
	}

	return &MACD{
		Base:         base,
		fastPeriod:   fastPeriod,
		slowPeriod:   slowPeriod,
		signalPeriod: signalPeriod,
		fastEMA:      fastEMA,
		slowEMA:      slowEMA,
	}, nil
}

// Update ingests one candle and returns the new MACD result, if any.
func (m *MACD) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return m.applyUpdate(ctx, candle, m.Calculate)
}

// Reset clears buffers, the raw MACD history and both sub-indicators.
func (m *MACD) Reset() {
	m.Base.Reset()
	m.macdValues = nil
	m.fastEMA.Reset()
	m.slowEMA.Reset()
}

// Calculate advances both EMAs with the newest candle and derives the MACD
// line, signal line and histogram.
func (m *MACD) Calculate(ctx context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, m.slowPeriod) {
		return nil, nil
	}
	current := candles[len(candles)-1]

	fastResult := m.fastEMA.Update(ctx, current)
	slowResult := m.slowEMA.Update(ctx, current)
	if fastResult == nil || slowResult == nil {
		return nil, nil
	}

	macdLine := fastResult.Value - slowResult.Value

	m.macdValues = append(m.macdValues, macdLine)
	if len(m.macdValues) > macdValueHistory {
		m.macdValues = m.macdValues[len(m.macdValues)-macdValueHistory:]
	}

	signalLine, hasSignal := m.signalLine()

	histogram := macdLine
	if hasSignal {
		histogram = macdLine - signalLine
	}

	values := map[string]float64{
		"macd":      macdLine,
		"histogram": histogram,
	}
	if hasSignal {
		values["signal"] = signalLine
	}

	return &domain.IndicatorResult{
		Timestamp:  current.Timestamp,
		Values:     values,
		Signal:     m.generateSignal(macdLine, signalLine, histogram, hasSignal),
		Confidence: m.confidence(macdLine, signalLine, histogram, hasSignal),
		Metadata: map[string]interface{}{
			"fast_period":   m.fastPeriod,
			"slow_period":   m.slowPeriod,
			"signal_period": m.signalPeriod,
		},
	}, nil
}

// signalLine runs the EMA recurrence over the last signalPeriod raw MACD
// values, seeded with the oldest value in that window.
func (m *MACD) signalLine() (float64, bool) {
	if len(m.macdValues) < m.signalPeriod {
		return 0, false
	}

	recent := m.macdValues[len(m.macdValues)-m.signalPeriod:]
	alpha := 2.0 / float64(m.signalPeriod+1)
	signal := recent[0]
	for _, v := range recent[1:] {
		signal = v*alpha + signal*(1-alpha)
	}
	return signal, true
}

// generateSignal fires on MACD/signal-line crossovers first, then on
// histogram sign changes.
func (m *MACD) generateSignal(macdLine, signalLine, histogram float64, hasSignal bool) domain.Signal {
	previous := m.LastResult()
	if !hasSignal || previous == nil || !previous.IsComposite() {
		return domain.SignalNone
	}

	prevMACD, okMACD := previous.Values["macd"]
	prevSignal, okSignal := previous.Values["signal"]
	prevHistogram, okHistogram := previous.Values["histogram"]
	if !okMACD || !okSignal || !okHistogram {
		return domain.SignalNone
	}

	switch {
	case prevMACD <= prevSignal && macdLine > signalLine:
		return domain.SignalBuy
	case prevMACD >= prevSignal && macdLine < signalLine:
		return domain.SignalSell
	case histogram > 0 && prevHistogram <= 0:
		return domain.SignalBuy
	case histogram < 0 && prevHistogram >= 0:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

// confidence blends the normalized MACD-to-signal gap with the histogram
// magnitude. 0.01 is the normalization scale for typical MACD values.
func (m *MACD) confidence(macdLine, signalLine, histogram float64, hasSignal bool) float64 {
	if !hasSignal {
		return 0.1
	}
	strength := math.Min(math.Abs(macdLine-signalLine)/0.01, 1.0)
	histStrength := math.Min(math.Abs(histogram)/0.01, 1.0)
	return (strength + histStrength) / 2
}
