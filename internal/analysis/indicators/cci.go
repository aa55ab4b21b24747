package indicators

import (
	"context"
	"fmt"
	"math"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// cciConstant is Lambert's scaling constant, chosen so roughly 70-80% of
// values land between -100 and +100.
const cciConstant = 0.015

// CCI implements the Commodity Channel Index over typical prices.
type CCI struct {
	Base
	constant   float64
	overbought float64
	oversold   float64
}

// NewCCI creates a CCI indicator. A zero constant defaults to 0.015 and zero
// thresholds to +100/-100.
func NewCCI(cfg Config, constant, overbought, oversold float64, logger ports.Logger) (*CCI, error) {
	if constant == 0 {
		constant = cciConstant
	}
	if overbought == 0 {
		overbought = 100
	}
	if oversold == 0 {
		oversold = -100
	}

	base, err := newBase(fmt.Sprintf("CCI_%d", cfg.Period), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &CCI{Base: base, constant: constant, overbought: overbought, oversold: oversold}, nil
}

// Update ingests one candle and returns the new CCI result, if any.
func (c *CCI) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return c.applyUpdate(ctx, candle, c.Calculate)
}

// Calculate computes (tp - SMA(tp)) / (constant * meanDeviation) over the
// window. Zero mean deviation collapses to 0.
func (c *CCI) Calculate(_ context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, c.cfg.MinPeriods) {
		return nil, nil
	}
	current := candles[len(candles)-1]

	recent := candles[len(candles)-c.cfg.Period:]
	typical := make([]float64, len(recent))
	sum := 0.0
	for i, candle := range recent {
		typical[i] = candle.HLC3()
		sum += typical[i]
	}
	mean := sum / float64(len(typical))

	deviation := 0.0
	for _, tp := range typical {
		deviation += math.Abs(tp - mean)
	}
	deviation /= float64(len(typical))

	value := 0.0
	if deviation != 0 {
		value = (typical[len(typical)-1] - mean) / (c.constant * deviation)
	}

	return &domain.IndicatorResult{
		Timestamp:  current.Timestamp,
		Value:      value,
		Signal:     c.generateSignal(value),
		Confidence: c.confidence(value),
		Metadata: map[string]interface{}{
			"period":     c.cfg.Period,
			"constant":   c.constant,
			"overbought": c.overbought,
			"oversold":   c.oversold,
		},
	}, nil
}

func (c *CCI) generateSignal(value float64) domain.Signal {
	switch {
	case value >= c.overbought:
		return domain.SignalSell
	case value <= c.oversold:
		return domain.SignalBuy
	default:
		return domain.SignalHold
	}
}

func (c *CCI) confidence(value float64) float64 {
	if math.Abs(value) >= 100 {
		return math.Min(math.Abs(value)/200, 1.0)
	}
	return 0.1
}
