package indicators

import (
	"context"
	"fmt"
	"math"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// WilliamsR implements the Williams %R oscillator. Values run from 0 (at the
// window high) down to -100 (at the window low).
type WilliamsR struct {
	Base
	overbought float64
	oversold   float64
}

// NewWilliamsR creates a Williams %R indicator. Zero thresholds default to
// -20/-80.
func NewWilliamsR(cfg Config, overbought, oversold float64, logger ports.Logger) (*WilliamsR, error) {
	if overbought == 0 {
		overbought = -20
	}
	if oversold == 0 {
		oversold = -80
	}

	base, err := newBase(fmt.Sprintf("WILLR_%d", cfg.Period), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &WilliamsR{Base: base, overbought: overbought, oversold: oversold}, nil
}

// Update ingests one candle and returns the new %R result, if any.
func (w *WilliamsR) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return w.applyUpdate(ctx, candle, w.Calculate)
}

// Calculate computes Williams %R over the given candles.
func (w *WilliamsR) Calculate(_ context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, w.cfg.MinPeriods) {
		return nil, nil
	}
	current := candles[len(candles)-1]

	recent := candles[len(candles)-w.cfg.Period:]
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

	// Flat window collapses to the midpoint.
	value := -50.0
	if highest != lowest {
		value = (highest - current.Close) / (highest - lowest) * -100
	}

	return &domain.IndicatorResult{
		Timestamp:  current.Timestamp,
		Value:      value,
		Signal:     w.generateSignal(value),
		Confidence: w.confidence(value),
		Metadata: map[string]interface{}{
			"period":     w.cfg.Period,
			"overbought": w.overbought,
			"oversold":   w.oversold,
		},
	}, nil
}

func (w *WilliamsR) generateSignal(value float64) domain.Signal {
	switch {
	case value >= w.overbought:
		return domain.SignalSell
	case value <= w.oversold:
		return domain.SignalBuy
	default:
		return domain.SignalHold
	}
}

func (w *WilliamsR) confidence(value float64) float64 {
	switch {
	case value >= w.overbought:
		return math.Min((value-w.overbought)/(0-w.overbought), 1.0)
	case value <= w.oversold:
		return math.Min((w.oversold-value)/(w.oversold+100), 1.0)
	default:
		return 0.1
	}
}
