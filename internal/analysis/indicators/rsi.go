package indicators

import (
	"context"
	"fmt"
	"math"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// RSI implements the Relative Strength Index with Wilder's smoothing.
type RSI struct {
	Base
	overbought float64
	oversold   float64

	// Wilder state carried across bars after the seed averages are set.
	avgGain *float64
	avgLoss *float64
}

// NewRSI creates an RSI indicator. Zero thresholds default to 70/30.
func NewRSI(cfg Config, overbought, oversold float64, logger ports.Logger) (*RSI, error) {
	if overbought == 0 {
		overbought = 70
	}
	if oversold == 0 {
		oversold = 30
	}
	if oversold >= overbought {
		return nil, fmt.Errorf("%w: oversold (%.1f) must be below overbought (%.1f)",
			ports.ErrInvalidConfig, oversold, overbought)
	}

	base, err := newBase(fmt.Sprintf("RSI_%d", cfg.Period), cfg, logger)
	if err != nil {
		return nil, err
	}
	return &RSI{Base: base, overbought: overbought, oversold: oversold}, nil
}

// RequiredDataPoints is one more than the period because changes are
// differences between consecutive closes.
func (r *RSI) RequiredDataPoints() int { return r.cfg.MinPeriods + 1 }

// IsReady reports whether enough candles are buffered for the first value.
func (r *RSI) IsReady() bool { return len(r.candles) >= r.RequiredDataPoints() }

// Update ingests one candle and returns the new RSI result, if any.
func (r *RSI) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return r.applyUpdate(ctx, candle, r.Calculate)
}

// Reset clears buffers and the smoothing state.
func (r *RSI) Reset() {
	r.Base.Reset()
	r.avgGain = nil
	r.avgLoss = nil
}

// Calculate computes the RSI over the given candles.
func (r *RSI) Calculate(_ context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, r.cfg.MinPeriods+1) {
		return nil, nil
	}

	prices, err := extractPrices(candles, PriceClose)
	if err != nil {
		return nil, err
	}
	current := candles[len(candles)-1]

	value, ok := r.rsi(prices)
	if !ok {
		return nil, nil
	}

	return &domain.IndicatorResult{
		Timestamp:  current.Timestamp,
		Value:      value,
		Signal:     r.generateSignal(value),
		Confidence: r.confidence(value),
		Metadata: map[string]interface{}{
			"period":     r.cfg.Period,
			"overbought": r.overbought,
			"oversold":   r.oversold,
		},
	}, nil
}

// rsi seeds the averages from the last period changes, then applies Wilder's
// recurrence avg = (avg*(n-1) + current) / n on each subsequent bar.
func (r *RSI) rsi(prices []float64) (float64, bool) {
	if len(prices) < r.cfg.Period+1 {
		return 0, false
	}

	changes := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		changes[i-1] = prices[i] - prices[i-1]
	}

	currentGain, currentLoss := 0.0, 0.0
	last := changes[len(changes)-1]
	if last > 0 {
		currentGain = last
	} else {
		currentLoss = -last
	}

	if r.avgGain == nil || r.avgLoss == nil {
		var gain, loss float64
		for _, change := range changes[len(changes)-r.cfg.Period:] {
			if change > 0 {
				gain += change
			} else {
				loss -= change
			}
		}
		gain /= float64(r.cfg.Period)
		loss /= float64(r.cfg.Period)
		r.avgGain = &gain
		r.avgLoss = &loss
	} else {
		n := float64(r.cfg.Period)
		gain := (*r.avgGain*(n-1) + currentGain) / n
		loss := (*r.avgLoss*(n-1) + currentLoss) / n
		r.avgGain = &gain
		r.avgLoss = &loss
	}

	// Zero average loss means a pure uptrend over the window.
	if *r.avgLoss == 0 {
		return 100, true
	}

	rs := *r.avgGain / *r.avgLoss
	return 100 - 100/(1+rs), true
}

func (r *RSI) generateSignal(value float64) domain.Signal {
	switch {
	case value >= r.overbought:
		return domain.SignalSell
	case value <= r.oversold:
		return domain.SignalBuy
	default:
		return domain.SignalHold
	}
}

// confidence scales linearly with the distance past the threshold; the
// neutral zone carries a fixed low confidence.
func (r *RSI) confidence(value float64) float64 {
	switch {
	case value >= r.overbought:
		return math.Min((value-r.overbought)/(100-r.overbought), 1.0)
	case value <= r.oversold:
		return math.Min((r.oversold-value)/r.oversold, 1.0)
	default:
		return 0.1
	}
}

// IsOverbought reports whether the value is at or above the overbought level.
func (r *RSI) IsOverbought(value float64) bool { return value >= r.overbought }

// IsOversold reports whether the value is at or below the oversold level.
func (r *RSI) IsOversold(value float64) bool { return value <= r.oversold }
