package indicators

import (
	"context"
	"fmt"
	"math"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// SqueezeStatus classifies current band width against its recent average.
type SqueezeStatus string

const (
	SqueezeUnknown   SqueezeStatus = ""
	SqueezeActive    SqueezeStatus = "squeeze"
	SqueezeExpansion SqueezeStatus = "expansion"
	SqueezeNormal    SqueezeStatus = "normal"
)

const squeezeLookback = 20

// BollingerBands computes a middle-band moving average with upper and lower
// bands at a standard-deviation multiple. The middle-band MA is an owned
// sub-indicator.
type BollingerBands struct {
	Base
	stdDevMult float64
	middleMA   *MovingAverage
}

// NewBollingerBands creates a Bollinger Bands indicator. A zero multiplier
// defaults to 2.0 and an empty maType to SMA.
func NewBollingerBands(cfg Config, stdDevMult float64, maType MAType, logger ports.Logger) (*BollingerBands, error) {
	if stdDevMult == 0 {
		stdDevMult = 2.0
	}
	if stdDevMult < 0 {
		return nil, fmt.Errorf("%w: std dev multiplier must be positive", ports.ErrInvalidConfig)
	}
	if maType == "" {
		maType = SMA
	}

	base, err := newBase(fmt.Sprintf("BB_%d_%.1f", cfg.Period, stdDevMult), cfg, logger)
	if err != nil {
		return nil, err
	}

	middleMA, err := NewMovingAverage(Config{Period: base.cfg.Period, Timeframe: cfg.Timeframe}, maType, logger)
	if err != nil {
		return nil, err
	}

	return &BollingerBands{Base: base, stdDevMult: stdDevMult, middleMA: middleMA}, nil
}

// Update ingests one candle and returns the new band result, if any.
func (b *BollingerBands) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return b.applyUpdate(ctx, candle, b.Calculate)
}

// Reset clears buffers and the middle-band sub-indicator.
func (b *BollingerBands) Reset() {
	b.Base.Reset()
	b.middleMA.Reset()
}

// Calculate advances the middle-band MA and derives the bands, width and %B.
func (b *BollingerBands) Calculate(ctx context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, b.cfg.MinPeriods) {
		return nil, nil
	}
	current := candles[len(candles)-1]

	maResult := b.middleMA.Update(ctx, current)
	if maResult == nil {
		return nil, nil
	}
	middle := maResult.Value

	prices, err := extractPrices(candles[len(candles)-b.cfg.Period:], PriceClose)
	if err != nil {
		return nil, err
	}
	stdev := populationStdDev(prices)

	upper := middle + b.stdDevMult*stdev
	lower := middle - b.stdDevMult*stdev

	width := 0.0
	if middle != 0 {
		width = (upper - lower) / middle * 100
	}
	percentB := 0.0
	if upper != lower {
		percentB = (current.Close - lower) / (upper - lower)
	}

	return &domain.IndicatorResult{
		Timestamp: current.Timestamp,
		Values: map[string]float64{
			"upper":     upper,
			"middle":    middle,
			"lower":     lower,
			"width":     width,
			"percent_b": percentB,
		},
		Signal:     b.generateSignal(current.Close, upper, lower, percentB),
		Confidence: b.confidence(percentB),
		Metadata: map[string]interface{}{
			"period":  b.cfg.Period,
			"std_dev": b.stdDevMult,
			"ma_type": string(b.middleMA.Type()),
		},
	}, nil
}

func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		diff := v - mean
		variance += diff * diff
	}
	return math.Sqrt(variance / float64(len(values)))
}

func (b *BollingerBands) generateSignal(price, upper, lower, percentB float64) domain.Signal {
	switch {
	case price >= upper || percentB >= 1.0:
		return domain.SignalSell
	case price <= lower || percentB <= 0.0:
		return domain.SignalBuy
	default:
		return domain.SignalHold
	}
}

func (b *BollingerBands) confidence(percentB float64) float64 {
	switch {
	case percentB >= 1.0:
		return math.Min((percentB-1.0)*10, 1.0)
	case percentB <= 0.0:
		return math.Min(math.Abs(percentB)*10, 1.0)
	case percentB >= 0.8:
		return (percentB - 0.8) / 0.2
	case percentB <= 0.2:
		return (0.2 - percentB) / 0.2
	default:
		return 0.1
	}
}

// SqueezeStatus compares the current band width with its average over the
// last 20 results: 30% below is a squeeze, 30% above an expansion.
func (b *BollingerBands) SqueezeStatus() SqueezeStatus {
	if len(b.results) < squeezeLookback {
		return SqueezeUnknown
	}

	widths := make([]float64, 0, squeezeLookback)
	for _, result := range b.results[len(b.results)-squeezeLookback:] {
		if w, ok := result.Values["width"]; ok {
			widths = append(widths, w)
		}
	}
	if len(widths) < squeezeLookback {
		return SqueezeUnknown
	}

	current := widths[len(widths)-1]
	avg := 0.0
	for _, w := range widths {
		avg += w
	}
	avg /= float64(len(widths))

	switch {
	case current < avg*0.7:
		return SqueezeActive
	case current > avg*1.3:
		return SqueezeExpansion
	default:
		return SqueezeNormal
	}
}
