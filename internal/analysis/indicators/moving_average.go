package indicators

import (
	"context"
	"fmt"
	"math"
	"strings"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// MAType defines the moving average calculation method.
type MAType string

const (
	SMA MAType = "sma"
	EMA MAType = "ema"
	WMA MAType = "wma"
	// HMA is the Hull moving average. This implementation returns the raw
	// composite 2*WMA(n/2) - WMA(n) without the final WMA(sqrt(n)) smoothing
	// pass.
	HMA MAType = "hma"
)

// CrossSignal is emitted when two moving averages cross.
type CrossSignal string

const (
	CrossNone   CrossSignal = ""
	GoldenCross CrossSignal = "golden_cross"
	DeathCross  CrossSignal = "death_cross"
)

// TrendDirection classifies the slope of the moving average.
type TrendDirection string

const (
	TrendUp       TrendDirection = "up"
	TrendDown     TrendDirection = "down"
	TrendSideways TrendDirection = "sideways"
)

// MovingAverage implements SMA, EMA, WMA and Hull MA over a configurable
// price source.
type MovingAverage struct {
	Base
	maType MAType

	// EMA incremental state: the recurrence continues from the previous
	// value instead of recomputing the full series each bar.
	alpha       float64
	previousEMA *float64
}

// NewMovingAverage creates a moving average indicator of the given type.
func NewMovingAverage(cfg Config, maType MAType, logger ports.Logger) (*MovingAverage, error) {
	maType = MAType(strings.ToLower(string(maType)))
	switch maType {
	case SMA, EMA, WMA, HMA:
	default:
		return nil, fmt.Errorf("%w: unsupported moving average type %q", ports.ErrInvalidConfig, maType)
	}

	name := fmt.Sprintf("%s_%d", strings.ToUpper(string(maType)), cfg.Period)
	base, err := newBase(name, cfg, logger)
	if err != nil {
		return nil, err
	}

	ma := &MovingAverage{Base: base, maType: maType}
	if maType == EMA {
		ma.alpha = 2.0 / float64(ma.cfg.Period+1)
	}
	return ma, nil
}

// Type returns the configured moving average method.
func (m *MovingAverage) Type() MAType { return m.maType }

// Update ingests one candle and returns the new MA result, if any.
func (m *MovingAverage) Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult {
	return m.applyUpdate(ctx, candle, m.Calculate)
}

// Reset clears buffers and the EMA recurrence state.
func (m *MovingAverage) Reset() {
	m.Base.Reset()
	m.previousEMA = nil
}

// Calculate computes the moving average over the given candles.
func (m *MovingAverage) Calculate(_ context.Context, candles []domain.Candle) (*domain.IndicatorResult, error) {
	if !validateCandles(candles, m.cfg.MinPeriods) {
		return nil, nil
	}

	prices, err := extractPrices(candles, m.cfg.PriceSource)
	if err != nil {
		return nil, err
	}
	current := candles[len(candles)-1]

	var value float64
	var ok bool
	switch m.maType {
	case SMA:
		value, ok = sma(prices, m.cfg.Period)
	case EMA:
		value, ok = m.ema(prices)
	case WMA:
		value, ok = wma(prices, m.cfg.Period)
	case HMA:
		value, ok = hma(prices, m.cfg.Period)
	}
	if !ok {
		return nil, nil
	}

	return &domain.IndicatorResult{
		Timestamp:  current.Timestamp,
		Value:      value,
		Signal:     m.generateSignal(current.Close, value),
		Confidence: maConfidence(current.Close, value),
		Metadata: map[string]interface{}{
			"ma_type":       string(m.maType),
			"period":        m.cfg.Period,
			"price_source":  string(m.cfg.PriceSource),
			"current_price": current.Close,
		},
	}, nil
}

func sma(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period), true
}

// ema seeds with the SMA of the first period prices, then continues the
// recurrence from the stored previous value.
func (m *MovingAverage) ema(prices []float64) (float64, bool) {
	if len(prices) < m.cfg.Period {
		return 0, false
	}

	if m.previousEMA == nil {
		seed, _ := sma(prices[:m.cfg.Period], m.cfg.Period)
		m.previousEMA = &seed
		if len(prices) == m.cfg.Period {
			return seed, true
		}
	}

	value := prices[len(prices)-1]*m.alpha + *m.previousEMA*(1-m.alpha)
	m.previousEMA = &value
	return value, true
}

// wma applies linear weights 1..period, oldest to newest.
func wma(prices []float64, period int) (float64, bool) {
	if len(prices) < period {
		return 0, false
	}
	recent := prices[len(prices)-period:]
	var weighted, weightSum float64
	for i, p := range recent {
		w := float64(i + 1)
		weighted += p * w
		weightSum += w
	}
	return weighted / weightSum, true
}

// hma returns the raw Hull composite 2*WMA(n/2) - WMA(n).
func hma(prices []float64, period int) (float64, bool) {
	if len(prices) < period || period/2 < 1 {
		return 0, false
	}
	half, ok := wma(prices, period/2)
	if !ok {
		return 0, false
	}
	full, ok := wma(prices, period)
	if !ok {
		return 0, false
	}
	return 2*half - full, true
}

// generateSignal compares the current price and MA slope against the previous
// MA value: buy when price is above a rising MA, sell when below a falling one.
func (m *MovingAverage) generateSignal(price, value float64) domain.Signal {
	previous := m.LastResult()
	if previous == nil {
		return domain.SignalNone
	}

	switch {
	case price > value && value > previous.Value:
		return domain.SignalBuy
	case price < value && value < previous.Value:
		return domain.SignalSell
	default:
		return domain.SignalHold
	}
}

// maConfidence scales the relative distance from the MA, capped at 1.0.
func maConfidence(price, value float64) float64 {
	if value == 0 {
		return 0
	}
	distance := math.Abs(price-value) / value
	return math.Min(distance*10, 1.0)
}

// TrendDirection classifies the MA slope from the last two results.
func (m *MovingAverage) TrendDirection() (TrendDirection, bool) {
	if len(m.results) < 2 {
		return "", false
	}
	current := m.results[len(m.results)-1].Value
	previous := m.results[len(m.results)-2].Value
	switch {
	case current > previous:
		return TrendUp, true
	case current < previous:
		return TrendDown, true
	default:
		return TrendSideways, true
	}
}

// CrossSignal detects a crossover of this (fast) MA against another (slow)
// MA using the last two results of each.
func (m *MovingAverage) CrossSignal(other *MovingAverage) CrossSignal {
	if other == nil || len(m.results) < 2 || len(other.results) < 2 {
		return CrossNone
	}

	fastCurrent := m.results[len(m.results)-1].Value
	fastPrevious := m.results[len(m.results)-2].Value
	slowCurrent := other.results[len(other.results)-1].Value
	slowPrevious := other.results[len(other.results)-2].Value

	switch {
	case fastPrevious <= slowPrevious && fastCurrent > slowCurrent:
		return GoldenCross
	case fastPrevious >= slowPrevious && fastCurrent < slowCurrent:
		return DeathCross
	default:
		return CrossNone
	}
}
