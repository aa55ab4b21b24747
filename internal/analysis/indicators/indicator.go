package indicators

import (
	"context"
	"fmt"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// PriceSource selects which price an indicator consumes from each candle.
type PriceSource string

const (
	PriceClose PriceSource = "close"
	PriceOpen  PriceSource = "open"
	PriceHigh  PriceSource = "high"
	PriceLow   PriceSource = "low"
	PriceHL2   PriceSource = "hl2"
	PriceHLC3  PriceSource = "hlc3"
	PriceOHLC4 PriceSource = "ohlc4"
)

const (
	defaultMaxHistory = 1000
	defaultMaxResults = 100
)

// Indicator is the capability shared by all streaming indicators.
type Indicator interface {
	// Update ingests one candle and returns the new result, or nil when the
	// indicator is not ready or the calculation failed. Failures never
	// propagate; they are logged and absorbed here.
	Update(ctx context.Context, candle domain.Candle) *domain.IndicatorResult

	// Calculate computes the indicator value over the given candles.
	// A nil result with a nil error means there is not enough usable data.
	Calculate(ctx context.Context, candles []domain.Candle) (*domain.IndicatorResult, error)

	// Reset clears all buffered candles, results and incremental state.
	Reset()

	// IsReady reports whether enough candles have been buffered.
	IsReady() bool

	// Name returns the indicator's display name.
	Name() string

	// RequiredDataPoints returns the minimum number of candles needed before
	// the first result can be produced.
	RequiredDataPoints() int
}

// Config holds common configuration for indicators.
type Config struct {
	Period      int
	Timeframe   string
	PriceSource PriceSource
	MaxHistory  int // candle buffer cap, default 1000
	MaxResults  int // result buffer cap, default 100
	MinPeriods  int // readiness threshold, default Period
}

func (c *Config) applyDefaults() {
	if c.PriceSource == "" {
		c.PriceSource = PriceClose
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = defaultMaxHistory
	}
	if c.MaxResults <= 0 {
		c.MaxResults = defaultMaxResults
	}
	if c.MinPeriods <= 0 {
		c.MinPeriods = c.Period
	}
}

func (c Config) validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("%w: period must be positive", ports.ErrInvalidConfig)
	}
	switch c.PriceSource {
	case PriceClose, PriceOpen, PriceHigh, PriceLow, PriceHL2, PriceHLC3, PriceOHLC4:
	default:
		return fmt.Errorf("%w: %q", ports.ErrUnknownPriceType, c.PriceSource)
	}
	return nil
}

// Base provides the shared update lifecycle: buffer the candle, run the
// calculation, buffer and return the result. Concrete indicators embed it.
type Base struct {
	name    string
	cfg     Config
	candles []domain.Candle
	results []domain.IndicatorResult
	logger  ports.Logger
}

type calcFunc func(ctx context.Context, candles []domain.Candle) (*domain.IndicatorResult, error)

func newBase(name string, cfg Config, logger ports.Logger) (Base, error) {
	if logger == nil {
		return Base{}, fmt.Errorf("%w: logger is required for %s", ports.ErrInvalidConfig, name)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Base{}, fmt.Errorf("%s: %w", name, err)
	}
	return Base{name: name, cfg: cfg, logger: logger}, nil
}

// applyUpdate runs the shared lifecycle with the concrete calculation.
func (b *Base) applyUpdate(ctx context.Context, candle domain.Candle, calc calcFunc) *domain.IndicatorResult {
	b.candles = append(b.candles, candle)
	if len(b.candles) > b.cfg.MaxHistory {
		b.candles = b.candles[len(b.candles)-b.cfg.MaxHistory:]
	}

	result, err := calc(ctx, b.candles)
	if err != nil {
		b.logger.Error(ctx, err, "indicator update failed", map[string]interface{}{"indicator": b.name})
		return nil
	}
	if result == nil {
		return nil
	}

	b.results = append(b.results, *result)
	if len(b.results) > b.cfg.MaxResults {
		b.results = b.results[len(b.results)-b.cfg.MaxResults:]
	}
	return result
}

// Name returns the indicator's display name.
func (b *Base) Name() string { return b.name }

// RequiredDataPoints returns the readiness threshold.
func (b *Base) RequiredDataPoints() int { return b.cfg.MinPeriods }

// IsReady reports whether enough candles have been buffered.
func (b *Base) IsReady() bool { return len(b.candles) >= b.cfg.MinPeriods }

// Reset clears the candle and result buffers.
func (b *Base) Reset() {
	b.candles = nil
	b.results = nil
}

// Candles returns the internal candle buffer (read-only by convention).
func (b *Base) Candles() []domain.Candle { return b.candles }

// Results returns the internal result buffer (read-only by convention).
func (b *Base) Results() []domain.IndicatorResult { return b.results }

// LastResult returns the most recent result, or nil if none exists.
func (b *Base) LastResult() *domain.IndicatorResult {
	if len(b.results) == 0 {
		return nil
	}
	return &b.results[len(b.results)-1]
}

// CurrentValue returns the most recent scalar value, or false if no result
// has been produced yet.
func (b *Base) CurrentValue() (float64, bool) {
	last := b.LastResult()
	if last == nil {
		return 0, false
	}
	return last.Value, true
}

// validateCandles reports whether the last minPeriods candles exist and carry
// positive prices. Invalid bars make the indicator skip the result rather
// than fail.
func validateCandles(candles []domain.Candle, minPeriods int) bool {
	if len(candles) < minPeriods {
		return false
	}
	for _, c := range candles[len(candles)-minPeriods:] {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return false
		}
	}
	return true
}

// extractPrices maps candles to the configured price series.
func extractPrices(candles []domain.Candle, source PriceSource) ([]float64, error) {
	prices := make([]float64, len(candles))
	for i, c := range candles {
		switch source {
		case PriceClose:
			prices[i] = c.Close
		case PriceOpen:
			prices[i] = c.Open
		case PriceHigh:
			prices[i] = c.High
		case PriceLow:
			prices[i] = c.Low
		case PriceHL2:
			prices[i] = c.HL2()
		case PriceHLC3:
			prices[i] = c.HLC3()
		case PriceOHLC4:
			prices[i] = c.OHLC4()
		default:
			return nil, fmt.Errorf("%w: %q", ports.ErrUnknownPriceType, source)
		}
	}
	return prices, nil
}
