package patterns

import (
	"context"
	"fmt"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

const (
	defaultMaxHistory    = 1000
	defaultMinConfidence = 0.5
)

// Detector is the capability shared by all pattern detectors.
type Detector interface {
	// Update ingests one candle and returns the patterns newly detected on
	// it, already filtered by the confidence floor. Failures never propagate.
	Update(ctx context.Context, candle domain.Candle) []domain.PatternResult

	// DetectPatterns scans the given candles for patterns ending on the
	// last bar. Results are unfiltered.
	DetectPatterns(ctx context.Context, candles []domain.Candle) []domain.PatternResult

	// Reset clears all buffered candles and detected patterns.
	Reset()

	// IsReady reports whether enough candles have been buffered.
	IsReady() bool

	// Name returns the detector's display name.
	Name() string
}

// Config holds common configuration for pattern detectors.
type Config struct {
	Timeframe     string
	MinCandles    int     // readiness threshold
	MaxHistory    int     // candle and pattern buffer cap, default 1000
	MinConfidence float64 // detection floor, default 0.5
}

func (c *Config) applyDefaults() {
	if c.MinCandles <= 0 {
		c.MinCandles = 1
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = defaultMaxHistory
	}
	if c.MinConfidence <= 0 {
		c.MinConfidence = defaultMinConfidence
	}
}

// Base provides the shared detector lifecycle: buffer the candle, run the
// scan, filter by confidence, buffer what survived.
type Base struct {
	name    string
	cfg     Config
	candles []domain.Candle
	history []domain.PatternResult
	logger  ports.Logger
}

type detectFunc func(ctx context.Context, candles []domain.Candle) []domain.PatternResult

func newBase(name string, cfg Config, logger ports.Logger) (Base, error) {
	if logger == nil {
		return Base{}, fmt.Errorf("%w: logger is required for %s", ports.ErrInvalidConfig, name)
	}
	cfg.applyDefaults()
	if cfg.MinConfidence > 1 {
		return Base{}, fmt.Errorf("%w: %s min confidence %.2f above 1.0", ports.ErrInvalidConfig, name, cfg.MinConfidence)
	}
	return Base{name: name, cfg: cfg, logger: logger}, nil
}

// applyUpdate runs the shared lifecycle with the concrete scan.
func (b *Base) applyUpdate(ctx context.Context, candle domain.Candle, detect detectFunc) []domain.PatternResult {
	b.candles = append(b.candles, candle)
	if len(b.candles) > b.cfg.MaxHistory {
		b.candles = b.candles[len(b.candles)-b.cfg.MaxHistory:]
	}

	detected := detect(ctx, b.candles)

	filtered := make([]domain.PatternResult, 0, len(detected))
	for _, p := range detected {
		if p.Confidence >= b.cfg.MinConfidence {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	b.history = append(b.history, filtered...)
	if len(b.history) > b.cfg.MaxHistory {
		b.history = b.history[len(b.history)-b.cfg.MaxHistory:]
	}
	return filtered
}

// Name returns the detector's display name.
func (b *Base) Name() string { return b.name }

// IsReady reports whether enough candles have been buffered.
func (b *Base) IsReady() bool { return len(b.candles) >= b.cfg.MinCandles }

// Reset clears the candle and pattern buffers.
func (b *Base) Reset() {
	b.candles = nil
	b.history = nil
}

// Candles returns the internal candle buffer (read-only by convention).
func (b *Base) Candles() []domain.Candle { return b.candles }

// RecentPatterns returns up to count of the most recently detected patterns.
func (b *Base) RecentPatterns(count int) []domain.PatternResult {
	if count <= 0 || len(b.history) == 0 {
		return nil
	}
	if count > len(b.history) {
		count = len(b.history)
	}
	return b.history[len(b.history)-count:]
}

// PatternsBySignal returns all detected patterns carrying the given signal.
func (b *Base) PatternsBySignal(signal domain.PatternSignal) []domain.PatternResult {
	var out []domain.PatternResult
	for _, p := range b.history {
		if p.Signal == signal {
			out = append(out, p)
		}
	}
	return out
}

// validateCandles checks the last minCount candles for positive prices and
// consistent OHLC ordering. A bad bar suppresses detection for that window.
func validateCandles(candles []domain.Candle, minCount int) bool {
	if len(candles) < minCount {
		return false
	}
	for _, c := range candles[len(candles)-minCount:] {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return false
		}
		if !(c.Low <= c.Open && c.Open <= c.High && c.Low <= c.Close && c.Close <= c.High) {
			return false
		}
	}
	return true
}
