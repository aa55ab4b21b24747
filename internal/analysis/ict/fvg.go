package ict

import (
	"context"
	"fmt"
	"math"
	"time"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

const (
	defaultMinGapSize = 0.001
	defaultMaxGaps    = 20

	// Only the most recent triples are scanned on each update.
	gapScanWindow = 10
)

// FVGConfig configures a FairValueGapDetector. Zero values take the
// documented defaults.
type FVGConfig struct {
	MinGapSize float64 // minimum gap size as fraction of price, default 0.001
	MaxGaps    int     // active gap cap, default 20
	MaxHistory int     // candle buffer cap, default 1000
}

func (c *FVGConfig) applyDefaults() {
	if c.MinGapSize <= 0 {
		c.MinGapSize = defaultMinGapSize
	}
	if c.MaxGaps <= 0 {
		c.MaxGaps = defaultMaxGaps
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = defaultMaxHistory
	}
}

// FairValueGapDetector finds three-candle imbalances in a candle stream and
// tracks how far each gap has been filled by subsequent price action.
type FairValueGapDetector struct {
	cfg FVGConfig

	candles    []domain.Candle
	activeGaps []domain.FairValueGap
	filledGaps []domain.FairValueGap
	seenGaps   map[string]bool
	bullCount  int
	bearCount  int
	logger     ports.Logger
}

// NewFairValueGapDetector creates a fair value gap detector.
func NewFairValueGapDetector(cfg FVGConfig, logger ports.Logger) (*FairValueGapDetector, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required for fair value gap detector", ports.ErrInvalidConfig)
	}
	cfg.applyDefaults()

	return &FairValueGapDetector{
		cfg:      cfg,
		seenGaps: make(map[string]bool),
		logger:   logger,
	}, nil
}

// Update ingests one candle, detects any new gaps and advances fill state.
// It returns the newly detected gaps.
func (d *FairValueGapDetector) Update(ctx context.Context, candle domain.Candle) []domain.FairValueGap {
	d.candles = append(d.candles, candle)
	if len(d.candles) > d.cfg.MaxHistory {
		d.candles = d.candles[len(d.candles)-d.cfg.MaxHistory:]
	}
	return d.DetectGaps(ctx, d.candles)
}

// DetectGaps scans the most recent candle triples for imbalances, then
// updates the fill state of every active gap against the newest bar. Triples
// already evaluated are skipped.
func (d *FairValueGapDetector) DetectGaps(ctx context.Context, candles []domain.Candle) []domain.FairValueGap {
	if len(candles) < 3 {
		return nil
	}

	start := len(candles) - gapScanWindow - 2
	if start < 0 {
		start = 0
	}

	var newGaps []domain.FairValueGap
	for i := start; i <= len(candles)-3; i++ {
		if gap := d.checkTriple(candles[i], candles[i+1], candles[i+2]); gap != nil {
			newGaps = append(newGaps, *gap)
			d.addGap(ctx, *gap)
		}
	}

	d.updateFillState(ctx, candles[len(candles)-1])

	return newGaps
}

// checkTriple evaluates three consecutive candles for an imbalance. A bullish
// gap exists when the third candle's low sits above the first candle's high
// with the move closing in the gap's direction.
func (d *FairValueGapDetector) checkTriple(c1, c2, c3 domain.Candle) *domain.FairValueGap {
	key := gapKey(c2.Timestamp)
	if d.seenGaps[key] {
		return nil
	}
	if c2.Close == 0 {
		return nil
	}

	// Bullish imbalance: gap between c1 high and c3 low.
	if c3.Low > c1.High && c3.Close > c1.Close {
		gapSize := c3.Low - c1.High
		if gapSize/c2.Close >= d.cfg.MinGapSize {
			d.seenGaps[key] = true
			d.pruneSeen()
			d.bullCount++
			return &domain.FairValueGap{
				ID:        fmt.Sprintf("FVG_BULL_%d", d.bullCount),
				Timestamp: c2.Timestamp,
				Type:      domain.FVGBullish,
				High:      c3.Low,
				Low:       c1.High,
				GapSize:   gapSize,
				Strength:  gapStrength(c1, c2, c3, gapSize),
				Status:    domain.FVGActive,
			}
		}
	}

	// Bearish imbalance: gap between c3 high and c1 low.
	if c3.High < c1.Low && c3.Close < c1.Close {
		gapSize := c1.Low - c3.High
		if gapSize/c2.Close >= d.cfg.MinGapSize {
			d.seenGaps[key] = true
			d.pruneSeen()
			d.bearCount++
			return &domain.FairValueGap{
				ID:        fmt.Sprintf("FVG_BEAR_%d", d.bearCount),
				Timestamp: c2.Timestamp,
				Type:      domain.FVGBearish,
				High:      c1.Low,
				Low:       c3.High,
				GapSize:   gapSize,
				Strength:  gapStrength(c1, c2, c3, gapSize),
				Status:    domain.FVGActive,
			}
		}
	}

	return nil
}

// gapStrength blends the gap size against price (scaled to 1 at one percent),
// the displacement bar's volume against the triple average and its body size.
func gapStrength(c1, c2, c3 domain.Candle, gapSize float64) float64 {
	gapPct := gapSize / c2.Close

	// Without volume data the multiplier stays neutral.
	avgVolume := (c1.Volume + c2.Volume + c3.Volume) / 3.0
	volumeFactor := 1.0
	if avgVolume > 0 {
		volumeFactor = 0.5 + math.Min(c2.Volume/avgVolume, 2.0)*0.5
	}

	bodyFactor := 0.7 + (c2.BodySize()/c2.Close)*0.3

	return math.Min(math.Min(gapPct*100, 1.0)*volumeFactor*bodyFactor, 1.0)
}

// addGap appends to the active set, dropping the oldest gap when the cap is
// exceeded.
func (d *FairValueGapDetector) addGap(ctx context.Context, gap domain.FairValueGap) {
	d.activeGaps = append(d.activeGaps, gap)
	d.logger.Debug(ctx, "fair value gap detected", map[string]interface{}{
		"id":       gap.ID,
		"type":     string(gap.Type),
		"high":     gap.High,
		"low":      gap.Low,
		"strength": gap.Strength,
	})

	if len(d.activeGaps) > d.cfg.MaxGaps {
		d.activeGaps = d.activeGaps[len(d.activeGaps)-d.cfg.MaxGaps:]
	}
}

// updateFillState recomputes the fill percentage of each active gap from the
// current bar's overlap and archives fully filled gaps.
func (d *FairValueGapDetector) updateFillState(ctx context.Context, current domain.Candle) {
	remaining := d.activeGaps[:0]
	for i := range d.activeGaps {
		gap := d.activeGaps[i]

		filled := overlapFraction(gap, current)
		if filled > gap.FillPercentage {
			gap.FillPercentage = filled
			gap.LastTest = current.Timestamp
		}

		if gap.FillPercentage >= 1.0 {
			gap.FillPercentage = 1.0
			gap.Status = domain.FVGFilled
			d.logger.Debug(ctx, "fair value gap filled", map[string]interface{}{"id": gap.ID})
			d.filledGaps = append(d.filledGaps, gap)
			continue
		}
		if gap.FillPercentage > 0 {
			gap.Status = domain.FVGPartiallyFilled
		}
		remaining = append(remaining, gap)
	}
	d.activeGaps = remaining

	if len(d.filledGaps) > d.cfg.MaxHistory {
		d.filledGaps = d.filledGaps[len(d.filledGaps)-d.cfg.MaxHistory:]
	}
}

// overlapFraction returns how much of the gap band the candle's range covers,
// measured from the side price retraces into.
func overlapFraction(gap domain.FairValueGap, candle domain.Candle) float64 {
	if gap.GapSize <= 0 {
		return 1.0
	}

	if gap.Type == domain.FVGBullish {
		// Price retraces down into a bullish gap from above.
		if candle.Low >= gap.High {
			return 0
		}
		depth := gap.High - math.Max(candle.Low, gap.Low)
		return math.Min(depth/gap.GapSize, 1.0)
	}

	// Price retraces up into a bearish gap from below.
	if candle.High <= gap.Low {
		return 0
	}
	depth := math.Min(candle.High, gap.High) - gap.Low
	return math.Min(depth/gap.GapSize, 1.0)
}

// Signals produces retracement signals for active gaps the current price has
// moved away from. Price above a bullish gap suggests a pullback into the gap
// band, and the mirror for bearish gaps.
func (d *FairValueGapDetector) Signals(_ context.Context) []domain.FVGSignal {
	if len(d.candles) == 0 {
		return nil
	}
	current := d.candles[len(d.candles)-1]

	var signals []domain.FVGSignal
	for _, gap := range d.activeGaps {
		// Once price has traded into the band the gap stops acting as a
		// retracement magnet, even while it stays tracked as partially filled.
		if gap.Status != domain.FVGActive {
			continue
		}
		if gap.Type == domain.FVGBullish && current.Close > gap.High {
			signals = append(signals, domain.FVGSignal{
				Timestamp:  current.Timestamp,
				GapID:      gap.ID,
				Direction:  domain.TrendBearish,
				TargetHigh: gap.High,
				TargetLow:  gap.Low,
				Strength:   gap.Strength,
			})
		}
		if gap.Type == domain.FVGBearish && current.Close < gap.Low {
			signals = append(signals, domain.FVGSignal{
				Timestamp:  current.Timestamp,
				GapID:      gap.ID,
				Direction:  domain.TrendBullish,
				TargetHigh: gap.High,
				TargetLow:  gap.Low,
				Strength:   gap.Strength,
			})
		}
	}
	return signals
}

// ActiveGaps returns a copy of the active gap set.
func (d *FairValueGapDetector) ActiveGaps() []domain.FairValueGap {
	out := make([]domain.FairValueGap, len(d.activeGaps))
	copy(out, d.activeGaps)
	return out
}

// FilledGaps returns a copy of the archived filled gaps.
func (d *FairValueGapDetector) FilledGaps() []domain.FairValueGap {
	out := make([]domain.FairValueGap, len(d.filledGaps))
	copy(out, d.filledGaps)
	return out
}

// GapsSummary returns aggregate counts and the average active strength.
func (d *FairValueGapDetector) GapsSummary() map[string]interface{} {
	bullish, bearish := 0, 0
	totalStrength := 0.0
	for _, gap := range d.activeGaps {
		if gap.Type == domain.FVGBullish {
			bullish++
		} else {
			bearish++
		}
		totalStrength += gap.Strength
	}

	avgStrength := 0.0
	if len(d.activeGaps) > 0 {
		avgStrength = totalStrength / float64(len(d.activeGaps))
	}

	return map[string]interface{}{
		"active_gaps":  len(d.activeGaps),
		"filled_gaps":  len(d.filledGaps),
		"bullish_gaps": bullish,
		"bearish_gaps": bearish,
		"avg_strength": avgStrength,
	}
}

// Reset clears all buffered candles, gaps and dedup state.
func (d *FairValueGapDetector) Reset() {
	d.candles = nil
	d.activeGaps = nil
	d.filledGaps = nil
	d.seenGaps = make(map[string]bool)
	d.bullCount = 0
	d.bearCount = 0
}

func (d *FairValueGapDetector) pruneSeen() {
	if len(d.seenGaps) <= 4*defaultMaxHistory {
		return
	}
	d.seenGaps = make(map[string]bool)
}

func gapKey(ts time.Time) string {
	return fmt.Sprintf("%d", ts.UnixNano())
}
