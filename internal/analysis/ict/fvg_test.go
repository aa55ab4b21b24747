package ict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

func newGapDetector(t *testing.T, cfg FVGConfig) *FairValueGapDetector {
	t.Helper()
	detector, err := NewFairValueGapDetector(cfg, testLogger())
	require.NoError(t, err)
	return detector
}

// bullishGapTriple leaves a one-point imbalance between the first candle's
// high at 100 and the third candle's low at 101.
func bullishGapTriple() []domain.Candle {
	return []domain.Candle{
		makeCandle(0, 99.0, 100.0, 98.5, 99.8, 1000),
		makeCandle(1, 99.9, 100.9, 99.85, 100.8, 2000),
		makeCandle(2, 101.1, 102.0, 101.0, 101.8, 1000),
	}
}

func TestNewFairValueGapDetectorValidation(t *testing.T) {
	_, err := NewFairValueGapDetector(FVGConfig{}, nil)
	require.ErrorIs(t, err, ports.ErrInvalidConfig)

	detector, err := NewFairValueGapDetector(FVGConfig{}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, defaultMaxGaps, detector.cfg.MaxGaps)
	assert.InDelta(t, defaultMinGapSize, detector.cfg.MinGapSize, 1e-9)
}

func TestBullishGapDetection(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{})

	var detected []domain.FairValueGap
	for _, candle := range bullishGapTriple() {
		detected = append(detected, detector.Update(testCtx(), candle)...)
	}
	require.Len(t, detected, 1)

	active := detector.ActiveGaps()
	require.Len(t, active, 1)

	gap := active[0]
	assert.Equal(t, "FVG_BULL_1", gap.ID)
	assert.Equal(t, domain.FVGBullish, gap.Type)
	assert.Equal(t, domain.FVGActive, gap.Status)
	assert.InDelta(t, 100.0, gap.Low, 1e-9)
	assert.InDelta(t, 101.0, gap.High, 1e-9)
	assert.InDelta(t, 1.0, gap.GapSize, 1e-9)
	assert.InDelta(t, 0.8715, gap.Strength, 0.001)
	assert.Zero(t, gap.FillPercentage)
}

func TestGapFillLifecycle(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{})
	for _, candle := range bullishGapTriple() {
		detector.Update(testCtx(), candle)
	}
	require.Len(t, detector.ActiveGaps(), 1)

	// A dip to 100.7 covers thirty percent of the gap band.
	detector.Update(testCtx(), makeCandle(3, 101.2, 101.6, 100.7, 101.4, 1000))
	active := detector.ActiveGaps()
	require.Len(t, active, 1)
	assert.Equal(t, domain.FVGPartiallyFilled, active[0].Status)
	assert.InDelta(t, 0.3, active[0].FillPercentage, 1e-9)

	// A dip through the gap's lower bound fills and archives it.
	detector.Update(testCtx(), makeCandle(4, 101.0, 101.2, 99.8, 100.2, 1000))
	assert.Empty(t, detector.ActiveGaps())

	filled := detector.FilledGaps()
	require.Len(t, filled, 1)
	assert.Equal(t, domain.FVGFilled, filled[0].Status)
	assert.InDelta(t, 1.0, filled[0].FillPercentage, 1e-9)

	summary := detector.GapsSummary()
	assert.Equal(t, 0, summary["active_gaps"])
	assert.Equal(t, 1, summary["filled_gaps"])
}

func TestBearishGapDetection(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{})

	candles := []domain.Candle{
		makeCandle(0, 101.0, 102.0, 100.0, 100.2, 1000),
		makeCandle(1, 100.0, 100.1, 98.9, 99.0, 2000),
		makeCandle(2, 98.8, 99.0, 98.0, 98.2, 1000),
	}
	for _, candle := range candles {
		detector.Update(testCtx(), candle)
	}

	active := detector.ActiveGaps()
	require.Len(t, active, 1)
	assert.Equal(t, "FVG_BEAR_1", active[0].ID)
	assert.Equal(t, domain.FVGBearish, active[0].Type)
	assert.InDelta(t, 99.0, active[0].Low, 1e-9)
	assert.InDelta(t, 100.0, active[0].High, 1e-9)

	// Price below the gap suggests a retracement up into the band.
	signals := detector.Signals(testCtx())
	require.Len(t, signals, 1)
	assert.Equal(t, domain.TrendBullish, signals[0].Direction)
	assert.InDelta(t, 100.0, signals[0].TargetHigh, 1e-9)
	assert.InDelta(t, 99.0, signals[0].TargetLow, 1e-9)
}

func TestBullishGapRetracementSignal(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{})
	for _, candle := range bullishGapTriple() {
		detector.Update(testCtx(), candle)
	}

	// The third candle already closed above the gap.
	signals := detector.Signals(testCtx())
	require.Len(t, signals, 1)
	assert.Equal(t, "FVG_BULL_1", signals[0].GapID)
	assert.Equal(t, domain.TrendBearish, signals[0].Direction)
	assert.InDelta(t, 101.0, signals[0].TargetHigh, 1e-9)
	assert.InDelta(t, 100.0, signals[0].TargetLow, 1e-9)
}

// Retracement signals only fire for untouched gaps. Once a bar trades into
// the band the gap keeps being tracked but stops producing signals.
func TestPartiallyFilledGapEmitsNoSignal(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{})
	for _, candle := range bullishGapTriple() {
		detector.Update(testCtx(), candle)
	}
	require.Len(t, detector.Signals(testCtx()), 1)

	// A dip into the band marks the gap partially filled. The close is still
	// above the gap's high, which previously produced a retracement signal.
	detector.Update(testCtx(), makeCandle(3, 101.2, 101.6, 100.7, 101.4, 1000))

	active := detector.ActiveGaps()
	require.Len(t, active, 1)
	require.Equal(t, domain.FVGPartiallyFilled, active[0].Status)
	assert.Empty(t, detector.Signals(testCtx()))
}

// With no volume data the strength's volume multiplier is neutral rather
// than a penalty.
func TestGapStrengthWithoutVolume(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{})

	triple := bullishGapTriple()
	for i := range triple {
		triple[i].Volume = 0
	}
	for _, candle := range triple {
		detector.Update(testCtx(), candle)
	}

	active := detector.ActiveGaps()
	require.Len(t, active, 1)
	// min(gapPct*100, 1) * 1.0 * bodyFactor = 0.99206 * 0.70268
	assert.InDelta(t, 0.6971, active[0].Strength, 0.001)
}

func TestGapCapDropsOldest(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{MaxGaps: 2})

	// A staircase where every consecutive triple gaps upward.
	for i := 0; i < 7; i++ {
		base := 100.0 + 2.0*float64(i)
		detector.Update(testCtx(), makeCandle(i, base+0.2, base+1.0, base, base+0.8, 1000))
	}

	active := detector.ActiveGaps()
	require.Len(t, active, 2)
	assert.Equal(t, "FVG_BULL_4", active[0].ID)
	assert.Equal(t, "FVG_BULL_5", active[1].ID)
}

func TestGapDetectorReset(t *testing.T) {
	detector := newGapDetector(t, FVGConfig{})
	for _, candle := range bullishGapTriple() {
		detector.Update(testCtx(), candle)
	}
	require.Len(t, detector.ActiveGaps(), 1)

	detector.Reset()
	assert.Empty(t, detector.ActiveGaps())
	assert.Empty(t, detector.FilledGaps())

	// After a reset the same triple is detected again from a clean count.
	for _, candle := range bullishGapTriple() {
		detector.Update(testCtx(), candle)
	}
	active := detector.ActiveGaps()
	require.Len(t, active, 1)
	assert.Equal(t, "FVG_BULL_1", active[0].ID)
}
