package patterns

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketAnalyzer/internal/domain"
)

func TestSupportResistanceLevels(t *testing.T) {
	chart, err := NewChart(Config{}, 0, testLogger())
	require.NoError(t, err)

	// Lows pinned to 100 on every third bar, highs pinned to 101 throughout.
	// The close sits within 2% of both levels.
	candles := make([]domain.Candle, 0, 15)
	for i := 0; i < 15; i++ {
		low := 100.2
		if i%3 == 0 {
			low = 100.0
		}
		candles = append(candles, makeCandle(i, 100.5, 101.0, low, 100.8))
	}

	patterns := chart.DetectPatterns(context.Background(), candles)

	support := findPattern(t, patterns, "Support Level")
	assert.Equal(t, domain.PatternBullish, support.Signal)
	assert.Equal(t, 100.0, support.KeyLevels["support"])
	assert.Equal(t, 100.8, support.KeyLevels["current_price"])
	assert.Greater(t, support.Confidence, 0.0)

	resistance := findPattern(t, patterns, "Resistance Level")
	assert.Equal(t, domain.PatternBearish, resistance.Signal)
	assert.Equal(t, 101.0, resistance.KeyLevels["resistance"])
	// Every bar touches the pinned high: confidence saturates.
	assert.Equal(t, 1.0, resistance.Confidence)
}

func TestLevelsRequireMinimumTouches(t *testing.T) {
	chart, err := NewChart(Config{}, 5, testLogger())
	require.NoError(t, err)

	// The low at 100 appears only three times, below the floor of five.
	candles := make([]domain.Candle, 0, 15)
	for i := 0; i < 15; i++ {
		low := 95.0 + float64(i)*0.5
		if i%5 == 0 {
			low = 100.0
		}
		high := 103.0 + float64(i)*0.5
		candles = append(candles, makeCandle(i, low+0.5, high, low, low+1))
	}

	patterns := chart.DetectPatterns(context.Background(), candles)
	for _, p := range patterns {
		assert.NotEqual(t, "Support Level", p.PatternName)
	}
}

func TestDistantLevelsNotSurfaced(t *testing.T) {
	chart, err := NewChart(Config{}, 0, testLogger())
	require.NoError(t, err)

	// A well-touched low at 100 but price has run away more than 2%.
	candles := make([]domain.Candle, 0, 15)
	for i := 0; i < 15; i++ {
		candles = append(candles, makeCandle(i, 108.0, 110.0, 100.0, 109.0))
	}

	patterns := chart.DetectPatterns(context.Background(), candles)
	for _, p := range patterns {
		assert.NotEqual(t, "Support Level", p.PatternName)
	}
}

func TestAscendingTriangle(t *testing.T) {
	chart, err := NewChart(Config{}, 0, testLogger())
	require.NoError(t, err)

	// Flat ceiling at 120, rising floor with a dip every sixth bar forming
	// clean ascending swing lows.
	candles := make([]domain.Candle, 0, 30)
	for i := 0; i < 30; i++ {
		low := 100.0 + 0.3*float64(i)
		if i%6 == 0 {
			low -= 2.0
		}
		candles = append(candles, makeCandle(i, low+0.5, 120.0, low, low+1))
	}

	patterns := chart.DetectPatterns(context.Background(), candles)

	p := findPattern(t, patterns, "Ascending Triangle")
	assert.Equal(t, domain.PatternBullish, p.Signal)
	assert.Greater(t, p.Confidence, 0.5)
	assert.Equal(t, "Ascending", p.Metadata["triangle_type"])
	assert.Greater(t, p.KeyLevels["lower_slope"], flatSlopeThreshold)
}

func TestDescendingTriangle(t *testing.T) {
	chart, err := NewChart(Config{}, 0, testLogger())
	require.NoError(t, err)

	// Flat floor at 100, falling ceiling with a spike every sixth bar.
	candles := make([]domain.Candle, 0, 30)
	for i := 0; i < 30; i++ {
		high := 120.0 - 0.3*float64(i)
		if i%6 == 0 {
			high += 2.0
		}
		candles = append(candles, makeCandle(i, high-1, high, 100.0, high-0.5))
	}

	patterns := chart.DetectPatterns(context.Background(), candles)

	p := findPattern(t, patterns, "Descending Triangle")
	assert.Equal(t, domain.PatternBearish, p.Signal)
	assert.Less(t, p.KeyLevels["upper_slope"], -flatSlopeThreshold)
}

func TestNoTriangleOnTrendlessData(t *testing.T) {
	chart, err := NewChart(Config{}, 0, testLogger())
	require.NoError(t, err)

	// Flat highs and flat lows: a rectangle, not a triangle.
	candles := make([]domain.Candle, 0, 30)
	for i := 0; i < 30; i++ {
		candles = append(candles, makeCandle(i, 101.0, 105.0, 100.0, 104.0))
	}

	patterns := chart.DetectPatterns(context.Background(), candles)
	for _, p := range patterns {
		assert.NotContains(t, p.PatternName, "Triangle")
	}
}

func TestChartNotReadyBelowMinCandles(t *testing.T) {
	chart, err := NewChart(Config{}, 0, testLogger())
	require.NoError(t, err)

	candles := []domain.Candle{makeCandle(0, 100, 101, 99, 100.5)}
	assert.Empty(t, chart.DetectPatterns(context.Background(), candles))
	assert.False(t, chart.IsReady())
}

func TestTrendLineFit(t *testing.T) {
	// A perfectly linear set of points fits with R-squared 1.
	points := []swingPoint{{0, 100}, {5, 105}, {10, 110}, {15, 115}}
	line, ok := fitTrendLine(points)
	require.True(t, ok)
	assert.InDelta(t, 1.0, line.Slope, 1e-9)
	assert.InDelta(t, 100.0, line.Intercept, 1e-9)
	assert.InDelta(t, 1.0, line.RSquared, 1e-9)

	// Fewer than two points cannot be fit.
	_, ok = fitTrendLine([]swingPoint{{0, 100}})
	assert.False(t, ok)
}
