package patterns

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketAnalyzer/internal/adapters/logger"
	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

func testLogger() ports.Logger {
	return logger.NewStdLoggerWithWriter(io.Discard, logger.LevelError)
}

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func makeCandle(i int, open, high, low, close float64) domain.Candle {
	return domain.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Timestamp: testStart.Add(time.Duration(i) * time.Minute),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    1000,
	}
}

func patternNames(patterns []domain.PatternResult) []string {
	names := make([]string, len(patterns))
	for i, p := range patterns {
		names[i] = p.PatternName
	}
	return names
}

func findPattern(t *testing.T, patterns []domain.PatternResult, name string) domain.PatternResult {
	t.Helper()
	for _, p := range patterns {
		if p.PatternName == name {
			return p
		}
	}
	t.Fatalf("pattern %q not found in %v", name, patternNames(patterns))
	return domain.PatternResult{}
}

func TestDojiDetection(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	// Body 0.1 against a range of 10: ratio 0.01, well under the 5% cap.
	doji := makeCandle(0, 100.0, 105.0, 95.0, 100.1)
	patterns := cs.DetectPatterns(context.Background(), []domain.Candle{doji})

	p := findPattern(t, patterns, "Doji")
	assert.Equal(t, domain.PatternCandlestick, p.PatternType)
	assert.Equal(t, domain.PatternNeutral, p.Signal)
	assert.InDelta(t, 1.0-0.01/0.05, p.Confidence, 1e-9)

	// A full-body candle is not a doji.
	solid := makeCandle(1, 100, 110, 100, 110)
	patterns = cs.DetectPatterns(context.Background(), []domain.Candle{solid})
	for _, p := range patterns {
		assert.NotEqual(t, "Doji", p.PatternName)
	}
}

func TestHammerDetection(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	// Body at the top, lower shadow 9x the body, tiny upper shadow.
	hammer := makeCandle(0, 99.5, 100.1, 95.0, 100.0)
	patterns := cs.DetectPatterns(context.Background(), []domain.Candle{hammer})

	p := findPattern(t, patterns, "Hammer")
	assert.Equal(t, domain.PatternBullish, p.Signal)
	assert.Equal(t, 1.0, p.Confidence)
	assert.Equal(t, 95.0, p.KeyLevels["support"])
}

func TestShootingStarDetection(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	// The mirror of the hammer: body at the bottom, long upper shadow.
	star := makeCandle(0, 100.0, 105.0, 99.93, 99.95)
	patterns := cs.DetectPatterns(context.Background(), []domain.Candle{star})

	p := findPattern(t, patterns, "Shooting Star")
	assert.Equal(t, domain.PatternBearish, p.Signal)
	assert.Equal(t, 105.0, p.KeyLevels["resistance"])
	assert.Greater(t, p.Confidence, 0.0)
}

func TestSpinningTopDetection(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	// Small body centered between shadows of roughly twice its size.
	top := makeCandle(0, 99.9, 102.0, 98.0, 100.1)
	patterns := cs.DetectPatterns(context.Background(), []domain.Candle{top})

	p := findPattern(t, patterns, "Spinning Top")
	assert.Equal(t, domain.PatternNeutral, p.Signal)
	bodyRatio := 0.2 / 4.0
	assert.InDelta(t, 1.0-bodyRatio, p.Confidence, 1e-9)
}

func TestBearishEngulfing(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	candles := []domain.Candle{
		makeCandle(0, 99.0, 101.5, 98.5, 101.0),
		makeCandle(1, 102.0, 102.5, 97.5, 98.0),
	}
	patterns := cs.DetectPatterns(context.Background(), candles)

	p := findPattern(t, patterns, "Bearish Engulfing")
	assert.Equal(t, domain.PatternBearish, p.Signal)
	assert.Greater(t, p.Confidence, 0.0)
	assert.Equal(t, 0, p.StartIndex)
	assert.Equal(t, 1, p.EndIndex)
	assert.Equal(t, 102.5, p.KeyLevels["resistance"])
}

func TestBullishEngulfing(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	candles := []domain.Candle{
		makeCandle(0, 101.0, 101.5, 98.5, 99.0),
		makeCandle(1, 98.0, 102.5, 97.5, 102.0),
	}
	patterns := cs.DetectPatterns(context.Background(), candles)

	p := findPattern(t, patterns, "Bullish Engulfing")
	assert.Equal(t, domain.PatternBullish, p.Signal)
	// Current body 4.0 engulfs previous body 2.0: ratio 2, capped at 1.
	assert.Equal(t, 1.0, p.Confidence)
}

func TestHaramiDetection(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	// Large bearish bar, then a small bar inside its body.
	candles := []domain.Candle{
		makeCandle(0, 105.0, 105.5, 94.5, 95.0),
		makeCandle(1, 99.0, 101.5, 98.5, 101.0),
	}
	patterns := cs.DetectPatterns(context.Background(), candles)

	p := findPattern(t, patterns, "Bullish Harami")
	assert.Equal(t, domain.PatternBullish, p.Signal)
	assert.InDelta(t, 1.0-2.0/10.0, p.Confidence, 1e-9)

	// Bullish outer bar flips the signal.
	candles = []domain.Candle{
		makeCandle(0, 95.0, 105.5, 94.5, 105.0),
		makeCandle(1, 101.0, 101.5, 98.5, 99.0),
	}
	patterns = cs.DetectPatterns(context.Background(), candles)
	p = findPattern(t, patterns, "Bearish Harami")
	assert.Equal(t, domain.PatternBearish, p.Signal)
}

func TestUpdateFiltersByConfidence(t *testing.T) {
	cs, err := NewCandlestick(Config{MinConfidence: 0.9}, testLogger())
	require.NoError(t, err)

	// A borderline doji whose shadows disqualify every other single-bar
	// pattern; its own confidence lands well below the 0.9 floor.
	weak := makeCandle(0, 100.0, 104.2, 99.88, 100.2)
	assert.Empty(t, cs.Update(context.Background(), weak))

	// A near-perfect doji passes.
	strong := makeCandle(1, 100.0, 105.0, 95.0, 100.0)
	detected := cs.Update(context.Background(), strong)
	require.NotEmpty(t, detected)
	assert.Equal(t, "Doji", detected[0].PatternName)

	recent := cs.RecentPatterns(10)
	require.Len(t, recent, 1)
	assert.Equal(t, "Doji", recent[0].PatternName)
}

func TestDetectorRejectsInvalidCandles(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	// High below close violates OHLC ordering.
	bad := domain.Candle{
		Symbol: "BTCUSDT", Timeframe: "1m", Timestamp: testStart,
		Open: 100, High: 99, Low: 98, Close: 100.5, Volume: 1000,
	}
	assert.Empty(t, cs.DetectPatterns(context.Background(), []domain.Candle{bad}))

	// Non-positive price.
	bad.High = 101
	bad.Low = -1
	assert.Empty(t, cs.DetectPatterns(context.Background(), []domain.Candle{bad}))
}

func TestDetectorReset(t *testing.T) {
	cs, err := NewCandlestick(Config{}, testLogger())
	require.NoError(t, err)

	cs.Update(context.Background(), makeCandle(0, 100.0, 105.0, 95.0, 100.0))
	require.True(t, cs.IsReady())

	cs.Reset()
	assert.False(t, cs.IsReady())
	assert.Empty(t, cs.RecentPatterns(10))
}
