package indicators

import (
	"context"
	"io"
	"math"
	"testing"
	"time"

	"marketAnalyzer/internal/adapters/logger"
	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

func testCtx() context.Context { return context.Background() }

func testLogger() ports.Logger {
	return logger.NewStdLoggerWithWriter(io.Discard, logger.LevelError)
}

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

// candleAt builds a valid candle around the given close price.
func candleAt(i int, close float64) domain.Candle {
	open := close - 0.5
	if open <= 0 {
		open = close
	}
	return domain.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Timestamp: testStart.Add(time.Duration(i) * time.Minute),
		Open:      open,
		High:      close + 1,
		Low:       open - 1,
		Close:     close,
		Volume:    1000,
	}
}

// candlesFromCloses builds a series of valid candles from close prices.
func candlesFromCloses(closes ...float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, c := range closes {
		candles[i] = candleAt(i, c)
	}
	return candles
}

// flatCandle builds a candle with open=high=low=close.
func flatCandle(i int, price float64) domain.Candle {
	return domain.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Timestamp: testStart.Add(time.Duration(i) * time.Minute),
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    1000,
	}
}

func feedAll(t *testing.T, ind Indicator, candles []domain.Candle) []*domain.IndicatorResult {
	t.Helper()
	results := make([]*domain.IndicatorResult, 0, len(candles))
	for _, c := range candles {
		results = append(results, ind.Update(context.Background(), c))
	}
	return results
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}
