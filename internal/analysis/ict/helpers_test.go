package ict

import (
	"context"
	"io"
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

func makeCandle(i int, open, high, low, close, volume float64) domain.Candle {
	return domain.Candle{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		Timestamp: testStart.Add(time.Duration(i) * time.Minute),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

// candlesFromCloses wraps each close in a half-point range so that local
// extrema of the close series become swing highs and lows.
func candlesFromCloses(closes ...float64) []domain.Candle {
	candles := make([]domain.Candle, len(closes))
	for i, close := range closes {
		candles[i] = makeCandle(i, close, close+0.5, close-0.5, close, 1000)
	}
	return candles
}
