package main

import (
	"context"
	"fmt"
	"log"

	"marketAnalyzer/config"
	"marketAnalyzer/internal/adapters/logger"
	"marketAnalyzer/internal/app"
	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 2. Load candles from CSV
	candles, err := utils.ReadCandlesFromCSV(cfg.DataFile, cfg.Symbol, cfg.Timeframe)
	if err != nil {
		appLogger.Error(ctx, err, "Failed to load candles", map[string]interface{}{"file": cfg.DataFile})
		log.Fatalf("FATAL: Failed to load candles from %s: %v", cfg.DataFile, err)
	}
	appLogger.Info(ctx, "Loaded candles", map[string]interface{}{
		"file":      cfg.DataFile,
		"symbol":    cfg.Symbol,
		"timeframe": cfg.Timeframe,
		"count":     len(candles),
	})

	// 3. Build the analyzer
	analyzer, err := app.NewAnalyzer(cfg, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to build analyzer: %v", err)
	}

	// 4. Replay the stream
	indicatorSignals := map[domain.Signal]int{}
	patternCount := 0
	blockSignalCount := 0
	gapSignalCount := 0

	for _, candle := range candles {
		report, err := analyzer.ProcessCandle(ctx, candle)
		if err != nil {
			appLogger.Error(ctx, err, "Skipping candle", map[string]interface{}{"timestamp": candle.Timestamp})
			continue
		}
		if report == nil {
			continue
		}

		for name, result := range report.Indicators {
			if result.Signal == domain.SignalBuy || result.Signal == domain.SignalSell {
				indicatorSignals[result.Signal]++
				appLogger.Debug(ctx, "Indicator signal", map[string]interface{}{
					"indicator":  name,
					"signal":     string(result.Signal),
					"confidence": result.Confidence,
					"timestamp":  report.Timestamp,
				})
			}
		}

		for _, pattern := range report.Patterns {
			patternCount++
			appLogger.Info(ctx, "Pattern detected", map[string]interface{}{
				"pattern":    pattern.PatternName,
				"signal":     string(pattern.Signal),
				"confidence": pattern.Confidence,
				"timestamp":  report.Timestamp,
			})
		}

		for _, signal := range report.OrderBlockSignals {
			blockSignalCount++
			appLogger.Info(ctx, "Order block signal", map[string]interface{}{
				"type":       string(signal.SignalType),
				"block":      signal.Block.ID,
				"price":      signal.Price,
				"confidence": signal.Confidence,
			})
		}

		for _, signal := range report.GapSignals {
			gapSignalCount++
			appLogger.Info(ctx, "Gap retracement signal", map[string]interface{}{
				"gap":       signal.GapID,
				"direction": string(signal.Direction),
				"target":    fmt.Sprintf("%.4f-%.4f", signal.TargetLow, signal.TargetHigh),
			})
		}
	}

	// 5. Print the final summary
	fmt.Println("=== Replay Summary ===")
	fmt.Printf("Candles processed:   %d\n", analyzer.Processed())
	fmt.Printf("Buy signals:         %d\n", indicatorSignals[domain.SignalBuy])
	fmt.Printf("Sell signals:        %d\n", indicatorSignals[domain.SignalSell])
	fmt.Printf("Patterns detected:   %d\n", patternCount)
	fmt.Printf("Order block signals: %d\n", blockSignalCount)
	fmt.Printf("Gap signals:         %d\n", gapSignalCount)
	fmt.Printf("Trend direction:     %s\n", analyzer.GetTrendDirection())
	fmt.Printf("Volatility level:    %s\n", analyzer.VolatilityLevel())
	fmt.Printf("Squeeze status:      %s\n", analyzer.SqueezeStatus())

	fmt.Println("--- Active order blocks ---")
	for _, block := range analyzer.GetActiveBlocks() {
		fmt.Printf("  %s %s [%.4f, %.4f] strength %.2f\n",
			block.ID, block.Type, block.Low, block.High, block.Strength)
	}
	fmt.Println("--- Active fair value gaps ---")
	for _, gap := range analyzer.GetActiveGaps() {
		fmt.Printf("  %s %s [%.4f, %.4f] filled %.0f%%\n",
			gap.ID, gap.Type, gap.Low, gap.High, gap.FillPercentage*100)
	}
}
