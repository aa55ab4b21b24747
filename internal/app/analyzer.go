package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"marketAnalyzer/config"
	"marketAnalyzer/internal/analysis/ict"
	"marketAnalyzer/internal/analysis/indicators"
	"marketAnalyzer/internal/analysis/patterns"
	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// Report aggregates everything the engine produced for one bar.
type Report struct {
	ID        string
	Symbol    string
	Timeframe string
	Timestamp time.Time

	Indicators map[string]*domain.IndicatorResult
	MACross    indicators.CrossSignal

	Patterns []domain.PatternResult

	Structure         *domain.MarketStructure
	NewOrderBlocks    []domain.OrderBlock
	OrderBlockSignals []domain.OrderBlockSignal
	NewGaps           []domain.FairValueGap
	GapSignals        []domain.FVGSignal

	StructureSummary map[string]interface{}
	BlocksSummary    map[string]interface{}
	GapsSummary      map[string]interface{}
}

// Analyzer owns one instance of every indicator and detector and fans each
// incoming bar out to all of them.
type Analyzer struct {
	cfg    *config.Config
	logger ports.Logger

	shortMA    *indicators.MovingAverage
	longMA     *indicators.MovingAverage
	rsi        *indicators.RSI
	stochastic *indicators.Stochastic
	williamsR  *indicators.WilliamsR
	cci        *indicators.CCI
	macd       *indicators.MACD
	bollinger  *indicators.BollingerBands
	atr        *indicators.ATR

	candlestick *patterns.Candlestick
	chart       *patterns.Chart

	structure   *ict.MarketStructureAnalyzer
	orderBlocks *ict.OrderBlockDetector
	gaps        *ict.FairValueGapDetector

	processed     int
	lastTimestamp time.Time
}

// NewAnalyzer builds the full component set from the configuration.
func NewAnalyzer(cfg *config.Config, logger ports.Logger) (*Analyzer, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("%w: analyzer requires config and logger", ports.ErrInvalidConfig)
	}

	a := &Analyzer{cfg: cfg, logger: logger}
	var err error

	base := func(period int) indicators.Config {
		return indicators.Config{
			Period:      period,
			Timeframe:   cfg.Timeframe,
			PriceSource: indicators.PriceSource(cfg.PriceSource),
			MaxHistory:  cfg.MaxHistory,
		}
	}

	if a.shortMA, err = indicators.NewMovingAverage(base(cfg.ShortMAPeriod), indicators.MAType(cfg.MAType), logger); err != nil {
		return nil, fmt.Errorf("creating short MA: %w", err)
	}
	if a.longMA, err = indicators.NewMovingAverage(base(cfg.LongMAPeriod), indicators.MAType(cfg.MAType), logger); err != nil {
		return nil, fmt.Errorf("creating long MA: %w", err)
	}
	if a.rsi, err = indicators.NewRSI(base(cfg.RSIPeriod), cfg.RSIOverbought, cfg.RSIOversold, logger); err != nil {
		return nil, fmt.Errorf("creating RSI: %w", err)
	}
	if a.stochastic, err = indicators.NewStochastic(base(cfg.StochasticKPeriod), cfg.StochasticDPeriod, cfg.StochasticSmoothK, cfg.StochasticOverbought, cfg.StochasticOversold, logger); err != nil {
		return nil, fmt.Errorf("creating stochastic: %w", err)
	}
	if a.williamsR, err = indicators.NewWilliamsR(base(cfg.WilliamsRPeriod), -20, -80, logger); err != nil {
		return nil, fmt.Errorf("creating williams %%R: %w", err)
	}
	if a.cci, err = indicators.NewCCI(base(cfg.CCIPeriod), 0.015, 100, -100, logger); err != nil {
		return nil, fmt.Errorf("creating CCI: %w", err)
	}
	if a.macd, err = indicators.NewMACD(base(cfg.MACDSlowPeriod), cfg.MACDFastPeriod, cfg.MACDSlowPeriod, cfg.MACDSignalPeriod, logger); err != nil {
		return nil, fmt.Errorf("creating MACD: %w", err)
	}
	if a.bollinger, err = indicators.NewBollingerBands(base(cfg.BollingerPeriod), cfg.BollingerStdDev, indicators.SMA, logger); err != nil {
		return nil, fmt.Errorf("creating bollinger bands: %w", err)
	}
	if a.atr, err = indicators.NewATR(base(cfg.ATRPeriod), indicators.SMA, logger); err != nil {
		return nil, fmt.Errorf("creating ATR: %w", err)
	}

	patternCfg := patterns.Config{
		Timeframe:     cfg.Timeframe,
		MinCandles:    cfg.PatternMinCandles,
		MaxHistory:    cfg.MaxHistory,
		MinConfidence: cfg.PatternMinConfidence,
	}
	if a.candlestick, err = patterns.NewCandlestick(patternCfg, logger); err != nil {
		return nil, fmt.Errorf("creating candlestick detector: %w", err)
	}
	if a.chart, err = patterns.NewChart(patternCfg, cfg.LevelMinTouches, logger); err != nil {
		return nil, fmt.Errorf("creating chart detector: %w", err)
	}

	if a.structure, err = ict.NewMarketStructureAnalyzer(cfg.StructureLookback, cfg.StructureMinSignificance, logger); err != nil {
		return nil, fmt.Errorf("creating structure analyzer: %w", err)
	}
	if a.orderBlocks, err = ict.NewOrderBlockDetector(ict.OrderBlockConfig{
		MinBlockSize:        cfg.OrderBlockMinSize,
		MaxBlocks:           cfg.OrderBlockMaxActive,
		MitigationThreshold: cfg.MitigationThreshold,
		MaxHistory:          cfg.MaxHistory,
	}, logger); err != nil {
		return nil, fmt.Errorf("creating order block detector: %w", err)
	}
	if a.gaps, err = ict.NewFairValueGapDetector(ict.FVGConfig{
		MinGapSize: cfg.FVGMinSize,
		MaxGaps:    cfg.FVGMaxGaps,
		MaxHistory: cfg.MaxHistory,
	}, logger); err != nil {
		return nil, fmt.Errorf("creating fair value gap detector: %w", err)
	}

	return a, nil
}

// ProcessCandle fans one bar out to every component and aggregates the run
// into a report. Bars at or before the last processed timestamp are skipped
// with a nil report.
func (a *Analyzer) ProcessCandle(ctx context.Context, candle domain.Candle) (*Report, error) {
	if !candle.IsValid() {
		return nil, fmt.Errorf("%w: %s at %s", ports.ErrInvalidCandle, candle.Symbol, candle.Timestamp)
	}
	if !a.lastTimestamp.IsZero() && !candle.Timestamp.After(a.lastTimestamp) {
		a.logger.Warn(ctx, "skipping out-of-order candle", map[string]interface{}{
			"timestamp": candle.Timestamp,
			"last":      a.lastTimestamp,
		})
		return nil, nil
	}
	a.lastTimestamp = candle.Timestamp
	a.processed++

	report := &Report{
		ID:         uuid.NewString(),
		Symbol:     candle.Symbol,
		Timeframe:  candle.Timeframe,
		Timestamp:  candle.Timestamp,
		Indicators: make(map[string]*domain.IndicatorResult),
	}

	for name, ind := range map[string]indicators.Indicator{
		"short_ma":   a.shortMA,
		"long_ma":    a.longMA,
		"rsi":        a.rsi,
		"stochastic": a.stochastic,
		"williams_r": a.williamsR,
		"cci":        a.cci,
		"macd":       a.macd,
		"bollinger":  a.bollinger,
		"atr":        a.atr,
	} {
		if result := ind.Update(ctx, candle); result != nil {
			report.Indicators[name] = result
		}
	}
	report.MACross = a.shortMA.CrossSignal(a.longMA)

	report.Patterns = append(report.Patterns, a.candlestick.Update(ctx, candle)...)
	report.Patterns = append(report.Patterns, a.chart.Update(ctx, candle)...)

	report.Structure = a.structure.Update(ctx, candle)
	report.NewOrderBlocks = a.orderBlocks.Update(ctx, candle)
	report.OrderBlockSignals = a.orderBlocks.GenerateSignals(ctx)
	report.NewGaps = a.gaps.Update(ctx, candle)
	report.GapSignals = a.gaps.Signals(ctx)

	report.StructureSummary = a.structure.StructureSummary()
	report.BlocksSummary = a.orderBlocks.BlocksSummary()
	report.GapsSummary = a.gaps.GapsSummary()

	return report, nil
}

// Processed returns how many bars have been accepted.
func (a *Analyzer) Processed() int { return a.processed }

// Reset returns every component to its initial state.
func (a *Analyzer) Reset() {
	for _, ind := range []indicators.Indicator{
		a.shortMA, a.longMA, a.rsi, a.stochastic, a.williamsR,
		a.cci, a.macd, a.bollinger, a.atr,
	} {
		ind.Reset()
	}
	a.candlestick.Reset()
	a.chart.Reset()
	a.structure.Reset()
	a.orderBlocks.Reset()
	a.gaps.Reset()
	a.processed = 0
	a.lastTimestamp = time.Time{}
}

// GetTrendDirection returns the market structure trend.
func (a *Analyzer) GetTrendDirection() domain.TrendDirection { return a.structure.CurrentTrend() }

// GetStructureSummary returns the latest market structure summary.
func (a *Analyzer) GetStructureSummary() map[string]interface{} { return a.structure.StructureSummary() }

// GetActiveBlocks returns the currently active order blocks.
func (a *Analyzer) GetActiveBlocks() []domain.OrderBlock { return a.orderBlocks.ActiveBlocks() }

// GetBlocksSummary returns order block aggregate counts.
func (a *Analyzer) GetBlocksSummary() map[string]interface{} { return a.orderBlocks.BlocksSummary() }

// GetActiveGaps returns the currently active fair value gaps.
func (a *Analyzer) GetActiveGaps() []domain.FairValueGap { return a.gaps.ActiveGaps() }

// GetFilledGaps returns the archived filled gaps.
func (a *Analyzer) GetFilledGaps() []domain.FairValueGap { return a.gaps.FilledGaps() }

// SqueezeStatus returns the Bollinger band width classification.
func (a *Analyzer) SqueezeStatus() indicators.SqueezeStatus { return a.bollinger.SqueezeStatus() }

// VolatilityLevel returns the ATR volatility classification.
func (a *Analyzer) VolatilityLevel() indicators.VolatilityLevel { return a.atr.VolatilityLevel() }

// RecentCandlestickPatterns returns the newest candlestick patterns.
func (a *Analyzer) RecentCandlestickPatterns(count int) []domain.PatternResult {
	return a.candlestick.RecentPatterns(count)
}

// RecentChartPatterns returns the newest chart patterns.
func (a *Analyzer) RecentChartPatterns(count int) []domain.PatternResult {
	return a.chart.RecentPatterns(count)
}
