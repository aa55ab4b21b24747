package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"marketAnalyzer/internal/adapters/logger"
)

// Config holds all engine configuration.
type Config struct {
	// Stream identity
	Symbol    string
	Timeframe string
	DataFile  string // CSV file consumed by the replay command

	// Logging
	LogLevel logger.LogLevel

	// Shared indicator settings
	MaxHistory  int
	PriceSource string

	// Moving averages
	ShortMAPeriod int
	LongMAPeriod  int
	MAType        string

	// Oscillators
	RSIPeriod            int
	RSIOverbought        float64
	RSIOversold          float64
	StochasticKPeriod    int
	StochasticDPeriod    int
	StochasticSmoothK    int
	StochasticOverbought float64
	StochasticOversold   float64
	WilliamsRPeriod      int
	CCIPeriod            int

	// MACD
	MACDFastPeriod   int
	MACDSlowPeriod   int
	MACDSignalPeriod int

	// Volatility
	BollingerPeriod int
	BollingerStdDev float64
	ATRPeriod       int

	// Pattern detection
	PatternMinCandles    int
	PatternMinConfidence float64
	LevelMinTouches      int

	// Market structure
	StructureLookback        int
	StructureMinSignificance float64

	// Order blocks
	OrderBlockMinSize   float64
	OrderBlockMaxActive int
	MitigationThreshold float64

	// Fair value gaps
	FVGMinSize float64
	FVGMaxGaps int
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and finally environment variable overrides (a .env file is
// honored when present). Validation errors are collected and reported
// together.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if errs := cfg.validate(); len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Symbol:    "BTCUSDT",
		Timeframe: "1m",
		DataFile:  "./data/candles.csv",
		LogLevel:  logger.ParseLevel("INFO"),

		MaxHistory:  1000,
		PriceSource: "close",

		ShortMAPeriod: 20,
		LongMAPeriod:  50,
		MAType:        "sma",

		RSIPeriod:            14,
		RSIOverbought:        70.0,
		RSIOversold:          30.0,
		StochasticKPeriod:    14,
		StochasticDPeriod:    3,
		StochasticSmoothK:    3,
		StochasticOverbought: 80.0,
		StochasticOversold:   20.0,
		WilliamsRPeriod:      14,
		CCIPeriod:            20,

		MACDFastPeriod:   12,
		MACDSlowPeriod:   26,
		MACDSignalPeriod: 9,

		BollingerPeriod: 20,
		BollingerStdDev: 2.0,
		ATRPeriod:       14,

		PatternMinCandles:    10,
		PatternMinConfidence: 0.5,
		LevelMinTouches:      3,

		StructureLookback:        20,
		StructureMinSignificance: 0.3,

		OrderBlockMinSize:   0.001,
		OrderBlockMaxActive: 10,
		MitigationThreshold: 0.5,

		FVGMinSize: 0.001,
		FVGMaxGaps: 20,
	}
}

// fileConfig mirrors Config with pointer fields so that keys absent from the
// YAML file leave the defaults untouched.
type fileConfig struct {
	Symbol    *string `yaml:"symbol"`
	Timeframe *string `yaml:"timeframe"`
	DataFile  *string `yaml:"data_file"`
	LogLevel  *string `yaml:"log_level"`

	Indicators struct {
		MaxHistory    *int     `yaml:"max_history"`
		PriceSource   *string  `yaml:"price_source"`
		ShortMAPeriod *int     `yaml:"short_ma_period"`
		LongMAPeriod  *int     `yaml:"long_ma_period"`
		MAType        *string  `yaml:"ma_type"`
		RSIPeriod     *int     `yaml:"rsi_period"`
		RSIOverbought *float64 `yaml:"rsi_overbought"`
		RSIOversold   *float64 `yaml:"rsi_oversold"`
		StochKPeriod  *int     `yaml:"stochastic_k_period"`
		StochDPeriod  *int     `yaml:"stochastic_d_period"`
		StochSmoothK  *int     `yaml:"stochastic_smooth_k"`
		StochOver     *float64 `yaml:"stochastic_overbought"`
		StochUnder    *float64 `yaml:"stochastic_oversold"`
		WilliamsR     *int     `yaml:"williams_r_period"`
		CCIPeriod     *int     `yaml:"cci_period"`
		MACDFast      *int     `yaml:"macd_fast_period"`
		MACDSlow      *int     `yaml:"macd_slow_period"`
		MACDSignal    *int     `yaml:"macd_signal_period"`
		BBPeriod      *int     `yaml:"bollinger_period"`
		BBStdDev      *float64 `yaml:"bollinger_std_dev"`
		ATRPeriod     *int     `yaml:"atr_period"`
	} `yaml:"indicators"`

	Patterns struct {
		MinCandles    *int     `yaml:"min_candles"`
		MinConfidence *float64 `yaml:"min_confidence"`
		MinTouches    *int     `yaml:"level_min_touches"`
	} `yaml:"patterns"`

	Structure struct {
		Lookback        *int     `yaml:"lookback"`
		MinSignificance *float64 `yaml:"min_significance"`
	} `yaml:"structure"`

	OrderBlocks struct {
		MinSize             *float64 `yaml:"min_size"`
		MaxActive           *int     `yaml:"max_active"`
		MitigationThreshold *float64 `yaml:"mitigation_threshold"`
	} `yaml:"order_blocks"`

	FairValueGaps struct {
		MinSize *float64 `yaml:"min_size"`
		MaxGaps *int     `yaml:"max_gaps"`
	} `yaml:"fair_value_gaps"`
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing yaml: %w", err)
	}

	setString(&c.Symbol, fc.Symbol)
	setString(&c.Timeframe, fc.Timeframe)
	setString(&c.DataFile, fc.DataFile)
	if fc.LogLevel != nil {
		c.LogLevel = logger.ParseLevel(*fc.LogLevel)
	}

	setInt(&c.MaxHistory, fc.Indicators.MaxHistory)
	setString(&c.PriceSource, fc.Indicators.PriceSource)
	setInt(&c.ShortMAPeriod, fc.Indicators.ShortMAPeriod)
	setInt(&c.LongMAPeriod, fc.Indicators.LongMAPeriod)
	setString(&c.MAType, fc.Indicators.MAType)
	setInt(&c.RSIPeriod, fc.Indicators.RSIPeriod)
	setFloat(&c.RSIOverbought, fc.Indicators.RSIOverbought)
	setFloat(&c.RSIOversold, fc.Indicators.RSIOversold)
	setInt(&c.StochasticKPeriod, fc.Indicators.StochKPeriod)
	setInt(&c.StochasticDPeriod, fc.Indicators.StochDPeriod)
	setInt(&c.StochasticSmoothK, fc.Indicators.StochSmoothK)
	setFloat(&c.StochasticOverbought, fc.Indicators.StochOver)
	setFloat(&c.StochasticOversold, fc.Indicators.StochUnder)
	setInt(&c.WilliamsRPeriod, fc.Indicators.WilliamsR)
	setInt(&c.CCIPeriod, fc.Indicators.CCIPeriod)
	setInt(&c.MACDFastPeriod, fc.Indicators.MACDFast)
	setInt(&c.MACDSlowPeriod, fc.Indicators.MACDSlow)
	setInt(&c.MACDSignalPeriod, fc.Indicators.MACDSignal)
	setInt(&c.BollingerPeriod, fc.Indicators.BBPeriod)
	setFloat(&c.BollingerStdDev, fc.Indicators.BBStdDev)
	setInt(&c.ATRPeriod, fc.Indicators.ATRPeriod)

	setInt(&c.PatternMinCandles, fc.Patterns.MinCandles)
	setFloat(&c.PatternMinConfidence, fc.Patterns.MinConfidence)
	setInt(&c.LevelMinTouches, fc.Patterns.MinTouches)

	setInt(&c.StructureLookback, fc.Structure.Lookback)
	setFloat(&c.StructureMinSignificance, fc.Structure.MinSignificance)

	setFloat(&c.OrderBlockMinSize, fc.OrderBlocks.MinSize)
	setInt(&c.OrderBlockMaxActive, fc.OrderBlocks.MaxActive)
	setFloat(&c.MitigationThreshold, fc.OrderBlocks.MitigationThreshold)

	setFloat(&c.FVGMinSize, fc.FairValueGaps.MinSize)
	setInt(&c.FVGMaxGaps, fc.FairValueGaps.MaxGaps)

	return nil
}

func (c *Config) applyEnv() {
	c.Symbol = getEnv("SYMBOL", c.Symbol)
	c.Timeframe = getEnv("TIMEFRAME", c.Timeframe)
	c.DataFile = getEnv("DATA_FILE", c.DataFile)
	if levelStr := getEnv("LOG_LEVEL", ""); levelStr != "" {
		c.LogLevel = logger.ParseLevel(levelStr)
	}

	c.MaxHistory = getEnvAsInt("MAX_HISTORY", c.MaxHistory)
	c.PriceSource = getEnv("PRICE_SOURCE", c.PriceSource)

	c.ShortMAPeriod = getEnvAsInt("SHORT_MA_PERIOD", c.ShortMAPeriod)
	c.LongMAPeriod = getEnvAsInt("LONG_MA_PERIOD", c.LongMAPeriod)
	c.MAType = getEnv("MA_TYPE", c.MAType)

	c.RSIPeriod = getEnvAsInt("RSI_PERIOD", c.RSIPeriod)
	c.RSIOverbought = getEnvAsFloat("RSI_OVERBOUGHT", c.RSIOverbought)
	c.RSIOversold = getEnvAsFloat("RSI_OVERSOLD", c.RSIOversold)
	c.StochasticKPeriod = getEnvAsInt("STOCHASTIC_K_PERIOD", c.StochasticKPeriod)
	c.StochasticDPeriod = getEnvAsInt("STOCHASTIC_D_PERIOD", c.StochasticDPeriod)
	c.StochasticSmoothK = getEnvAsInt("STOCHASTIC_SMOOTH_K", c.StochasticSmoothK)
	c.StochasticOverbought = getEnvAsFloat("STOCHASTIC_OVERBOUGHT", c.StochasticOverbought)
	c.StochasticOversold = getEnvAsFloat("STOCHASTIC_OVERSOLD", c.StochasticOversold)
	c.WilliamsRPeriod = getEnvAsInt("WILLIAMS_R_PERIOD", c.WilliamsRPeriod)
	c.CCIPeriod = getEnvAsInt("CCI_PERIOD", c.CCIPeriod)

	c.MACDFastPeriod = getEnvAsInt("MACD_FAST_PERIOD", c.MACDFastPeriod)
	c.MACDSlowPeriod = getEnvAsInt("MACD_SLOW_PERIOD", c.MACDSlowPeriod)
	c.MACDSignalPeriod = getEnvAsInt("MACD_SIGNAL_PERIOD", c.MACDSignalPeriod)

	c.BollingerPeriod = getEnvAsInt("BOLLINGER_PERIOD", c.BollingerPeriod)
	c.BollingerStdDev = getEnvAsFloat("BOLLINGER_STD_DEV", c.BollingerStdDev)
	c.ATRPeriod = getEnvAsInt("ATR_PERIOD", c.ATRPeriod)

	c.PatternMinCandles = getEnvAsInt("PATTERN_MIN_CANDLES", c.PatternMinCandles)
	c.PatternMinConfidence = getEnvAsFloat("PATTERN_MIN_CONFIDENCE", c.PatternMinConfidence)
	c.LevelMinTouches = getEnvAsInt("LEVEL_MIN_TOUCHES", c.LevelMinTouches)

	c.StructureLookback = getEnvAsInt("STRUCTURE_LOOKBACK", c.StructureLookback)
	c.StructureMinSignificance = getEnvAsFloat("STRUCTURE_MIN_SIGNIFICANCE", c.StructureMinSignificance)

	c.OrderBlockMinSize = getEnvAsFloat("ORDER_BLOCK_MIN_SIZE", c.OrderBlockMinSize)
	c.OrderBlockMaxActive = getEnvAsInt("ORDER_BLOCK_MAX_ACTIVE", c.OrderBlockMaxActive)
	c.MitigationThreshold = getEnvAsFloat("MITIGATION_THRESHOLD", c.MitigationThreshold)

	c.FVGMinSize = getEnvAsFloat("FVG_MIN_SIZE", c.FVGMinSize)
	c.FVGMaxGaps = getEnvAsInt("FVG_MAX_GAPS", c.FVGMaxGaps)
}

func (c *Config) validate() []string {
	var errs []string

	if c.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	if c.Timeframe == "" {
		errs = append(errs, "TIMEFRAME must be set")
	}
	if c.MaxHistory <= 0 {
		errs = append(errs, "MAX_HISTORY must be positive")
	}

	switch c.PriceSource {
	case "close", "open", "high", "low", "hl2", "hlc3", "ohlc4":
	default:
		errs = append(errs, fmt.Sprintf("unknown PRICE_SOURCE %q", c.PriceSource))
	}

	switch strings.ToLower(c.MAType) {
	case "sma", "ema", "wma", "hma":
	default:
		errs = append(errs, fmt.Sprintf("unknown MA_TYPE %q", c.MAType))
	}

	if c.ShortMAPeriod <= 0 || c.LongMAPeriod <= 0 || c.RSIPeriod <= 0 ||
		c.StochasticKPeriod <= 0 || c.WilliamsRPeriod <= 0 || c.CCIPeriod <= 0 ||
		c.BollingerPeriod <= 0 || c.ATRPeriod <= 0 {
		errs = append(errs, "indicator periods must be positive")
	}
	if c.ShortMAPeriod >= c.LongMAPeriod {
		errs = append(errs, "SHORT_MA_PERIOD must be less than LONG_MA_PERIOD")
	}
	if c.RSIOverbought <= c.RSIOversold || c.RSIOverbought > 100 || c.RSIOversold < 0 {
		errs = append(errs, "invalid RSI thresholds (overbought must be > oversold, between 0-100)")
	}
	if c.StochasticOverbought <= c.StochasticOversold || c.StochasticOverbought > 100 || c.StochasticOversold < 0 {
		errs = append(errs, "invalid stochastic thresholds (overbought must be > oversold, between 0-100)")
	}
	if c.MACDFastPeriod <= 0 || c.MACDSlowPeriod <= 0 || c.MACDSignalPeriod <= 0 {
		errs = append(errs, "MACD periods must be positive")
	} else if c.MACDFastPeriod >= c.MACDSlowPeriod {
		errs = append(errs, "MACD_FAST_PERIOD must be less than MACD_SLOW_PERIOD")
	}
	if c.BollingerStdDev <= 0 {
		errs = append(errs, "BOLLINGER_STD_DEV must be positive")
	}

	if c.PatternMinCandles <= 1 {
		errs = append(errs, "PATTERN_MIN_CANDLES must be greater than 1")
	}
	if c.PatternMinConfidence < 0 || c.PatternMinConfidence > 1 {
		errs = append(errs, "PATTERN_MIN_CONFIDENCE must be between 0.0 and 1.0")
	}
	if c.LevelMinTouches < 2 {
		errs = append(errs, "LEVEL_MIN_TOUCHES must be at least 2")
	}

	if c.StructureLookback < 5 {
		errs = append(errs, "STRUCTURE_LOOKBACK must be at least 5")
	}
	if c.StructureMinSignificance < 0 || c.StructureMinSignificance > 1 {
		errs = append(errs, "STRUCTURE_MIN_SIGNIFICANCE must be between 0.0 and 1.0")
	}

	if c.OrderBlockMinSize <= 0 {
		errs = append(errs, "ORDER_BLOCK_MIN_SIZE must be positive")
	}
	if c.OrderBlockMaxActive <= 0 {
		errs = append(errs, "ORDER_BLOCK_MAX_ACTIVE must be positive")
	}
	if c.MitigationThreshold <= 0 || c.MitigationThreshold > 1 {
		errs = append(errs, "MITIGATION_THRESHOLD must be between 0.0 and 1.0")
	}

	if c.FVGMinSize <= 0 {
		errs = append(errs, "FVG_MIN_SIZE must be positive")
	}
	if c.FVGMaxGaps <= 0 {
		errs = append(errs, "FVG_MAX_GAPS must be positive")
	}

	return errs
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
