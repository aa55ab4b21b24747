package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketAnalyzer/internal/adapters/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", cfg.Symbol)
	assert.Equal(t, "1m", cfg.Timeframe)
	assert.Equal(t, logger.ParseLevel("INFO"), cfg.LogLevel)
	assert.Equal(t, 20, cfg.ShortMAPeriod)
	assert.Equal(t, 50, cfg.LongMAPeriod)
	assert.Equal(t, 14, cfg.RSIPeriod)
	assert.Equal(t, 26, cfg.MACDSlowPeriod)
	assert.InDelta(t, 2.0, cfg.BollingerStdDev, 1e-9)
	assert.InDelta(t, 0.5, cfg.PatternMinConfidence, 1e-9)
	assert.Equal(t, 10, cfg.OrderBlockMaxActive)
	assert.Equal(t, 20, cfg.FVGMaxGaps)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "ETHUSDT")
	t.Setenv("RSI_PERIOD", "21")
	t.Setenv("MA_TYPE", "ema")
	t.Setenv("STRUCTURE_MIN_SIGNIFICANCE", "0.4")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ETHUSDT", cfg.Symbol)
	assert.Equal(t, 21, cfg.RSIPeriod)
	assert.Equal(t, "ema", cfg.MAType)
	assert.InDelta(t, 0.4, cfg.StructureMinSignificance, 1e-9)
}

func TestLoadYAMLFileWithEnvPrecedence(t *testing.T) {
	content := []byte(`
symbol: SOLUSDT
timeframe: 5m
indicators:
  short_ma_period: 5
  long_ma_period: 15
  bollinger_std_dev: 1.5
patterns:
  min_confidence: 0.6
order_blocks:
  max_active: 4
`)
	path := filepath.Join(t.TempDir(), "analyzer.yaml")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SYMBOL", "BNBUSDT") // environment beats the file

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "BNBUSDT", cfg.Symbol)
	assert.Equal(t, "5m", cfg.Timeframe)
	assert.Equal(t, 5, cfg.ShortMAPeriod)
	assert.Equal(t, 15, cfg.LongMAPeriod)
	assert.InDelta(t, 1.5, cfg.BollingerStdDev, 1e-9)
	assert.InDelta(t, 0.6, cfg.PatternMinConfidence, 1e-9)
	assert.Equal(t, 4, cfg.OrderBlockMaxActive)
	assert.Equal(t, 14, cfg.RSIPeriod, "keys absent from the file keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoadCollectsValidationErrors(t *testing.T) {
	t.Setenv("SHORT_MA_PERIOD", "60")
	t.Setenv("MITIGATION_THRESHOLD", "1.5")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHORT_MA_PERIOD")
	assert.Contains(t, err.Error(), "MITIGATION_THRESHOLD")
}
