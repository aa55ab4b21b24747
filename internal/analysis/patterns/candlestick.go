package patterns

import (
	"context"
	"math"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

// Candlestick detects single-bar and two-bar candlestick formations: Doji,
// Hammer, Shooting Star, Spinning Top, Engulfing and Harami.
type Candlestick struct {
	Base
}

// NewCandlestick creates a candlestick pattern detector.
func NewCandlestick(cfg Config, logger ports.Logger) (*Candlestick, error) {
	if cfg.MinCandles <= 0 {
		cfg.MinCandles = 1
	}
	base, err := newBase("CandlestickPatterns", cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Candlestick{Base: base}, nil
}

// Update ingests one candle and returns the newly detected patterns.
func (c *Candlestick) Update(ctx context.Context, candle domain.Candle) []domain.PatternResult {
	return c.applyUpdate(ctx, candle, c.DetectPatterns)
}

// DetectPatterns scans for formations ending on the last candle.
func (c *Candlestick) DetectPatterns(_ context.Context, candles []domain.Candle) []domain.PatternResult {
	if !validateCandles(candles, 1) {
		return nil
	}

	var patterns []domain.PatternResult
	patterns = append(patterns, c.detectSingle(candles)...)
	if len(candles) >= 2 {
		patterns = append(patterns, c.detectDouble(candles)...)
	}
	return patterns
}

func (c *Candlestick) detectSingle(candles []domain.Candle) []domain.PatternResult {
	current := candles[len(candles)-1]
	index := len(candles) - 1

	body := current.BodySize()
	upper := current.UpperShadow()
	lower := current.LowerShadow()
	total := current.TotalRange()
	if total == 0 {
		return nil
	}

	var patterns []domain.PatternResult
	if p := detectDoji(current, index, body, total); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectHammer(current, index, body, upper, lower, total); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectShootingStar(current, index, body, upper, lower, total); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectSpinningTop(current, index, body, upper, lower, total); p != nil {
		patterns = append(patterns, *p)
	}
	return patterns
}

func (c *Candlestick) detectDouble(candles []domain.Candle) []domain.PatternResult {
	previous := candles[len(candles)-2]
	current := candles[len(candles)-1]
	index := len(candles) - 1

	var patterns []domain.PatternResult
	if p := detectEngulfing(previous, current, index); p != nil {
		patterns = append(patterns, *p)
	}
	if p := detectHarami(previous, current, index); p != nil {
		patterns = append(patterns, *p)
	}
	return patterns
}

// detectDoji flags a body of at most 5% of the range. Smaller bodies score
// higher.
func detectDoji(candle domain.Candle, index int, body, total float64) *domain.PatternResult {
	bodyRatio := body / total
	if bodyRatio > 0.05 {
		return nil
	}
	return &domain.PatternResult{
		PatternName: "Doji",
		PatternType: domain.PatternCandlestick,
		Signal:      domain.PatternNeutral,
		Confidence:  1.0 - bodyRatio/0.05,
		Timestamp:   candle.Timestamp,
		StartIndex:  index,
		EndIndex:    index,
		KeyLevels: map[string]float64{
			"open":  candle.Open,
			"close": candle.Close,
			"high":  candle.High,
			"low":   candle.Low,
		},
		Metadata: map[string]interface{}{
			"body_ratio": bodyRatio,
		},
	}
}

// detectHammer requires the body in the upper part of the range, a lower
// shadow of at least twice the body and almost no upper shadow.
func detectHammer(candle domain.Candle, index int, body, upper, lower, total float64) *domain.PatternResult {
	if body == 0 {
		return nil
	}

	bodyPosition := (math.Min(candle.Open, candle.Close) - candle.Low) / total
	lowerRatio := lower / body
	upperRatio := upper / body

	if bodyPosition < 0.6 || lowerRatio < 2.0 || upperRatio > 0.5 {
		return nil
	}
	return &domain.PatternResult{
		PatternName: "Hammer",
		PatternType: domain.PatternCandlestick,
		Signal:      domain.PatternBullish,
		Confidence:  math.Min(lowerRatio/3.0, 1.0),
		Timestamp:   candle.Timestamp,
		StartIndex:  index,
		EndIndex:    index,
		KeyLevels: map[string]float64{
			"support":   candle.Low,
			"body_low":  math.Min(candle.Open, candle.Close),
			"body_high": math.Max(candle.Open, candle.Close),
		},
		Metadata: map[string]interface{}{
			"lower_shadow_ratio": lowerRatio,
		},
	}
}

// detectShootingStar is the bearish mirror of the hammer: body low in the
// range, long upper shadow, almost no lower shadow.
func detectShootingStar(candle domain.Candle, index int, body, upper, lower, total float64) *domain.PatternResult {
	if body == 0 {
		return nil
	}

	bodyPosition := (math.Max(candle.Open, candle.Close) - candle.Low) / total
	upperRatio := upper / body
	lowerRatio := lower / body

	if bodyPosition > 0.4 || upperRatio < 2.0 || lowerRatio > 0.5 {
		return nil
	}
	return &domain.PatternResult{
		PatternName: "Shooting Star",
		PatternType: domain.PatternCandlestick,
		Signal:      domain.PatternBearish,
		Confidence:  math.Min(upperRatio/3.0, 1.0),
		Timestamp:   candle.Timestamp,
		StartIndex:  index,
		EndIndex:    index,
		KeyLevels: map[string]float64{
			"resistance": candle.High,
			"body_low":   math.Min(candle.Open, candle.Close),
			"body_high":  math.Max(candle.Open, candle.Close),
		},
		Metadata: map[string]interface{}{
			"upper_shadow_ratio": upperRatio,
		},
	}
}

// detectSpinningTop flags a small body flanked by shadows at least its size
// on both ends.
func detectSpinningTop(candle domain.Candle, index int, body, upper, lower, total float64) *domain.PatternResult {
	if body == 0 {
		return nil
	}

	bodyRatio := body / total
	if bodyRatio > 0.3 || upper/body < 1.0 || lower/body < 1.0 {
		return nil
	}
	return &domain.PatternResult{
		PatternName: "Spinning Top",
		PatternType: domain.PatternCandlestick,
		Signal:      domain.PatternNeutral,
		Confidence:  1.0 - bodyRatio,
		Timestamp:   candle.Timestamp,
		StartIndex:  index,
		EndIndex:    index,
		KeyLevels: map[string]float64{
			"high":     candle.High,
			"low":      candle.Low,
			"body_mid": (candle.Open + candle.Close) / 2,
		},
		Metadata: map[string]interface{}{
			"body_ratio": bodyRatio,
		},
	}
}

// detectEngulfing flags a bar of one color whose body fully contains and
// exceeds the previous bar's opposite-color body.
func detectEngulfing(previous, current domain.Candle, index int) *domain.PatternResult {
	prevBody := previous.BodySize()
	currBody := current.BodySize()

	sizeRatio := 1.0
	if prevBody > 0 {
		sizeRatio = currBody / prevBody
	}

	if previous.IsBearish() && current.IsBullish() &&
		current.Open < previous.Close && current.Close > previous.Open {
		return &domain.PatternResult{
			PatternName: "Bullish Engulfing",
			PatternType: domain.PatternCandlestick,
			Signal:      domain.PatternBullish,
			Confidence:  math.Min(sizeRatio/2.0, 1.0),
			Timestamp:   current.Timestamp,
			StartIndex:  index - 1,
			EndIndex:    index,
			KeyLevels: map[string]float64{
				"support":     math.Min(previous.Low, current.Low),
				"engulf_low":  previous.Close,
				"engulf_high": previous.Open,
			},
			Metadata: map[string]interface{}{
				"size_ratio": sizeRatio,
			},
		}
	}

	if previous.IsBullish() && current.IsBearish() &&
		current.Open > previous.Close && current.Close < previous.Open {
		return &domain.PatternResult{
			PatternName: "Bearish Engulfing",
			PatternType: domain.PatternCandlestick,
			Signal:      domain.PatternBearish,
			Confidence:  math.Min(sizeRatio/2.0, 1.0),
			Timestamp:   current.Timestamp,
			StartIndex:  index - 1,
			EndIndex:    index,
			KeyLevels: map[string]float64{
				"resistance":  math.Max(previous.High, current.High),
				"engulf_low":  previous.Open,
				"engulf_high": previous.Close,
			},
			Metadata: map[string]interface{}{
				"size_ratio": sizeRatio,
			},
		}
	}

	return nil
}

// detectHarami flags a bar whose body sits entirely inside the previous
// bar's body. The signal reverses the previous bar's color.
func detectHarami(previous, current domain.Candle, index int) *domain.PatternResult {
	outerLow := math.Min(previous.Open, previous.Close)
	outerHigh := math.Max(previous.Open, previous.Close)

	inside := current.Open > outerLow && current.Open < outerHigh &&
		current.Close > outerLow && current.Close < outerHigh
	if !inside {
		return nil
	}

	sizeRatio := 0.0
	if prevBody := previous.BodySize(); prevBody > 0 {
		sizeRatio = current.BodySize() / prevBody
	}

	name := "Bearish Harami"
	signal := domain.PatternBearish
	if previous.IsBearish() {
		name = "Bullish Harami"
		signal = domain.PatternBullish
	}

	return &domain.PatternResult{
		PatternName: name,
		PatternType: domain.PatternCandlestick,
		Signal:      signal,
		Confidence:  1.0 - sizeRatio,
		Timestamp:   current.Timestamp,
		StartIndex:  index - 1,
		EndIndex:    index,
		KeyLevels: map[string]float64{
			"outer_high": previous.High,
			"outer_low":  previous.Low,
			"inner_high": current.High,
			"inner_low":  current.Low,
		},
		Metadata: map[string]interface{}{
			"size_ratio": sizeRatio,
		},
	}
}
