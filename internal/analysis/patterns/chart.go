package patterns

import (
	"context"
	"fmt"
	"math"
	"sort"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

const (
	levelTolerance      = 0.001 // 0.1% clustering band
	levelProximity      = 0.02  // surface levels within 2% of price
	confidenceTolerance = 0.002 // 0.2% band when counting touches for confidence
	flatSlopeThreshold  = 0.001
	swingLookback       = 3
	triangleMinCandles  = 20
	triangleWindow      = 30
)

// TriangleType classifies a converging trend-line pair.
type TriangleType string

const (
	TriangleAscending   TriangleType = "Ascending"
	TriangleDescending  TriangleType = "Descending"
	TriangleSymmetrical TriangleType = "Symmetrical"
)

// Chart detects support/resistance levels and triangle formations.
type Chart struct {
	Base
	minTouches int
}

// NewChart creates a chart pattern detector. Zero minTouches defaults to 3
// and zero MinCandles to 10.
func NewChart(cfg Config, minTouches int, logger ports.Logger) (*Chart, error) {
	if cfg.MinCandles <= 0 {
		cfg.MinCandles = 10
	}
	if minTouches <= 0 {
		minTouches = 3
	}
	base, err := newBase("ChartPatterns", cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Chart{Base: base, minTouches: minTouches}, nil
}

// Update ingests one candle and returns the newly detected patterns.
func (c *Chart) Update(ctx context.Context, candle domain.Candle) []domain.PatternResult {
	return c.applyUpdate(ctx, candle, c.DetectPatterns)
}

// DetectPatterns scans for levels near the current price and, with enough
// history, triangle formations.
func (c *Chart) DetectPatterns(_ context.Context, candles []domain.Candle) []domain.PatternResult {
	if !validateCandles(candles, c.cfg.MinCandles) {
		return nil
	}

	patterns := c.detectLevels(candles)
	if len(candles) >= triangleMinCandles {
		patterns = append(patterns, c.detectTriangles(candles)...)
	}
	return patterns
}

// detectLevels clusters recent lows and highs into support and resistance
// levels and surfaces the ones close to the current price.
func (c *Chart) detectLevels(candles []domain.Candle) []domain.PatternResult {
	lookback := 50
	if len(candles) < lookback {
		lookback = len(candles)
	}
	supports, resistances := findLevels(candles, lookback, c.minTouches)

	currentPrice := candles[len(candles)-1].Close
	last := candles[len(candles)-1]

	var patterns []domain.PatternResult
	for _, support := range supports {
		distance := math.Abs(currentPrice-support) / currentPrice
		if distance > levelProximity {
			continue
		}
		patterns = append(patterns, domain.PatternResult{
			PatternName: "Support Level",
			PatternType: domain.PatternChart,
			Signal:      domain.PatternBullish,
			Confidence:  levelConfidence(candles, support, true),
			Timestamp:   last.Timestamp,
			StartIndex:  0,
			EndIndex:    len(candles) - 1,
			KeyLevels:   map[string]float64{"support": support, "current_price": currentPrice},
			Metadata: map[string]interface{}{
				"level_type":   "support",
				"distance_pct": distance * 100,
				"description":  fmt.Sprintf("Support level at %.4f", support),
			},
		})
	}
	for _, resistance := range resistances {
		distance := math.Abs(currentPrice-resistance) / currentPrice
		if distance > levelProximity {
			continue
		}
		patterns = append(patterns, domain.PatternResult{
			PatternName: "Resistance Level",
			PatternType: domain.PatternChart,
			Signal:      domain.PatternBearish,
			Confidence:  levelConfidence(candles, resistance, false),
			Timestamp:   last.Timestamp,
			StartIndex:  0,
			EndIndex:    len(candles) - 1,
			KeyLevels:   map[string]float64{"resistance": resistance, "current_price": currentPrice},
			Metadata: map[string]interface{}{
				"level_type":   "resistance",
				"distance_pct": distance * 100,
				"description":  fmt.Sprintf("Resistance level at %.4f", resistance),
			},
		})
	}
	return patterns
}

// findLevels returns lows touched at least minTouches times within the
// tolerance band as supports, and the same for highs as resistances.
// Supports sort ascending, resistances descending.
func findLevels(candles []domain.Candle, lookback, minTouches int) (supports, resistances []float64) {
	if len(candles) < lookback {
		return nil, nil
	}
	recent := candles[len(candles)-lookback:]

	lowSeen := make(map[float64]bool)
	highSeen := make(map[float64]bool)

	for _, candle := range recent {
		low := candle.Low
		touches := 0
		for _, other := range recent {
			if math.Abs(other.Low-low)/low <= levelTolerance {
				touches++
			}
		}
		if touches >= minTouches && !lowSeen[low] {
			lowSeen[low] = true
			supports = append(supports, low)
		}

		high := candle.High
		touches = 0
		for _, other := range recent {
			if math.Abs(other.High-high)/high <= levelTolerance {
				touches++
			}
		}
		if touches >= minTouches && !highSeen[high] {
			highSeen[high] = true
			resistances = append(resistances, high)
		}
	}

	sort.Float64s(supports)
	sort.Sort(sort.Reverse(sort.Float64Slice(resistances)))
	return supports, resistances
}

// levelConfidence counts touches of the level across all buffered candles,
// five touches saturating at full confidence.
func levelConfidence(candles []domain.Candle, level float64, isSupport bool) float64 {
	touches := 0
	for _, candle := range candles {
		price := candle.High
		if isSupport {
			price = candle.Low
		}
		if math.Abs(price-level)/level <= confidenceTolerance {
			touches++
		}
	}
	return math.Min(float64(touches)/5.0, 1.0)
}

func (c *Chart) detectTriangles(candles []domain.Candle) []domain.PatternResult {
	recent := candles
	if len(candles) > triangleWindow {
		recent = candles[len(candles)-triangleWindow:]
	}

	swingHighs := findSwingPoints(recent, true)
	swingLows := findSwingPoints(recent, false)
	if len(swingHighs) < 3 || len(swingLows) < 3 {
		return nil
	}

	highTrend, okHigh := fitTrendLine(swingHighs)
	lowTrend, okLow := fitTrendLine(swingLows)
	if !okHigh || !okLow {
		return nil
	}

	triangleType, ok := classifyTriangle(highTrend, lowTrend)
	if !ok {
		return nil
	}

	last := candles[len(candles)-1]
	return []domain.PatternResult{{
		PatternName: fmt.Sprintf("%s Triangle", triangleType),
		PatternType: domain.PatternChart,
		Signal:      triangleSignal(triangleType),
		Confidence:  triangleConfidence(highTrend, lowTrend),
		Timestamp:   last.Timestamp,
		StartIndex:  len(candles) - len(recent),
		EndIndex:    len(candles) - 1,
		KeyLevels: map[string]float64{
			"upper_slope":     highTrend.Slope,
			"upper_intercept": highTrend.Intercept,
			"lower_slope":     lowTrend.Slope,
			"lower_intercept": lowTrend.Intercept,
			"current_price":   last.Close,
		},
		Metadata: map[string]interface{}{
			"triangle_type": string(triangleType),
			"swing_highs":   len(swingHighs),
			"swing_lows":    len(swingLows),
		},
	}}
}

type swingPoint struct {
	index int
	value float64
}

// findSwingPoints returns local extrema over a +-3 bar window.
func findSwingPoints(candles []domain.Candle, highs bool) []swingPoint {
	var points []swingPoint
	for i := swingLookback; i < len(candles)-swingLookback; i++ {
		value := candles[i].Low
		if highs {
			value = candles[i].High
		}

		isSwing := true
		for j := i - swingLookback; j <= i+swingLookback; j++ {
			if j == i {
				continue
			}
			neighbor := candles[j].Low
			if highs {
				neighbor = candles[j].High
			}
			if (highs && value < neighbor) || (!highs && value > neighbor) {
				isSwing = false
				break
			}
		}
		if isSwing {
			points = append(points, swingPoint{index: i, value: value})
		}
	}
	return points
}

type trendLine struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	Points    int
}

// fitTrendLine runs an ordinary least-squares fit over the swing points.
func fitTrendLine(points []swingPoint) (trendLine, bool) {
	n := float64(len(points))
	if len(points) < 2 {
		return trendLine{}, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := float64(p.index)
		sumX += x
		sumY += p.value
		sumXY += x * p.value
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return trendLine{}, false
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	mean := sumY / n
	var ssRes, ssTot float64
	for _, p := range points {
		predicted := slope*float64(p.index) + intercept
		ssRes += (p.value - predicted) * (p.value - predicted)
		ssTot += (p.value - mean) * (p.value - mean)
	}
	rSquared := 0.0
	if ssTot != 0 {
		rSquared = 1 - ssRes/ssTot
	}

	return trendLine{Slope: slope, Intercept: intercept, RSquared: rSquared, Points: len(points)}, true
}

func classifyTriangle(high, low trendLine) (TriangleType, bool) {
	switch {
	case math.Abs(high.Slope) < flatSlopeThreshold && low.Slope > flatSlopeThreshold:
		return TriangleAscending, true
	case high.Slope < -flatSlopeThreshold && math.Abs(low.Slope) < flatSlopeThreshold:
		return TriangleDescending, true
	case high.Slope < -flatSlopeThreshold && low.Slope > flatSlopeThreshold:
		return TriangleSymmetrical, true
	default:
		return "", false
	}
}

func triangleSignal(t TriangleType) domain.PatternSignal {
	switch t {
	case TriangleAscending:
		return domain.PatternBullish
	case TriangleDescending:
		return domain.PatternBearish
	default:
		return domain.PatternNeutral
	}
}

// triangleConfidence blends fit quality with a bonus for more swing points.
func triangleConfidence(high, low trendLine) float64 {
	avgQuality := (high.RSquared + low.RSquared) / 2
	pointBonus := math.Min(float64(high.Points+low.Points)/10.0, 0.3)
	return math.Min(avgQuality+pointBonus, 1.0)
}
