package ict

import (
	"context"
	"fmt"
	"math"
	"sort"

	"marketAnalyzer/internal/domain"
	"marketAnalyzer/internal/ports"
)

const (
	defaultStructureLookback = 20
	defaultMinSignificance   = 0.3
	defaultMaxHistory        = 1000

	// A clean break of structure needs a high-significance continuation.
	bosSignificance = 0.7
)

// MarketStructureAnalyzer identifies swing points, classifies them into
// higher highs / lower lows, and derives the prevailing trend along with
// break-of-structure and change-of-character events.
type MarketStructureAnalyzer struct {
	lookback        int
	minSignificance float64
	maxHistory      int

	candles      []domain.Candle
	lastAnalysis *domain.MarketStructure
	logger       ports.Logger
}

// NewMarketStructureAnalyzer creates a structure analyzer. A zero lookback
// defaults to 20 and a zero minSignificance to 0.3.
func NewMarketStructureAnalyzer(lookback int, minSignificance float64, logger ports.Logger) (*MarketStructureAnalyzer, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger is required for market structure analyzer", ports.ErrInvalidConfig)
	}
	if lookback == 0 {
		lookback = defaultStructureLookback
	}
	if lookback < 5 {
		return nil, fmt.Errorf("%w: structure lookback %d below minimum 5", ports.ErrInvalidConfig, lookback)
	}
	if minSignificance == 0 {
		minSignificance = defaultMinSignificance
	}
	if minSignificance < 0 || minSignificance > 1 {
		return nil, fmt.Errorf("%w: min significance %.2f outside [0, 1]", ports.ErrInvalidConfig, minSignificance)
	}

	return &MarketStructureAnalyzer{
		lookback:        lookback,
		minSignificance: minSignificance,
		maxHistory:      defaultMaxHistory,
		logger:          logger,
	}, nil
}

// Update ingests one candle and re-analyzes the buffered window.
func (m *MarketStructureAnalyzer) Update(ctx context.Context, candle domain.Candle) *domain.MarketStructure {
	m.candles = append(m.candles, candle)
	if len(m.candles) > m.maxHistory {
		m.candles = m.candles[len(m.candles)-m.maxHistory:]
	}
	return m.Analyze(ctx, m.candles)
}

// Analyze derives the market structure from the given candles. With fewer
// candles than the lookback it reports a sideways, zero-confidence structure.
func (m *MarketStructureAnalyzer) Analyze(_ context.Context, candles []domain.Candle) *domain.MarketStructure {
	if len(candles) < m.lookback {
		structure := &domain.MarketStructure{TrendDirection: domain.TrendSideways}
		m.lastAnalysis = structure
		return structure
	}

	swingHighs, swingLows := findSwings(candles)
	points := m.classifyStructure(swingHighs, swingLows)
	trend := trendFromPoints(points)
	lastBOS, lastCHoCH := findBOSAndCHoCH(points)

	structure := &domain.MarketStructure{
		TrendDirection: trend,
		Points:         points,
		LastBOS:        lastBOS,
		LastCHoCH:      lastCHoCH,
		Confidence:     structureConfidence(points, trend),
	}
	m.lastAnalysis = structure
	return structure
}

// Reset clears the candle buffer and the last analysis.
func (m *MarketStructureAnalyzer) Reset() {
	m.candles = nil
	m.lastAnalysis = nil
}

// IsReady reports whether enough candles are buffered for a full analysis.
func (m *MarketStructureAnalyzer) IsReady() bool { return len(m.candles) >= m.lookback }

// CurrentTrend returns the trend from the most recent analysis.
func (m *MarketStructureAnalyzer) CurrentTrend() domain.TrendDirection {
	if m.lastAnalysis == nil {
		return domain.TrendSideways
	}
	return m.lastAnalysis.TrendDirection
}

// StructureSummary returns a compact view of the last analysis.
func (m *MarketStructureAnalyzer) StructureSummary() map[string]interface{} {
	if m.lastAnalysis == nil {
		return map[string]interface{}{}
	}

	summary := map[string]interface{}{
		"trend_direction":        string(m.lastAnalysis.TrendDirection),
		"structure_points_count": len(m.lastAnalysis.Points),
		"confidence":             m.lastAnalysis.Confidence,
	}
	if m.lastAnalysis.LastBOS != nil {
		summary["last_bos"] = string(m.lastAnalysis.LastBOS.Type)
	}
	if m.lastAnalysis.LastCHoCH != nil {
		summary["last_choch"] = string(m.lastAnalysis.LastCHoCH.Type)
	}
	return summary
}

type swing struct {
	candle domain.Candle
	price  float64
}

// findSwings returns strict local extrema over a +-2 bar window.
func findSwings(candles []domain.Candle) (highs, lows []swing) {
	for i := 2; i < len(candles)-2; i++ {
		h := candles[i].High
		if h > candles[i-1].High && h > candles[i-2].High &&
			h > candles[i+1].High && h > candles[i+2].High {
			highs = append(highs, swing{candle: candles[i], price: h})
		}

		l := candles[i].Low
		if l < candles[i-1].Low && l < candles[i-2].Low &&
			l < candles[i+1].Low && l < candles[i+2].Low {
			lows = append(lows, swing{candle: candles[i], price: l})
		}
	}
	return highs, lows
}

// classifyStructure compares consecutive swings of the same kind and keeps
// the points whose significance clears the floor, sorted by time.
func (m *MarketStructureAnalyzer) classifyStructure(swingHighs, swingLows []swing) []domain.StructurePoint {
	var points []domain.StructurePoint

	for i := 1; i < len(swingHighs); i++ {
		prev, curr := swingHighs[i-1], swingHighs[i]
		structureType := domain.StructureLowerHigh
		significance := significanceOf(prev.price, curr.price)
		if curr.price > prev.price {
			structureType = domain.StructureHigherHigh
			significance = significanceOf(curr.price, prev.price)
		}
		if significance >= m.minSignificance {
			points = append(points, domain.StructurePoint{
				Timestamp:    curr.candle.Timestamp,
				Price:        curr.price,
				Type:         structureType,
				Significance: significance,
				Confirmed:    true,
			})
		}
	}

	for i := 1; i < len(swingLows); i++ {
		prev, curr := swingLows[i-1], swingLows[i]
		structureType := domain.StructureLowerLow
		significance := significanceOf(prev.price, curr.price)
		if curr.price > prev.price {
			structureType = domain.StructureHigherLow
			significance = significanceOf(curr.price, prev.price)
		}
		if significance >= m.minSignificance {
			points = append(points, domain.StructurePoint{
				Timestamp:    curr.candle.Timestamp,
				Price:        curr.price,
				Type:         structureType,
				Significance: significance,
				Confirmed:    true,
			})
		}
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

// significanceOf normalizes the percentage difference between two prices,
// saturating at a 10% move.
func significanceOf(price1, price2 float64) float64 {
	if price2 == 0 {
		return 0
	}
	return math.Min(math.Abs(price1-price2)/price2/0.1, 1.0)
}

// trendFromPoints takes a majority vote over the last 10 structure points.
// A direction wins only with more than 1.5 times the opposing count.
func trendFromPoints(points []domain.StructurePoint) domain.TrendDirection {
	if len(points) == 0 {
		return domain.TrendSideways
	}

	recent := points
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	bullish, bearish := 0, 0
	for _, p := range recent {
		if p.Type.IsBullish() {
			bullish++
		} else if p.Type.IsBearish() {
			bearish++
		}
	}

	switch {
	case float64(bullish) > float64(bearish)*1.5:
		return domain.TrendBullish
	case float64(bearish) > float64(bullish)*1.5:
		return domain.TrendBearish
	default:
		return domain.TrendSideways
	}
}

// findBOSAndCHoCH scans the last four points for a high-significance
// same-type continuation (BOS) and a direction-class reversal (CHoCH).
func findBOSAndCHoCH(points []domain.StructurePoint) (lastBOS, lastCHoCH *domain.StructurePoint) {
	if len(points) < 4 {
		return nil, nil
	}
	recent := points[len(points)-4:]

	for i := 1; i < len(recent); i++ {
		prev, curr := recent[i-1], recent[i]

		sameContinuation := (prev.Type == domain.StructureHigherHigh && curr.Type == domain.StructureHigherHigh) ||
			(prev.Type == domain.StructureLowerLow && curr.Type == domain.StructureLowerLow)
		if sameContinuation && curr.Significance > bosSignificance {
			point := curr
			lastBOS = &point
		}
	}

	for i := 1; i < len(recent); i++ {
		prev, curr := recent[i-1], recent[i]
		if (prev.Type.IsBullish() && curr.Type.IsBearish()) ||
			(prev.Type.IsBearish() && curr.Type.IsBullish()) {
			point := curr
			lastCHoCH = &point
		}
	}

	return lastBOS, lastCHoCH
}

// structureConfidence blends point count, trend clarity and the average
// significance of the last five points.
func structureConfidence(points []domain.StructurePoint, trend domain.TrendDirection) float64 {
	if len(points) == 0 {
		return 0
	}

	confidence := math.Min(float64(len(points))/10.0, 0.5)
	if trend != domain.TrendSideways {
		confidence += 0.3
	}

	recent := points
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	total := 0.0
	for _, p := range recent {
		total += p.Significance
	}
	confidence += total / float64(len(recent)) * 0.2

	return math.Min(confidence, 1.0)
}
