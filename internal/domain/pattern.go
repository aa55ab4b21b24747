package domain

import "time"

// PatternType groups pattern detectors by family.
type PatternType string

const (
	PatternCandlestick PatternType = "candlestick"
	PatternChart       PatternType = "chart"
)

// PatternSignal is the directional bias carried by a detected pattern.
type PatternSignal string

const (
	PatternBullish PatternSignal = "bullish"
	PatternBearish PatternSignal = "bearish"
	PatternNeutral PatternSignal = "neutral"
)

// PatternResult describes one detected pattern occurrence.
type PatternResult struct {
	PatternName string
	PatternType PatternType
	Signal      PatternSignal
	Confidence  float64 // 0.0 to 1.0
	Timestamp   time.Time
	StartIndex  int
	EndIndex    int
	KeyLevels   map[string]float64
	Metadata    map[string]interface{}
}
