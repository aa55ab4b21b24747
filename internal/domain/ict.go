package domain

import "time"

// TrendDirection is the prevailing market direction derived from structure.
type TrendDirection string

const (
	TrendBullish  TrendDirection = "bullish"
	TrendBearish  TrendDirection = "bearish"
	TrendSideways TrendDirection = "sideways"
)

// StructureType classifies a market structure point.
type StructureType string

const (
	StructureHigherHigh StructureType = "higher_high"
	StructureLowerHigh  StructureType = "lower_high"
	StructureHigherLow  StructureType = "higher_low"
	StructureLowerLow   StructureType = "lower_low"
)

// IsBullish reports whether the structure type supports an uptrend.
func (s StructureType) IsBullish() bool {
	return s == StructureHigherHigh || s == StructureHigherLow
}

// IsBearish reports whether the structure type supports a downtrend.
func (s StructureType) IsBearish() bool {
	return s == StructureLowerHigh || s == StructureLowerLow
}

// StructurePoint is one classified swing in the market structure.
type StructurePoint struct {
	Timestamp    time.Time
	Price        float64
	Type         StructureType
	Significance float64 // 0.0 to 1.0, 10% move saturates
	Confirmed    bool
}

// MarketStructure is the full structure analysis for the current window.
type MarketStructure struct {
	TrendDirection TrendDirection
	Points         []StructurePoint
	LastBOS        *StructurePoint // most recent break of structure
	LastCHoCH      *StructurePoint // most recent change of character
	Confidence     float64
}

// OrderBlockType is the direction an order block supports.
type OrderBlockType string

const (
	OrderBlockBullish OrderBlockType = "bullish"
	OrderBlockBearish OrderBlockType = "bearish"
)

// OrderBlockStatus is the lifecycle state of an order block.
type OrderBlockStatus string

const (
	OrderBlockActive      OrderBlockStatus = "active"
	OrderBlockMitigated   OrderBlockStatus = "mitigated"
	OrderBlockInvalidated OrderBlockStatus = "invalidated"
)

// OrderBlock is a price region created by a strong institutional move, used
// as future support or resistance.
type OrderBlock struct {
	ID              string
	Timestamp       time.Time
	Type            OrderBlockType
	High            float64
	Low             float64
	Open            float64
	Close           float64
	Volume          float64
	Strength        float64 // 0.0 to 1.0
	Status          OrderBlockStatus
	MitigationCount int
	LastTest        time.Time
}

// Range returns the block's price span.
func (b OrderBlock) Range() float64 { return b.High - b.Low }

// OrderBlockSignalType names the interaction that produced a signal.
type OrderBlockSignalType string

const (
	OrderBlockEntry  OrderBlockSignalType = "entry"
	OrderBlockRetest OrderBlockSignalType = "retest"
)

// OrderBlockSignal is a trading signal generated from an order block.
type OrderBlockSignal struct {
	Timestamp  time.Time
	Block      OrderBlock
	SignalType OrderBlockSignalType
	Price      float64
	Confidence float64
	StopLoss   float64
	TakeProfit float64
}

// FVGType is the direction of a fair value gap.
type FVGType string

const (
	FVGBullish FVGType = "bullish"
	FVGBearish FVGType = "bearish"
)

// FVGStatus is the fill state of a fair value gap.
type FVGStatus string

const (
	FVGActive          FVGStatus = "active"
	FVGPartiallyFilled FVGStatus = "partially_filled"
	FVGFilled          FVGStatus = "filled"
)

// FairValueGap is a three-candle price imbalance expected to attract a
// retracement fill.
type FairValueGap struct {
	ID             string
	Timestamp      time.Time
	Type           FVGType
	High           float64
	Low            float64
	GapSize        float64
	Strength       float64 // 0.0 to 1.0
	Status         FVGStatus
	FillPercentage float64
	LastTest       time.Time
}

// FVGSignal is a retracement signal targeting an unfilled gap.
type FVGSignal struct {
	Timestamp  time.Time
	GapID      string
	Direction  TrendDirection
	TargetHigh float64
	TargetLow  float64
	Strength   float64
}
