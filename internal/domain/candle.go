package domain

import "time"

// Candle represents a single OHLCV bar for a symbol and timeframe.
type Candle struct {
	Symbol    string    // Trading symbol
	Timeframe string    // Bar interval (e.g., "1m", "1h")
	Timestamp time.Time // Bar open time
	Open      float64   // Opening price
	High      float64   // Highest price
	Low       float64   // Lowest price
	Close     float64   // Closing price
	Volume    float64   // Traded volume
}

// IsValid reports whether all prices are positive and the OHLC ordering holds
// (low <= open/close <= high).
func (c Candle) IsValid() bool {
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return false
	}
	return c.Low <= c.Open && c.Open <= c.High &&
		c.Low <= c.Close && c.Close <= c.High
}

// IsBullish reports whether the candle closed above its open.
func (c Candle) IsBullish() bool {
	return c.Close > c.Open
}

// IsBearish reports whether the candle closed below its open.
func (c Candle) IsBearish() bool {
	return c.Close < c.Open
}

// BodySize returns the absolute size of the candle body.
func (c Candle) BodySize() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// UpperShadow returns the distance from the body top to the high.
func (c Candle) UpperShadow() float64 {
	if c.Open > c.Close {
		return c.High - c.Open
	}
	return c.High - c.Close
}

// LowerShadow returns the distance from the body bottom to the low.
func (c Candle) LowerShadow() float64 {
	if c.Open < c.Close {
		return c.Open - c.Low
	}
	return c.Close - c.Low
}

// TotalRange returns the high-to-low range of the candle.
func (c Candle) TotalRange() float64 {
	return c.High - c.Low
}

// HL2 returns the midpoint of high and low.
func (c Candle) HL2() float64 {
	return (c.High + c.Low) / 2
}

// HLC3 returns the typical price (high + low + close) / 3.
func (c Candle) HLC3() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// OHLC4 returns the average of all four prices.
func (c Candle) OHLC4() float64 {
	return (c.Open + c.High + c.Low + c.Close) / 4
}
