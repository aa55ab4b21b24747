package domain

import "time"

// Signal represents the trading bias emitted alongside an indicator value.
type Signal string

const (
	SignalNone Signal = ""
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"

	// Volatility classifications emitted by range-based indicators.
	SignalHighVolatility   Signal = "high_volatility"
	SignalLowVolatility    Signal = "low_volatility"
	SignalNormalVolatility Signal = "normal_volatility"
)

// IndicatorResult is one computed indicator value for one bar.
// Scalar indicators fill Value; composite indicators (MACD, Bollinger,
// Stochastic) fill Values with named sub-values instead.
type IndicatorResult struct {
	Timestamp  time.Time
	Value      float64
	Values     map[string]float64
	Signal     Signal
	Confidence float64 // 0.0 to 1.0
	Metadata   map[string]interface{}
}

// IsComposite reports whether the result carries named sub-values.
func (r *IndicatorResult) IsComposite() bool {
	return len(r.Values) > 0
}
