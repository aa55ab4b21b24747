package ports

import "errors"

// Standard application-level errors.
// Analysis components wrap these so callers can test failure modes with
// errors.Is instead of string matching.
var (
	ErrInvalidConfig    = errors.New("invalid or missing configuration")
	ErrInvalidCandle    = errors.New("candle has non-positive or inconsistent prices")
	ErrUnknownPriceType = errors.New("unknown price source")
)
