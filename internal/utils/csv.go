package utils

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"marketAnalyzer/internal/domain"
)

// WriteCandlesToCSV writes candles as timestamp,open,high,low,close,volume
// rows with a header, timestamps in RFC3339.
func WriteCandlesToCSV(candles []domain.Candle, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume"})

	for _, c := range candles {
		writer.Write([]string{
			c.Timestamp.Format(time.RFC3339),
			strconv.FormatFloat(c.Open, 'f', -1, 64),
			strconv.FormatFloat(c.High, 'f', -1, 64),
			strconv.FormatFloat(c.Low, 'f', -1, 64),
			strconv.FormatFloat(c.Close, 'f', -1, 64),
			strconv.FormatFloat(c.Volume, 'f', -1, 64),
		})
	}
	return writer.Error()
}

// ReadCandlesFromCSV reads candles written by WriteCandlesToCSV. Timestamps
// may be RFC3339 or unix milliseconds. Symbol and timeframe are stamped onto
// every candle since the file does not carry them.
func ReadCandlesFromCSV(filename, symbol, timeframe string) ([]domain.Candle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	// Skip header
	candles := make([]domain.Candle, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 6 {
			return nil, fmt.Errorf("row %d: expected 6 fields, got %d", i+2, len(record))
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}

		values := make([]float64, 5)
		for j, field := range record[1:6] {
			values[j], err = strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid number %q: %w", i+2, field, err)
			}
		}

		candles = append(candles, domain.Candle{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: ts,
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}
	return candles, nil
}

func parseTimestamp(field string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, field); err == nil {
		return ts, nil
	}
	millis, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", field)
	}
	return time.UnixMilli(millis).UTC(), nil
}
