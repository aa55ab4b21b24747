package indicators

import (
	"context"
	"testing"

	"marketAnalyzer/internal/domain"
)

func TestNewMovingAverageValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		maType  MAType
		wantErr bool
	}{
		{"valid sma", Config{Period: 10}, SMA, false},
		{"valid ema", Config{Period: 10}, EMA, false},
		{"uppercase type accepted", Config{Period: 5}, MAType("WMA"), false},
		{"zero period", Config{Period: 0}, SMA, true},
		{"negative period", Config{Period: -3}, SMA, true},
		{"unknown type", Config{Period: 10}, MAType("vwap"), true},
		{"unknown price source", Config{Period: 10, PriceSource: "median"}, SMA, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMovingAverage(tt.cfg, tt.maType, testLogger())
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMovingAverage() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewMovingAverage(Config{Period: 10}, SMA, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestSMACalculation(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 3}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	candles := candlesFromCloses(10, 20, 30, 40, 50)
	results := feedAll(t, ma, candles)

	// No result until the window fills.
	if results[0] != nil || results[1] != nil {
		t.Error("expected nil results before the window fills")
	}

	want := []float64{20, 30, 40}
	for i, w := range want {
		r := results[i+2]
		if r == nil {
			t.Fatalf("result %d is nil", i+2)
		}
		if !almostEqual(r.Value, w, 1e-9) {
			t.Errorf("SMA at bar %d = %v, want %v", i+2, r.Value, w)
		}
	}

	if !ma.IsReady() {
		t.Error("indicator should be ready after period candles")
	}
}

func TestEMASeedAndRecurrence(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 3}, EMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	results := feedAll(t, ma, candlesFromCloses(10, 20, 30, 40))

	// First EMA seeds with the SMA of the first period prices.
	if results[2] == nil || !almostEqual(results[2].Value, 20, 1e-9) {
		t.Fatalf("EMA seed = %v, want 20", results[2])
	}

	// alpha = 2/(3+1) = 0.5, so next EMA = 40*0.5 + 20*0.5 = 30.
	if results[3] == nil || !almostEqual(results[3].Value, 30, 1e-9) {
		t.Fatalf("EMA recurrence = %v, want 30", results[3])
	}
}

func TestWMAWeighting(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 3}, WMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	results := feedAll(t, ma, candlesFromCloses(10, 20, 30))

	// (10*1 + 20*2 + 30*3) / 6 = 140/6
	want := 140.0 / 6.0
	if results[2] == nil || !almostEqual(results[2].Value, want, 1e-9) {
		t.Fatalf("WMA = %v, want %v", results[2], want)
	}
}

func TestHMARawComposite(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 4}, HMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	results := feedAll(t, ma, candlesFromCloses(10, 20, 30, 40))

	// half = WMA(2) of [30,40] = (30+80)/3; full = WMA(4) = (10+40+90+160)/10 = 30
	half := (30.0 + 80.0) / 3.0
	want := 2*half - 30.0
	if results[3] == nil || !almostEqual(results[3].Value, want, 1e-9) {
		t.Fatalf("HMA = %v, want %v", results[3], want)
	}
}

// A period-1 Hull MA has an empty half window, so no value can be produced.
func TestHMAPeriodOneProducesNoResult(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 1}, HMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	results := feedAll(t, ma, candlesFromCloses(10, 20, 30))
	for i, r := range results {
		if r != nil {
			t.Errorf("bar %d: HMA with period 1 = %v, want no result", i, r.Value)
		}
	}
}

func TestMovingAverageSignals(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 3}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	// Rising series: price above a rising MA after the first result.
	results := feedAll(t, ma, candlesFromCloses(10, 20, 30, 40, 50))

	if results[2].Signal != domain.SignalNone {
		t.Errorf("first result signal = %q, want none", results[2].Signal)
	}
	for i := 3; i < 5; i++ {
		if results[i].Signal != domain.SignalBuy {
			t.Errorf("bar %d signal = %q, want buy", i, results[i].Signal)
		}
	}

	// Falling series: price below a falling MA.
	ma.Reset()
	results = feedAll(t, ma, candlesFromCloses(50, 40, 30, 20, 10))
	for i := 3; i < 5; i++ {
		if results[i].Signal != domain.SignalSell {
			t.Errorf("bar %d signal = %q, want sell", i, results[i].Signal)
		}
	}
}

// A 30-bar linear ramp keeps the short MA above the long MA once both are
// producing values.
func TestShortMAAboveLongMAOnRamp(t *testing.T) {
	short, err := NewMovingAverage(Config{Period: 10}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}
	long, err := NewMovingAverage(Config{Period: 20}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 30; i++ {
		c := candleAt(i, 100+float64(i)*50.0/29.0)
		shortRes := short.Update(ctx, c)
		longRes := long.Update(ctx, c)
		if longRes == nil {
			continue
		}
		if shortRes == nil {
			t.Fatalf("bar %d: long MA ready before short MA", i)
		}
		if shortRes.Value <= longRes.Value {
			t.Errorf("bar %d: short MA %v <= long MA %v on rising ramp", i, shortRes.Value, longRes.Value)
		}
	}
}

func TestCrossSignal(t *testing.T) {
	fast, err := NewMovingAverage(Config{Period: 2}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}
	slow, err := NewMovingAverage(Config{Period: 4}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	// Downtrend then sharp reversal: the fast MA crosses above the slow MA.
	closes := []float64{50, 45, 40, 35, 30, 60, 90}
	ctx := context.Background()
	sawGolden := false
	for i, c := range candlesFromCloses(closes...) {
		fast.Update(ctx, c)
		slow.Update(ctx, c)
		if fast.CrossSignal(slow) == GoldenCross {
			sawGolden = true
			if i < 4 {
				t.Errorf("golden cross before slow MA had two results (bar %d)", i)
			}
		}
	}
	if !sawGolden {
		t.Error("expected a golden cross on the reversal")
	}

	if fast.CrossSignal(nil) != CrossNone {
		t.Error("cross against nil MA should be none")
	}
}

func TestTrendDirection(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 2}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	if _, ok := ma.TrendDirection(); ok {
		t.Error("trend should be unavailable with fewer than two results")
	}

	feedAll(t, ma, candlesFromCloses(10, 20, 30))
	dir, ok := ma.TrendDirection()
	if !ok || dir != TrendUp {
		t.Errorf("trend = %v, %v; want up, true", dir, ok)
	}
}

func TestCandleBufferBounded(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 3, MaxHistory: 10, MaxResults: 5}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		ma.Update(ctx, candleAt(i, 100+float64(i)))
	}

	if got := len(ma.Candles()); got != 10 {
		t.Errorf("candle buffer length = %d, want 10", got)
	}
	if got := len(ma.Results()); got != 5 {
		t.Errorf("result buffer length = %d, want 5", got)
	}

	// Oldest entries were dropped: the buffer holds the most recent candles.
	if got := ma.Candles()[0].Close; got != 140 {
		t.Errorf("oldest buffered close = %v, want 140", got)
	}
}

func TestMovingAverageReset(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 3}, EMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	feedAll(t, ma, candlesFromCloses(10, 20, 30, 40))
	ma.Reset()

	if ma.IsReady() {
		t.Error("indicator should not be ready after reset")
	}
	if ma.LastResult() != nil {
		t.Error("results should be cleared after reset")
	}

	// EMA state is gone too: the next full window reseeds from SMA.
	results := feedAll(t, ma, candlesFromCloses(10, 20, 30))
	if results[2] == nil || !almostEqual(results[2].Value, 20, 1e-9) {
		t.Errorf("EMA after reset = %v, want reseeded 20", results[2])
	}
}

func TestInvalidCandleSkipsResult(t *testing.T) {
	ma, err := NewMovingAverage(Config{Period: 3}, SMA, testLogger())
	if err != nil {
		t.Fatalf("NewMovingAverage() error = %v", err)
	}

	ctx := context.Background()
	ma.Update(ctx, candleAt(0, 10))
	ma.Update(ctx, candleAt(1, 20))

	bad := candleAt(2, 30)
	bad.Close = -1
	if got := ma.Update(ctx, bad); got != nil {
		t.Errorf("expected nil result for candle with non-positive price, got %v", got)
	}
}
