package indicators

import (
	"testing"

	"marketAnalyzer/internal/domain"
)

func TestCCICalculation(t *testing.T) {
	cci, err := NewCCI(Config{Period: 3}, 0, 0, 0, testLogger())
	if err != nil {
		t.Fatalf("NewCCI() error = %v", err)
	}

	// Typical prices are close - 1/6 for candlesFromCloses geometry, so the
	// deviations come straight from the closes: mean 19.83, mean dev 20/3.
	results := feedAll(t, cci, candlesFromCloses(10, 20, 30))

	r := results[2]
	if r == nil {
		t.Fatal("expected a result at bar 2")
	}
	want := 10.0 / (0.015 * (20.0 / 3.0))
	if !almostEqual(r.Value, want, 1e-9) {
		t.Errorf("CCI = %v, want %v", r.Value, want)
	}
	if r.Signal != domain.SignalSell {
		t.Errorf("signal = %q at CCI %v, want sell", r.Signal, r.Value)
	}
	if !almostEqual(r.Confidence, want/200, 1e-9) {
		t.Errorf("confidence = %v, want %v", r.Confidence, want/200)
	}
}

func TestCCIZeroDeviation(t *testing.T) {
	cci, err := NewCCI(Config{Period: 3}, 0, 0, 0, testLogger())
	if err != nil {
		t.Fatalf("NewCCI() error = %v", err)
	}

	var r *domain.IndicatorResult
	for i := 0; i < 3; i++ {
		r = cci.Update(testCtx(), flatCandle(i, 100))
	}
	if r == nil {
		t.Fatal("expected a result after the window fills")
	}
	if r.Value != 0 {
		t.Errorf("CCI on flat window = %v, want 0", r.Value)
	}
	if r.Signal != domain.SignalHold {
		t.Errorf("signal = %q, want hold", r.Signal)
	}
	if r.Confidence != 0.1 {
		t.Errorf("confidence = %v in neutral zone, want 0.1", r.Confidence)
	}
}

func TestCCIOversold(t *testing.T) {
	cci, err := NewCCI(Config{Period: 4}, 0, 0, 0, testLogger())
	if err != nil {
		t.Fatalf("NewCCI() error = %v", err)
	}

	// In a 3-bar window a lone extreme bar deviates by exactly 1.5x the mean
	// deviation, pinning CCI to the -100 boundary where float rounding can
	// land on either side. Four bars with one collapse reach -133.3.
	results := feedAll(t, cci, candlesFromCloses(30, 28, 26, 6))
	last := results[3]
	if last == nil {
		t.Fatal("expected a result")
	}
	if last.Value > -120 {
		t.Fatalf("CCI = %v, want decisively below -100", last.Value)
	}
	if last.Signal != domain.SignalBuy {
		t.Errorf("signal = %q at CCI %v, want buy", last.Signal, last.Value)
	}
}
