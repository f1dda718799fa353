package market

import (
	"reflect"
	"testing"

	"hlview/internal/domain"
)

func exec(tm int64, coin, side string, sz float64) domain.Execution {
	return domain.Execution{Time: tm, Coin: coin, Side: side, Px: 100, Sz: sz, Notional: 100 * sz}
}

func TestCalculateCVD_RunningTotals(t *testing.T) {
	execs := []domain.Execution{
		exec(1, "BTC", domain.SideBuy, 2),
		exec(2, "BTC", domain.SideSell, 1),
	}

	report := CalculateCVD(execs, "")

	if report.TradeCount != 2 {
		t.Fatalf("trade_count = %d, want 2", report.TradeCount)
	}
	if report.TotalDelta != 1 || report.TotalVolume != 3 {
		t.Errorf("totals = %v/%v, want 1/3", report.TotalDelta, report.TotalVolume)
	}

	wantDeltas := []float64{2, 1}
	wantVolumes := []float64{2, 3}
	for i, row := range report.Rows {
		if row.CumulativeDelta != wantDeltas[i] {
			t.Errorf("row %d cumulative_delta = %v, want %v", i, row.CumulativeDelta, wantDeltas[i])
		}
		if row.CumulativeVolume != wantVolumes[i] {
			t.Errorf("row %d cumulative_volume = %v, want %v", i, row.CumulativeVolume, wantVolumes[i])
		}
	}
}

func TestCalculateCVD_Idempotent(t *testing.T) {
	execs := []domain.Execution{
		exec(1, "BTC", domain.SideBuy, 2),
		exec(2, "BTC", domain.SideSell, 1),
		exec(3, "BTC", domain.SideBuy, 0.5),
	}

	first := CalculateCVD(execs, "")
	second := CalculateCVD(execs, "")
	if !reflect.DeepEqual(first, second) {
		t.Error("re-running over the same input should be deterministic")
	}
}

func TestCalculateCVD_SortsByTime(t *testing.T) {
	execs := []domain.Execution{
		exec(30, "BTC", domain.SideSell, 1),
		exec(10, "BTC", domain.SideBuy, 2),
		exec(20, "BTC", domain.SideBuy, 1),
	}

	report := CalculateCVD(execs, "")

	wantTimes := []int64{10, 20, 30}
	for i, row := range report.Rows {
		if row.Time != wantTimes[i] {
			t.Errorf("row %d time = %d, want %d", i, row.Time, wantTimes[i])
		}
	}
	if report.Rows[2].CumulativeDelta != 2 {
		t.Errorf("final cumulative_delta = %v, want 2", report.Rows[2].CumulativeDelta)
	}

	// The caller's slice is left untouched.
	if execs[0].Time != 30 {
		t.Error("input slice was reordered")
	}
}

func TestCalculateCVD_CoinFilter(t *testing.T) {
	execs := []domain.Execution{
		exec(1, "BTC", domain.SideBuy, 2),
		exec(2, "ETH", domain.SideBuy, 5),
		exec(3, "BTC", domain.SideSell, 1),
	}

	report := CalculateCVD(execs, "BTC")

	if report.TradeCount != 2 {
		t.Fatalf("trade_count = %d, want 2", report.TradeCount)
	}
	if report.Coin != "BTC" {
		t.Errorf("coin = %q", report.Coin)
	}
	if report.TotalDelta != 1 || report.TotalVolume != 3 {
		t.Errorf("totals = %v/%v, want 1/3", report.TotalDelta, report.TotalVolume)
	}
}

func TestCalculateCVD_Empty(t *testing.T) {
	report := CalculateCVD(nil, "")
	if report.TradeCount != 0 || len(report.Rows) != 0 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.TotalDelta != 0 || report.TotalVolume != 0 {
		t.Errorf("totals should be zero: %+v", report)
	}
}
