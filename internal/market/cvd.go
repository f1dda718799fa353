package market

import (
	"sort"

	"hlview/internal/domain"

	"github.com/shopspring/decimal"
)

// CalculateCVD computes cumulative volume delta over a sequence of
// executions, optionally filtered to one coin. The input is copied and
// sorted ascending by time before the single accumulation pass, so
// re-running over the same input is idempotent and deterministic.
// Buys contribute +size to the delta, sells -size.
func CalculateCVD(execs []domain.Execution, coin string) domain.CVDReport {
	filtered := make([]domain.Execution, 0, len(execs))
	for _, e := range execs {
		if coin != "" && e.Coin != coin {
			continue
		}
		filtered = append(filtered, e)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Time < filtered[j].Time
	})

	rows := make([]domain.CVDRow, 0, len(filtered))
	cumDelta := decimal.Zero
	cumVolume := decimal.Zero
	for _, e := range filtered {
		sz := decimal.NewFromFloat(e.Sz)
		delta := sz
		if e.Side != domain.SideBuy {
			delta = sz.Neg()
		}
		cumDelta = cumDelta.Add(delta)
		cumVolume = cumVolume.Add(sz)

		rows = append(rows, domain.CVDRow{
			Time:             e.Time,
			Coin:             e.Coin,
			Px:               e.Px,
			Sz:               e.Sz,
			Side:             e.Side,
			Delta:            delta.InexactFloat64(),
			CumulativeDelta:  cumDelta.InexactFloat64(),
			CumulativeVolume: cumVolume.InexactFloat64(),
			Notional:         e.Notional,
		})
	}

	return domain.CVDReport{
		Rows:        rows,
		TotalDelta:  cumDelta.InexactFloat64(),
		TotalVolume: cumVolume.InexactFloat64(),
		Coin:        coin,
		TradeCount:  len(rows),
	}
}
