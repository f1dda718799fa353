package market

import (
	"sort"

	"hlview/internal/domain"
	"hlview/internal/hl"

	"github.com/shopspring/decimal"
)

// DefaultBookDepth is the per-side level cap when none is configured.
const DefaultBookDepth = 20

var (
	two  = decimal.NewFromInt(2)
	tenK = decimal.NewFromInt(10_000)
)

// MakeOrderbookPayload computes the ranked, mid-relative book view.
// Both sides are truncated to maxLevels; if either side is then empty
// the view is empty, so a one-sided book is never published. Rows are
// sorted ascending by distance from mid, so the level closest to mid
// comes first regardless of side.
func MakeOrderbookPayload(levels [2][]hl.BookLevel, maxLevels int) []domain.OrderBookRow {
	if maxLevels <= 0 {
		maxLevels = DefaultBookDepth
	}
	bids, asks := levels[0], levels[1]
	if len(bids) > maxLevels {
		bids = bids[:maxLevels]
	}
	if len(asks) > maxLevels {
		asks = asks[:maxLevels]
	}
	if len(bids) == 0 || len(asks) == 0 {
		return []domain.OrderBookRow{}
	}

	mid := num(bids[0].Px).Add(num(asks[0].Px)).Div(two)
	if mid.IsZero() {
		return []domain.OrderBookRow{}
	}

	rows := make([]domain.OrderBookRow, 0, len(bids)+len(asks))
	for _, lvl := range bids {
		px := num(lvl.Px)
		rows = append(rows, domain.OrderBookRow{
			Side: domain.BookSideBid,
			Px:   px.InexactFloat64(),
			Sz:   num(lvl.Sz).InexactFloat64(),
			Bps:  mid.Sub(px).Div(mid).Mul(tenK).Round(2).InexactFloat64(),
		})
	}
	for _, lvl := range asks {
		px := num(lvl.Px)
		rows = append(rows, domain.OrderBookRow{
			Side: domain.BookSideAsk,
			Px:   px.InexactFloat64(),
			Sz:   num(lvl.Sz).InexactFloat64(),
			Bps:  px.Sub(mid).Div(mid).Mul(tenK).Round(2).InexactFloat64(),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Bps < rows[j].Bps
	})
	return rows
}
