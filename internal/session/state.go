package session

import (
	"sort"

	"hlview/internal/domain"
	"hlview/internal/hl"
	"hlview/internal/market"
)

// State is the per-session mutable aggregate: positions, open orders
// and the projected book for the subscribed coin. It is owned by
// exactly one Engine and mutated only from that engine's goroutine,
// so no locking is needed. The published snapshot is a function of
// the latest value received on each channel, never of arrival order
// across channels.
type State struct {
	Wallet string
	Coin   string

	positions []domain.Position
	orders    map[int64]hl.WsOrderStatus
	book      []domain.OrderBookRow
}

// NewState creates an empty session state for one wallet and coin.
func NewState(wallet, coin string) *State {
	return &State{
		Wallet: wallet,
		Coin:   coin,
		orders: make(map[int64]hl.WsOrderStatus),
	}
}

// SeedOrders installs the one-shot REST snapshot of open orders taken
// before streaming starts. Seeded records are wrapped as "open" so the
// active-status filter treats them like streamed updates.
func (s *State) SeedOrders(raw []hl.BasicOrder) {
	for i := range raw {
		o := raw[i]
		s.orders[o.OID] = hl.WsOrderStatus{Order: &o, Status: "open", Wrapped: true}
	}
}

// ApplyAccountState replaces the position list wholesale from an
// account-state push.
func (s *State) ApplyAccountState(data hl.WebData2) {
	s.positions = market.ParsePositions(data.ClearinghouseState.AssetPositions)
}

// ApplyOrderUpdates upserts active orders and removes terminal ones.
// Bare records carry no status and are treated as live.
func (s *State) ApplyOrderUpdates(updates []hl.WsOrderStatus) {
	for _, upd := range updates {
		if upd.Order == nil {
			continue
		}
		if !upd.Wrapped || market.ActiveOrderStatuses[upd.Status] {
			s.orders[upd.Order.OID] = upd
		} else {
			delete(s.orders, upd.Order.OID)
		}
	}
}

// ApplyBook recomputes the projected book from a depth push.
func (s *State) ApplyBook(book hl.L2Book, maxLevels int) {
	s.book = market.MakeOrderbookPayload(book.Levels, maxLevels)
}

// OpenOrderCount returns the current size of the order map.
func (s *State) OpenOrderCount() int {
	return len(s.orders)
}

// Snapshot derives the published view. Open orders are re-derived from
// the order map with the active-status filter reapplied, sorted by oid
// for stable output. Empty collections marshal as arrays, not null.
func (s *State) Snapshot() domain.Snapshot {
	recs := make([]hl.WsOrderStatus, 0, len(s.orders))
	for _, rec := range s.orders {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].Order.OID < recs[j].Order.OID
	})

	snap := domain.Snapshot{
		Positions:  s.positions,
		OpenOrders: market.ParseOrders(recs),
		OrderBook:  s.book,
	}
	if snap.Positions == nil {
		snap.Positions = []domain.Position{}
	}
	if snap.OrderBook == nil {
		snap.OrderBook = []domain.OrderBookRow{}
	}
	return snap
}
