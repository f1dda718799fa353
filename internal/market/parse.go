package market

import (
	"fmt"
	"log/slog"

	"hlview/internal/domain"
	"hlview/internal/hl"

	"github.com/shopspring/decimal"
)

// ActiveOrderStatuses are the lifecycle statuses considered still
// live/working. Anything else removes the order from the open set.
var ActiveOrderStatuses = map[string]bool{
	"open":       true,
	"resting":    true,
	"pending":    true,
	"openActive": true,
}

// num coerces the venue's string-encoded numerics. Absent or garbage
// values become zero, matching the upstream payload contract.
func num(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParsePositions normalizes raw position slots. Slots without an open
// position sub-record are skipped; output order follows input order.
func ParsePositions(slots []hl.AssetPosition) []domain.Position {
	out := make([]domain.Position, 0, len(slots))
	for _, slot := range slots {
		p := slot.Position
		if p == nil || (p.Coin == "" && p.Szi == "") {
			continue
		}
		out = append(out, domain.Position{
			Asset:         p.Coin,
			Size:          num(p.Szi).InexactFloat64(),
			EntryPrice:    num(p.EntryPx).InexactFloat64(),
			UnrealizedPnl: num(p.UnrealizedPnl).InexactFloat64(),
			Leverage:      p.Leverage.Value,
		})
	}
	return out
}

// ParseOrder normalizes one raw order record. A record missing any
// required field yields a BadRecord error; callers skip it and move on.
func ParseOrder(o *hl.BasicOrder) (domain.Order, error) {
	if o == nil {
		return domain.Order{}, domain.NewSessionError(domain.BadRecord, "parse_order", fmt.Errorf("%w: order", domain.ErrMissingField))
	}
	if o.OID == 0 || o.Coin == "" || o.Side == "" || o.LimitPx == "" || o.Sz == "" || o.Timestamp == 0 {
		return domain.Order{}, domain.NewSessionError(domain.BadRecord, "parse_order",
			fmt.Errorf("%w: oid=%d coin=%q", domain.ErrMissingField, o.OID, o.Coin))
	}

	side := domain.SideSell
	if o.Side == "B" {
		side = domain.SideBuy
	}
	return domain.Order{
		OID:   o.OID,
		Coin:  o.Coin,
		Side:  side,
		Price: num(o.LimitPx).InexactFloat64(),
		Size:  num(o.Sz).InexactFloat64(),
		TS:    o.Timestamp,
	}, nil
}

// ParseOrders normalizes a batch of order records. Status-wrapped
// records whose status is not active are dropped before unwrapping;
// bare records pass straight through. A malformed record is skipped,
// never fatal to the batch.
func ParseOrders(raw []hl.WsOrderStatus) []domain.Order {
	out := make([]domain.Order, 0, len(raw))
	for _, rec := range raw {
		if rec.Wrapped && !ActiveOrderStatuses[rec.Status] {
			continue
		}
		o, err := ParseOrder(rec.Order)
		if err != nil {
			slog.Warn("skipping malformed order record", slog.Any("error", err))
			continue
		}
		out = append(out, o)
	}
	return out
}

// ParseExecutions normalizes raw fills for historical analysis.
func ParseExecutions(raw []hl.Fill) []domain.Execution {
	out := make([]domain.Execution, 0, len(raw))
	for _, f := range raw {
		px, sz := num(f.Px), num(f.Sz)

		side := domain.SideSell
		if f.Side == "B" {
			side = domain.SideBuy
		}

		out = append(out, domain.Execution{
			Time:     f.Time,
			Coin:     f.Coin,
			Side:     side,
			Px:       px.InexactFloat64(),
			Sz:       sz.InexactFloat64(),
			Notional: px.Mul(sz).InexactFloat64(),
			OID:      f.OID,
			TID:      f.TID,
			Fee:      num(f.Fee).InexactFloat64(),
			FeeCoin:  f.FeeCoin,
		})
	}
	return out
}
