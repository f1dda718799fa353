package domain

// Side values as published downstream.
const (
	SideBuy  = "Buy"
	SideSell = "Sell"
)

// Order-book side tags.
const (
	BookSideBid = "bid"
	BookSideAsk = "ask"
)

// Position is one open perpetual position, replaced wholesale on every
// account-state push (never patched incrementally).
type Position struct {
	Asset         string  `json:"asset"`
	Size          float64 `json:"size"` // signed, negative = short
	EntryPrice    float64 `json:"entry_price"`
	UnrealizedPnl float64 `json:"unrealized_pnl"`
	Leverage      int     `json:"leverage"`
}

// Order is a normalized open order as published downstream.
type Order struct {
	OID   int64   `json:"oid"`
	Coin  string  `json:"coin"`
	Side  string  `json:"side"` // "Buy" or "Sell"
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	TS    int64   `json:"ts"` // order timestamp, ms
}

// OrderBookRow is one ranked level of the mid-relative book view.
// Recomputed in full on every book update, never merged.
type OrderBookRow struct {
	Side string  `json:"side"` // "bid" or "ask"
	Px   float64 `json:"px"`
	Sz   float64 `json:"sz"`
	Bps  float64 `json:"bps"` // distance from mid, basis points, 2dp
}

// Execution is a historical fill. Immutable once produced.
type Execution struct {
	Time     int64   `json:"time"`
	Coin     string  `json:"coin"`
	Side     string  `json:"side"`
	Px       float64 `json:"px"`
	Sz       float64 `json:"sz"`
	Notional float64 `json:"notional"` // px * sz
	OID      int64   `json:"oid"`
	TID      int64   `json:"tid"`
	Fee      float64 `json:"fee"`
	FeeCoin  string  `json:"fee_coin"`
}

// CVDRow is one execution annotated with the running volume-delta totals.
type CVDRow struct {
	Time             int64   `json:"time"`
	Coin             string  `json:"coin"`
	Px               float64 `json:"px"`
	Sz               float64 `json:"sz"`
	Side             string  `json:"side"`
	Delta            float64 `json:"delta"`
	CumulativeDelta  float64 `json:"cumulative_delta"`
	CumulativeVolume float64 `json:"cumulative_volume"`
	Notional         float64 `json:"notional"`
}

// CVDReport is the full annotated sequence plus final totals.
type CVDReport struct {
	Rows        []CVDRow `json:"cvd_data"`
	TotalDelta  float64  `json:"total_delta"`
	TotalVolume float64  `json:"total_volume"`
	Coin        string   `json:"coin,omitempty"`
	TradeCount  int      `json:"trade_count"`
}

// Snapshot is the merged per-session view pushed to the downstream
// subscriber after every state-affecting upstream message.
type Snapshot struct {
	Positions  []Position     `json:"positions"`
	OpenOrders []Order        `json:"open_orders"`
	OrderBook  []OrderBookRow `json:"orderbook"`
}
