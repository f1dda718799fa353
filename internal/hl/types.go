package hl

import "encoding/json"

// Channel tags carried on the multiplexed stream.
const (
	ChannelWebData2     = "webData2"
	ChannelOrderUpdates = "orderUpdates"
	ChannelL2Book       = "l2Book"
)

// Envelope is one tagged frame off the multiplexed stream.
type Envelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// SubscribeRequest is the venue's subscription frame.
type SubscribeRequest struct {
	Method       string       `json:"method"`
	Subscription Subscription `json:"subscription"`
}

// Subscription selects one feed. User streams carry the wallet,
// the book stream carries the coin.
type Subscription struct {
	Type string `json:"type"`
	User string `json:"user,omitempty"`
	Coin string `json:"coin,omitempty"`
}

// WebData2 is the account-state push. Only the clearinghouse slice is
// consumed; the venue sends much more alongside it.
type WebData2 struct {
	ClearinghouseState ClearinghouseState `json:"clearinghouseState"`
}

type ClearinghouseState struct {
	AssetPositions []AssetPosition `json:"assetPositions"`
}

// AssetPosition is one position slot. Slots without an open position
// carry a null or empty sub-record.
type AssetPosition struct {
	Type     string       `json:"type"`
	Position *RawPosition `json:"position"`
}

// RawPosition is the venue's position record. Numerics arrive as strings.
type RawPosition struct {
	Coin          string   `json:"coin"`
	Szi           string   `json:"szi"`
	EntryPx       string   `json:"entryPx"`
	UnrealizedPnl string   `json:"unrealizedPnl"`
	Leverage      Leverage `json:"leverage"`
}

type Leverage struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// BasicOrder is the venue's raw order record, as returned by
// frontendOpenOrders and nested inside orderUpdates pushes.
type BasicOrder struct {
	Coin      string `json:"coin"`
	Side      string `json:"side"` // "B" = buy, anything else = sell
	LimitPx   string `json:"limitPx"`
	Sz        string `json:"sz"`
	OID       int64  `json:"oid"`
	Timestamp int64  `json:"timestamp"`
	OrigSz    string `json:"origSz,omitempty"`
}

// WsOrderStatus is one entry of an orderUpdates push: an order plus its
// lifecycle status. The REST snapshot returns bare BasicOrder records,
// so UnmarshalJSON accepts either shape; Wrapped records which shape
// arrived, since a wrapped record with an unknown status must be
// dropped while a bare record passes through.
type WsOrderStatus struct {
	Order           *BasicOrder `json:"order"`
	Status          string      `json:"status"`
	StatusTimestamp int64       `json:"statusTimestamp"`
	Wrapped         bool        `json:"-"`
}

func (w *WsOrderStatus) UnmarshalJSON(b []byte) error {
	type wrapped WsOrderStatus
	var ws wrapped
	if err := json.Unmarshal(b, &ws); err == nil && ws.Order != nil {
		*w = WsOrderStatus(ws)
		w.Wrapped = true
		return nil
	}
	var bare BasicOrder
	if err := json.Unmarshal(b, &bare); err != nil {
		return err
	}
	*w = WsOrderStatus{Order: &bare}
	return nil
}

// L2Book is one depth push for a single coin. Levels[0] are bids,
// Levels[1] are asks, best first.
type L2Book struct {
	Coin   string         `json:"coin"`
	Time   int64          `json:"time"`
	Levels [2][]BookLevel `json:"levels"`
}

// BookLevel is one price level. Numerics arrive as strings.
type BookLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// Fill is one historical execution as returned by userFills.
type Fill struct {
	Time    int64  `json:"time"`
	Coin    string `json:"coin"`
	Side    string `json:"side"`
	Px      string `json:"px"`
	Sz      string `json:"sz"`
	OID     int64  `json:"oid"`
	TID     int64  `json:"tid"`
	Fee     string `json:"fee"`
	FeeCoin string `json:"feeCoin"`
	Dir     string `json:"dir,omitempty"`
	Hash    string `json:"hash,omitempty"`
	Crossed bool   `json:"crossed,omitempty"`
}
