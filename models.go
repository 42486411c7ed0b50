package backtest

import (
	"github.com/0x5487/backtest-engine/protocol"
	"github.com/shopspring/decimal"
)

type Side = protocol.Side

const (
	Buy  Side = protocol.SideBuy
	Sell Side = protocol.SideSell
)

type Offset = protocol.Offset

const (
	Open  Offset = protocol.OffsetOpen
	Close Offset = protocol.OffsetClose
)

type FillReason = protocol.FillReason

const (
	Swept         FillReason = protocol.FillReasonSwept
	LevelCrossed  FillReason = protocol.FillReasonLevelCrossed
	QueueDepleted FillReason = protocol.FillReasonQueueDepleted
)

// Order represents a simulated resting limit order.
// Orders never partially fill: a fill consumes the whole Quantity at once.
type Order struct {
	ID        uint64              `json:"id"`
	Symbol    string              `json:"symbol"`
	Side      Side                `json:"side"`
	Offset    Offset              `json:"offset"`
	Price     decimal.Decimal     `json:"price"`
	Quantity  decimal.Decimal     `json:"quantity"`
	AheadQty  decimal.NullDecimal `json:"ahead_qty"` // Unknown (invalid) until the price is the best on its side
	Timestamp int64               `json:"timestamp"` // Unix nano of the tick active at submission
}

// signedQty is +Quantity for buys and -Quantity for sells.
func (o *Order) signedQty() decimal.Decimal {
	if o.Side == Sell {
		return o.Quantity.Neg()
	}
	return o.Quantity
}

// OrderStatus is the lifecycle event reported through Strategy.OnOrder.
type OrderStatus string

const (
	OrderAccepted OrderStatus = "accepted"
	OrderCanceled OrderStatus = "canceled"
)

// OrderEvent notifies a strategy that one of its orders entered or left the book
// for a reason other than a fill. Fills are reported as Trades.
type OrderEvent struct {
	Status OrderStatus `json:"status"`
	Order  Order       `json:"order"`
}

// DepthItem aggregates the resting orders at one price.
type DepthItem struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Count    int64           `json:"count"`
}

// Depth lists the simulated book, best price first on each side.
type Depth struct {
	Bids []*DepthItem `json:"bids"`
	Asks []*DepthItem `json:"asks"`
}

// BookStats contains statistics about the order book ladders
type BookStats struct {
	AskDepthCount int64 `json:"ask_depth_count"`
	AskOrderCount int64 `json:"ask_order_count"`
	BidDepthCount int64 `json:"bid_depth_count"`
	BidOrderCount int64 `json:"bid_order_count"`
}
