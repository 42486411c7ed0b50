package backtest

import "github.com/shopspring/decimal"

// Trade is produced when a resting order is filled.
// Quantity always equals the full quantity of the order.
type Trade struct {
	ID        uint64          `json:"id"`
	OrderID   uint64          `json:"order_id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Offset    Offset          `json:"offset"`
	Price     decimal.Decimal `json:"price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"` // Price * Quantity
	Reason    FillReason      `json:"reason"`
	Timestamp int64           `json:"timestamp"` // Unix nano of the tick that produced the fill
}

func newTrade(tradeID uint64, order *Order, price decimal.Decimal, reason FillReason, timestamp int64) Trade {
	return Trade{
		ID:        tradeID,
		OrderID:   order.ID,
		Symbol:    order.Symbol,
		Side:      order.Side,
		Offset:    order.Offset,
		Price:     price,
		Quantity:  order.Quantity,
		Amount:    price.Mul(order.Quantity),
		Reason:    reason,
		Timestamp: timestamp,
	}
}

// signedQty is +Quantity for buys and -Quantity for sells.
func (t *Trade) signedQty() decimal.Decimal {
	if t.Side == Sell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}
