package backtest

import "github.com/shopspring/decimal"

// Broker is the engine surface a strategy trades through.
type Broker interface {
	// SendOrder submits a resting limit order. It never fills on the row during which it is sent.
	SendOrder(symbol string, side Side, offset Offset, price, qty decimal.Decimal) (Order, error)
	// CancelOrder removes a resting order. Returns ErrNotFound for unknown or already filled ids.
	CancelOrder(id uint64) error
	// Order looks up a resting order.
	Order(id uint64) (Order, bool)
	// Account returns the current bookkeeping.
	Account() AccountState
}

// Strategy is a pluggable trading decision maker driven by the replay.
//
// For every row the engine first reports fills through OnTrade, then calls OnTick.
// The tick passed to OnTick is owned by the engine and must not be modified.
type Strategy interface {
	OnInit(broker Broker)
	OnTick(tick *Tick)
	OnTrade(trade Trade)
	OnOrder(event OrderEvent)
	OnFinish()
}

// NopStrategy implements Strategy with no-op callbacks.
// Embed it to override only the callbacks a strategy needs.
type NopStrategy struct{}

func (NopStrategy) OnInit(Broker)      {}
func (NopStrategy) OnTick(*Tick)       {}
func (NopStrategy) OnTrade(Trade)      {}
func (NopStrategy) OnOrder(OrderEvent) {}
func (NopStrategy) OnFinish()          {}
