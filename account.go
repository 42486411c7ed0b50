package backtest

import "github.com/shopspring/decimal"

// AccountState is the strategy bookkeeping at one point of the replay.
// Pending is the signed quantity of orders still resting in the book.
type AccountState struct {
	Position   decimal.Decimal `json:"position"`
	Cash       decimal.Decimal `json:"cash"`
	Commission decimal.Decimal `json:"commission"`
	Pending    decimal.Decimal `json:"pending"`
	Mark       decimal.Decimal `json:"mark"`
	NAV        decimal.Decimal `json:"nav"` // Position * Mark + Cash
}

// account is mutated only by the engine: order submission/cancellation and trades.
type account struct {
	state AccountState
}

func newAccount(initialCash decimal.Decimal) *account {
	a := &account{}
	a.state.Cash = initialCash
	a.revalue()
	return a
}

func (a *account) onSubmit(order *Order) {
	a.state.Pending = a.state.Pending.Add(order.signedQty())
}

func (a *account) onCancel(order *Order) {
	a.state.Pending = a.state.Pending.Sub(order.signedQty())
}

// onTrade books a fill: position moves by the signed quantity, cash pays or receives
// the notional and pays the commission.
func (a *account) onTrade(trade *Trade, commission decimal.Decimal) {
	qty := trade.signedQty()

	a.state.Position = a.state.Position.Add(qty)
	a.state.Pending = a.state.Pending.Sub(qty)
	a.state.Cash = a.state.Cash.Sub(trade.Price.Mul(qty)).Sub(commission)
	a.state.Commission = a.state.Commission.Add(commission)
	a.revalue()
}

func (a *account) markToMarket(price decimal.Decimal) {
	a.state.Mark = price
	a.revalue()
}

func (a *account) revalue() {
	a.state.NAV = a.state.Position.Mul(a.state.Mark).Add(a.state.Cash)
}
