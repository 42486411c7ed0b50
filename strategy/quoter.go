// Package strategy holds example strategies for the replay engine.
package strategy

import (
	"fmt"

	backtest "github.com/0x5487/backtest-engine"
	"github.com/shopspring/decimal"
)

// QuoterConfig configures a Quoter.
type QuoterConfig struct {
	Symbol string
	// Size is the quantity of every quote.
	Size decimal.Decimal
	// MaxPosition bounds the absolute position a fill may reach.
	MaxPosition decimal.Decimal
	// RequoteDistance is how far the market may move away from a resting quote before
	// it is canceled and sent again at the new best price.
	RequoteDistance decimal.Decimal
}

func (c QuoterConfig) validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: quoter symbol is empty", backtest.ErrInvalidParam)
	}
	if !c.Size.IsPositive() {
		return fmt.Errorf("%w: quoter size must be positive", backtest.ErrInvalidParam)
	}
	if c.MaxPosition.LessThan(c.Size) {
		return fmt.Errorf("%w: quoter max position is below its size", backtest.ErrInvalidParam)
	}
	if c.RequoteDistance.IsNegative() {
		return fmt.Errorf("%w: quoter requote distance must not be negative", backtest.ErrInvalidParam)
	}
	return nil
}

// Quoter joins the best bid and the best ask with one order each, as long as a fill
// keeps the position within MaxPosition.
type Quoter struct {
	backtest.NopStrategy

	cfg    QuoterConfig
	broker backtest.Broker

	bidID uint64
	askID uint64

	fills    int
	requotes int
}

// NewQuoter creates a Quoter.
func NewQuoter(cfg QuoterConfig) (*Quoter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Quoter{cfg: cfg}, nil
}

func (q *Quoter) OnInit(broker backtest.Broker) {
	q.broker = broker
}

func (q *Quoter) OnTrade(trade backtest.Trade) {
	switch trade.OrderID {
	case q.bidID:
		q.bidID = 0
	case q.askID:
		q.askID = 0
	}
	q.fills++
}

func (q *Quoter) OnTick(tick *backtest.Tick) {
	if tick.Symbol != q.cfg.Symbol {
		return
	}

	position := q.broker.Account().Position
	canBuy := position.Add(q.cfg.Size).LessThanOrEqual(q.cfg.MaxPosition)
	canSell := position.Sub(q.cfg.Size).Neg().LessThanOrEqual(q.cfg.MaxPosition)

	q.quote(&q.bidID, backtest.Buy, tick.BestBid(), position, canBuy)
	q.quote(&q.askID, backtest.Sell, tick.BestAsk(), position, canSell)
}

// quote keeps at most one order per side resting at (or near) best.
func (q *Quoter) quote(id *uint64, side backtest.Side, best, position decimal.Decimal, allowed bool) {
	if *id != 0 {
		order, ok := q.broker.Order(*id)
		switch {
		case !ok:
			*id = 0
		case !allowed || order.Price.Sub(best).Abs().GreaterThan(q.cfg.RequoteDistance):
			if err := q.broker.CancelOrder(*id); err == nil {
				q.requotes++
			}
			*id = 0
		default:
			return
		}
	}

	if !allowed || !best.IsPositive() {
		return
	}

	order, err := q.broker.SendOrder(q.cfg.Symbol, side, offsetFor(side, position), best, q.cfg.Size)
	if err != nil {
		return
	}
	*id = order.ID
}

// offsetFor closes when the order reduces an existing position.
func offsetFor(side backtest.Side, position decimal.Decimal) backtest.Offset {
	if (side == backtest.Buy && position.IsNegative()) || (side == backtest.Sell && position.IsPositive()) {
		return backtest.Close
	}
	return backtest.Open
}

// Fills returns the number of filled quotes.
func (q *Quoter) Fills() int {
	return q.fills
}

// Requotes returns the number of quotes canceled because the market moved away.
func (q *Quoter) Requotes() int {
	return q.requotes
}
