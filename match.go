package backtest

import (
	"github.com/shopspring/decimal"
)

// Calibration holds the run-level constants that control how quickly a resting
// order is assumed to advance through the displayed queue.
type Calibration struct {
	// QueueParam scales the displayed volume an order is assumed to queue behind
	// when it reaches the top of book.
	QueueParam decimal.Decimal `json:"queue_param"`
	// FillParam scales the simulator's own queue estimate when it is used to
	// boost the observed fill signal.
	FillParam decimal.Decimal `json:"fill_param"`
}

// sideView is one side of a tick as the matcher sees it.
type sideView struct {
	best     decimal.Decimal
	bestVol  decimal.Decimal
	fill     decimal.Decimal
	prevBest decimal.Decimal
}

func bidView(tick *Tick) sideView {
	return sideView{best: tick.BestBid(), bestVol: tick.BestBidVolume(), fill: tick.BidFill, prevBest: tick.BfPrice}
}

func askView(tick *Tick) sideView {
	return sideView{best: tick.BestAsk(), bestVol: tick.BestAskVolume(), fill: tick.AskFill, prevBest: tick.AfPrice}
}

// initialAheadQty estimates the queue in front of a new order. It is only known when the
// order joins the displayed best price; otherwise it stays unknown until the price reaches the top.
func initialAheadQty(order *Order, tick *Tick, cal Calibration) decimal.NullDecimal {
	if tick == nil {
		return decimal.NullDecimal{}
	}

	view := askView(tick)
	if order.Side == Buy {
		view = bidView(tick)
	}
	if !view.best.IsPositive() || !order.Price.Equal(view.best) {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(view.bestVol.Mul(cal.QueueParam))
}

// match walks both ladders against one tick and fills every order the tick proves
// would have traded. Filled orders leave the book before the next order is examined,
// so an order fills at most once. A side with no displayed price is skipped.
func (book *OrderBook) match(tick *Tick, cal Calibration) []Trade {
	trades := make([]Trade, 0, 4)

	if view := bidView(tick); view.best.IsPositive() {
		trades = book.matchLadder(book.bids, view, cal, tick.Timestamp, trades)
	}
	if view := askView(tick); view.best.IsPositive() {
		trades = book.matchLadder(book.asks, view, cal, tick.Timestamp, trades)
	}

	return trades
}

// matchLadder walks q from its best level while the level is at or through the live market.
func (book *OrderBook) matchLadder(q *ladder, view sideView, cal Calibration, timestamp int64, trades []Trade) []Trade {
	for el := q.front(); el != nil; {
		lh, lvl := q.level(el)
		price := lvl.price

		// the market is still better than this level: nothing deeper can trade
		if q.better(view.best, price) {
			break
		}

		// the level may be dropped below, so step first
		el = el.Next()

		if q.better(price, view.best) {
			reason := Swept
			if q.better(view.prevBest, price) {
				reason = LevelCrossed
			}

			for _, h := range q.levelOrders(lh) {
				order := book.remove(h)
				fillPrice := order.Price
				if q.better(view.best, order.Price) {
					fillPrice = view.best
				}
				trades = append(trades, newTrade(book.nextTradeID(), &order, fillPrice, reason, timestamp))
			}
			continue
		}

		trades = book.matchTopLevel(q, lh, price, view, cal, timestamp, trades)
	}

	return trades
}

// matchTopLevel handles the level sitting exactly at the displayed best price.
func (book *OrderBook) matchTopLevel(q *ladder, lh int32, price decimal.Decimal, view sideView, cal Calibration, timestamp int64, trades []Trade) []Trade {
	handles := q.levelOrders(lh)
	fill := view.fill

	for _, h := range handles {
		order := &book.orders.Get(h).order
		if !order.AheadQty.Valid {
			order.AheadQty = decimal.NewNullDecimal(view.bestVol.Mul(cal.QueueParam))
			continue
		}
		if order.AheadQty.Decimal.GreaterThanOrEqual(view.bestVol) {
			boosted := cal.FillParam.Mul(order.AheadQty.Decimal.Sub(view.bestVol))
			fill = decimal.Max(fill, boosted)
		}
	}

	switch {
	case price.Equal(view.prevBest):
		for _, h := range handles {
			order := &book.orders.Get(h).order
			order.AheadQty.Decimal = order.AheadQty.Decimal.Sub(fill)
			if order.AheadQty.Decimal.IsPositive() {
				continue
			}

			filled := book.remove(h)
			trades = append(trades, newTrade(book.nextTradeID(), &filled, filled.Price, QueueDepleted, timestamp))
		}
	case q.better(price, view.prevBest):
		for _, h := range handles {
			filled := book.remove(h)
			trades = append(trades, newTrade(book.nextTradeID(), &filled, price, LevelCrossed, timestamp))
		}
	}

	return trades
}
