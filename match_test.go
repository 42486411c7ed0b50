package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_QueueDepleted(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "100", "10", "101", "5", "0", "0", "100", "101")
	order := place(t, book, tick, cal, Buy, "100", "1")
	require.True(t, order.AheadQty.Valid)
	assert.True(t, d("10").Equal(order.AheadQty.Decimal))

	// best bid unchanged and 15 traded at it: the queue of 10 is gone
	trades := book.match(newTick(2, "100", "10", "101", "5", "15", "0", "100", "101"), cal)

	require.Len(t, trades, 1)
	trade := trades[0]
	assert.Equal(t, order.ID, trade.OrderID)
	assert.Equal(t, QueueDepleted, trade.Reason)
	assert.True(t, d("100").Equal(trade.Price))
	assert.True(t, d("1").Equal(trade.Quantity))
	assert.True(t, d("100").Equal(trade.Amount))
	assert.Equal(t, int64(2), trade.Timestamp)

	_, ok := book.Order(order.ID)
	assert.False(t, ok)
	assertBookInvariants(t, book)
}

func TestMatch_QueueAdvances(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "100", "10", "101", "5", "0", "0", "100", "101")
	order := place(t, book, tick, cal, Buy, "100", "1")

	trades := book.match(newTick(2, "100", "12", "101", "5", "4", "0", "100", "101"), cal)
	assert.Empty(t, trades)

	resting, ok := book.Order(order.ID)
	require.True(t, ok)
	assert.True(t, d("6").Equal(resting.AheadQty.Decimal))
}

func TestMatch_LevelCrossedThroughPrevious(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "99", "10", "100", "5", "0", "0", "99", "100")
	order := place(t, book, tick, cal, Sell, "105", "2")
	assert.False(t, order.AheadQty.Valid)

	// best ask jumps from 100 to 110, crossing 105 which was never the top
	trades := book.match(newTick(2, "109", "10", "110", "5", "0", "0", "99", "100"), cal)

	require.Len(t, trades, 1)
	assert.Equal(t, LevelCrossed, trades[0].Reason)
	assert.True(t, d("105").Equal(trades[0].Price))
	assert.True(t, d("2").Equal(trades[0].Quantity))
	assertBookInvariants(t, book)
}

func TestMatch_SweptThroughTop(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "99", "10", "100", "5", "0", "0", "99", "100")
	order := place(t, book, tick, cal, Sell, "100", "1")

	// the level was the top a moment ago and the market traded through it
	trades := book.match(newTick(2, "101", "3", "102", "5", "0", "0", "99", "100"), cal)

	require.Len(t, trades, 1)
	assert.Equal(t, order.ID, trades[0].OrderID)
	assert.Equal(t, Swept, trades[0].Reason)
	assert.True(t, d("100").Equal(trades[0].Price))
}

func TestMatch_MarketableOrder(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "100", "10", "101", "5", "0", "0", "100", "101")
	order := place(t, book, tick, cal, Buy, "102", "1")

	trades := book.match(newTick(2, "100", "10", "101", "5", "0", "0", "100", "101"), cal)

	require.Len(t, trades, 1)
	assert.Equal(t, order.ID, trades[0].OrderID)
	assert.Equal(t, Swept, trades[0].Reason)
	// never worse than the limit
	assert.True(t, d("102").Equal(trades[0].Price))
}

func TestMatch_LevelBecomesTop(t *testing.T) {
	cal := defaultCalibration()

	t.Run("above the previous best", func(t *testing.T) {
		book := NewOrderBook(8, 0)
		tick := newTick(1, "100", "10", "102", "5", "0", "0", "100", "102")
		order := place(t, book, tick, cal, Buy, "101", "1")

		trades := book.match(newTick(2, "101", "3", "102", "5", "0", "0", "100", "102"), cal)

		require.Len(t, trades, 1)
		assert.Equal(t, order.ID, trades[0].OrderID)
		assert.Equal(t, LevelCrossed, trades[0].Reason)
		assert.True(t, d("101").Equal(trades[0].Price))
	})

	t.Run("below the previous best", func(t *testing.T) {
		book := NewOrderBook(8, 0)
		tick := newTick(1, "100", "10", "102", "5", "0", "0", "100", "102")
		order := place(t, book, tick, cal, Buy, "99", "1")

		// the bid falls back to 99: the order joins the queue behind the displayed 4
		trades := book.match(newTick(2, "99", "4", "102", "5", "0", "0", "100", "102"), cal)
		assert.Empty(t, trades)

		resting, ok := book.Order(order.ID)
		require.True(t, ok)
		require.True(t, resting.AheadQty.Valid)
		assert.True(t, d("4").Equal(resting.AheadQty.Decimal))

		trades = book.match(newTick(3, "99", "4", "102", "5", "5", "0", "99", "102"), cal)
		require.Len(t, trades, 1)
		assert.Equal(t, QueueDepleted, trades[0].Reason)
		assert.True(t, d("99").Equal(trades[0].Price))
	})
}

func TestMatch_BoostedFill(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := Calibration{QueueParam: d("2"), FillParam: d("1")}

	tick := newTick(1, "100", "10", "101", "5", "0", "0", "100", "101")
	order := place(t, book, tick, cal, Buy, "100", "1")
	assert.True(t, d("20").Equal(order.AheadQty.Decimal))

	// queue estimate 20 is above the displayed 10: fill evidence becomes max(3, 1*(20-10))
	next := newTick(2, "100", "10", "101", "5", "3", "0", "100", "101")
	trades := book.match(next, cal)
	assert.Empty(t, trades)
	assert.True(t, d("3").Equal(next.BidFill), "the tick is not modified")

	resting, _ := book.Order(order.ID)
	assert.True(t, d("10").Equal(resting.AheadQty.Decimal))

	trades = book.match(newTick(3, "100", "10", "101", "5", "3", "0", "100", "101"), cal)
	assert.Empty(t, trades)
	resting, _ = book.Order(order.ID)
	assert.True(t, d("7").Equal(resting.AheadQty.Decimal))
}

func TestMatch_FIFOWithinLevel(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "100", "10", "101", "5", "0", "0", "100", "101")
	first := place(t, book, tick, cal, Buy, "100", "1")
	second := place(t, book, tick, cal, Buy, "100", "3")

	trades := book.match(newTick(2, "99", "10", "100", "5", "0", "0", "100", "101"), cal)

	require.Len(t, trades, 2)
	assert.Equal(t, first.ID, trades[0].OrderID)
	assert.Equal(t, second.ID, trades[1].OrderID)
	assert.True(t, d("3").Equal(trades[1].Quantity))
	assert.Less(t, trades[0].ID, trades[1].ID)
	assertBookInvariants(t, book)
}

func TestMatch_SweepsSeveralLevels(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "99", "10", "100", "5", "0", "0", "99", "100")
	place(t, book, tick, cal, Sell, "100", "1")
	place(t, book, tick, cal, Sell, "101", "1")
	place(t, book, tick, cal, Sell, "103", "1")
	deep := place(t, book, tick, cal, Sell, "106", "1")

	trades := book.match(newTick(2, "103", "2", "104", "5", "0", "0", "99", "100"), cal)

	require.Len(t, trades, 3)
	assert.Equal(t, Swept, trades[0].Reason)
	assert.Equal(t, LevelCrossed, trades[1].Reason)
	assert.Equal(t, LevelCrossed, trades[2].Reason)

	_, ok := book.Order(deep.ID)
	assert.True(t, ok)
	assert.Equal(t, int64(1), book.Stats().AskDepthCount)
	assertBookInvariants(t, book)
}

func TestMatch_AbsentSideIsSkipped(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "100", "10", "101", "5", "0", "0", "100", "101")
	place(t, book, tick, cal, Buy, "100", "1")

	trades := book.match(newTick(2, "0", "0", "101", "5", "50", "0", "100", "101"), cal)
	assert.Empty(t, trades)
	assert.Equal(t, int64(1), book.Stats().BidOrderCount)
}

func TestMatch_BothSides(t *testing.T) {
	book := NewOrderBook(8, 0)
	cal := defaultCalibration()

	tick := newTick(1, "100", "10", "101", "5", "0", "0", "100", "101")
	bid := place(t, book, tick, cal, Buy, "100", "1")
	ask := place(t, book, tick, cal, Sell, "101", "1")

	trades := book.match(newTick(2, "100", "10", "101", "5", "10", "5", "100", "101"), cal)

	// bids are walked before asks
	require.Len(t, trades, 2)
	assert.Equal(t, bid.ID, trades[0].OrderID)
	assert.Equal(t, ask.ID, trades[1].OrderID)
	assert.Equal(t, uint64(1), trades[0].ID)
	assert.Equal(t, uint64(2), trades[1].ID)
	assert.Equal(t, int64(0), book.Stats().BidOrderCount+book.Stats().AskOrderCount)
}
