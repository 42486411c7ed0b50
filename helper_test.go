package backtest

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// newTick builds a one-level row for BTC.
func newTick(ts int64, bid, bidVol, ask, askVol, bidFill, askFill, bf, af string) *Tick {
	tick := &Tick{
		Symbol:    "BTC",
		Timestamp: ts,
		BidDepth:  1,
		AskDepth:  1,
		BidFill:   d(bidFill),
		AskFill:   d(askFill),
		BfPrice:   d(bf),
		AfPrice:   d(af),
	}
	tick.BidPrice[0] = d(bid)
	tick.BidVolume[0] = d(bidVol)
	tick.AskPrice[0] = d(ask)
	tick.AskVolume[0] = d(askVol)
	return tick
}

func defaultCalibration() Calibration {
	return Calibration{QueueParam: decimal.NewFromInt(1), FillParam: decimal.NewFromInt(1)}
}

func testContracts(t *testing.T) *ContractBook {
	t.Helper()

	contracts, err := NewContractBook(
		Contract{Symbol: "BTC", CommissionKind: CommissionValue, CommissionValue: decimal.Zero, Factor: decimal.NewFromInt(1)},
		Contract{Symbol: "ETH", CommissionKind: CommissionPercent, CommissionValue: d("0.001"), Factor: decimal.NewFromInt(10)},
	)
	require.NoError(t, err)
	return contracts
}

// place rests an order the way the engine does, deriving AheadQty from tick.
func place(t require.TestingT, book *OrderBook, tick *Tick, cal Calibration, side Side, price, qty string) Order {
	order := Order{
		Symbol:   "BTC",
		Side:     side,
		Offset:   Open,
		Price:    d(price),
		Quantity: d(qty),
	}
	if tick != nil {
		order.Timestamp = tick.Timestamp
	}
	order.AheadQty = initialAheadQty(&order, tick, cal)

	order, err := book.insert(order)
	require.NoError(t, err)
	return order
}

// assertBookInvariants checks that the id index and the ladders describe the same
// orders, that levels are strictly sorted best first and that level totals add up.
func assertBookInvariants(t require.TestingT, book *OrderBook) {
	seen := make(map[uint64]bool, len(book.index))

	for _, q := range []*ladder{book.bids, book.asks} {
		var prev decimal.Decimal
		var levels, orders int64

		for el := q.front(); el != nil; el = el.Next() {
			lh, lvl := q.level(el)
			require.NotNil(t, lvl)
			if levels > 0 {
				require.True(t, q.better(prev, lvl.price), "levels out of order: %s then %s", prev, lvl.price)
			}
			prev = lvl.price
			levels++

			var count int64
			total := decimal.Zero
			last := nullIndex
			for h := lvl.head; h != nullIndex; h = q.orders.Get(h).next {
				node := q.orders.Get(h)
				require.NotNil(t, node)
				require.Equal(t, lh, node.level)
				require.Equal(t, last, node.prev)
				require.Equal(t, q.side, node.order.Side)
				require.True(t, node.order.Price.Equal(lvl.price))

				id := node.order.ID
				require.False(t, seen[id], fmt.Sprintf("order %d reachable twice", id))
				seen[id] = true

				indexed, ok := book.index[id]
				require.True(t, ok, fmt.Sprintf("order %d missing from index", id))
				require.Equal(t, h, indexed)

				count++
				total = total.Add(node.order.Quantity)
				last = h
			}
			require.Equal(t, last, lvl.tail)
			require.Equal(t, lvl.count, count)
			require.Positive(t, count)
			require.True(t, lvl.totalQty.Equal(total))
			orders += count
		}

		require.Equal(t, q.depthCount(), levels)
		require.Equal(t, q.orderCount(), orders)
	}

	require.Len(t, book.index, len(seen))
}

// scriptStrategy records callbacks and delegates decisions to optional hooks.
type scriptStrategy struct {
	NopStrategy

	broker  Broker
	onInit  func(b Broker)
	onTick  func(b Broker, tick *Tick)
	onTrade func(b Broker, trade Trade)

	calls    []string
	trades   []Trade
	events   []OrderEvent
	finished bool
}

func (s *scriptStrategy) OnInit(b Broker) {
	s.broker = b
	s.calls = append(s.calls, "init")
	if s.onInit != nil {
		s.onInit(b)
	}
}

func (s *scriptStrategy) OnTick(tick *Tick) {
	s.calls = append(s.calls, fmt.Sprintf("tick:%d", tick.Timestamp))
	if s.onTick != nil {
		s.onTick(s.broker, tick)
	}
}

func (s *scriptStrategy) OnTrade(trade Trade) {
	s.calls = append(s.calls, fmt.Sprintf("trade:%d", trade.OrderID))
	s.trades = append(s.trades, trade)
	if s.onTrade != nil {
		s.onTrade(s.broker, trade)
	}
}

func (s *scriptStrategy) OnOrder(event OrderEvent) {
	s.calls = append(s.calls, fmt.Sprintf("order:%s:%d", event.Status, event.Order.ID))
	s.events = append(s.events, event)
}

func (s *scriptStrategy) OnFinish() {
	s.calls = append(s.calls, "finish")
	s.finished = true
}
