package backtest

import (
	"fmt"

	"github.com/0x5487/backtest-engine/structure"
)

// OrderBook holds the simulated resting orders of one replay: a bid ladder, an ask ladder
// and an id index over the shared order arena.
// It is owned by a single TickEngine and is not safe for concurrent use.
type OrderBook struct {
	bids    *ladder
	asks    *ladder
	orders  *structure.Arena[orderNode]
	levels  *structure.Arena[levelNode]
	index   map[uint64]int32
	orderID uint64 // Last assigned order id
	tradeID uint64 // Last assigned trade id
}

// NewOrderBook creates an empty book whose arenas start with the given capacity.
// maxOrders bounds the number of resting orders; 0 means unbounded.
func NewOrderBook(capacity, maxOrders int32) *OrderBook {
	if capacity <= 0 {
		capacity = defaultArenaCapacity
	}

	orders := structure.NewArenaWithOptions[orderNode](capacity, structure.ArenaOptions{
		MaxCapacity: maxOrders,
		OnGrow: func(oldCap, newCap int32) {
			logger.Debug("order arena grown", "old_cap", oldCap, "new_cap", newCap)
		},
	})
	levels := structure.NewArena[levelNode](capacity)

	return &OrderBook{
		bids:   newBidLadder(levels, orders),
		asks:   newAskLadder(levels, orders),
		orders: orders,
		levels: levels,
		index:  make(map[uint64]int32, capacity),
	}
}

func (book *OrderBook) ladder(side Side) *ladder {
	if side == Buy {
		return book.bids
	}
	return book.asks
}

// insert assigns the next order id and appends the order to the tail of its price level.
// The caller is responsible for validation and for the initial AheadQty.
func (book *OrderBook) insert(order Order) (Order, error) {
	h, err := book.orders.Alloc()
	if err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrCapacityReached, err)
	}

	node := book.orders.Get(h)
	node.order = order
	node.level = nullIndex
	node.prev = nullIndex
	node.next = nullIndex

	if err := book.ladder(order.Side).insertOrder(h); err != nil {
		book.orders.Free(h)
		return Order{}, fmt.Errorf("%w: %v", ErrCapacityReached, err)
	}

	book.orderID++
	node = book.orders.Get(h)
	node.order.ID = book.orderID
	book.index[node.order.ID] = h

	return node.order, nil
}

// cancel removes a resting order by id.
func (book *OrderBook) cancel(id uint64) (Order, error) {
	h, ok := book.index[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return book.remove(h), nil
}

// remove unlinks the order behind h from its ladder and the index, and frees its slot.
func (book *OrderBook) remove(h int32) Order {
	node := book.orders.Get(h)
	order := node.order

	book.ladder(order.Side).removeOrder(h)
	delete(book.index, order.ID)
	book.orders.Free(h)

	return order
}

// nextTradeID returns a new sequential trade id.
func (book *OrderBook) nextTradeID() uint64 {
	book.tradeID++
	return book.tradeID
}

// Order finds a resting order by its ID.
func (book *OrderBook) Order(id uint64) (Order, bool) {
	h, ok := book.index[id]
	if !ok {
		return Order{}, false
	}
	return book.orders.Get(h).order, true
}

// Depth returns the current aggregated depth of the book up to the specified limit.
func (book *OrderBook) Depth(limit uint32) (*Depth, error) {
	if limit == 0 {
		return nil, ErrInvalidParam
	}

	return &Depth{
		Bids: book.bids.depth(limit),
		Asks: book.asks.depth(limit),
	}, nil
}

// Stats returns usage statistics for the order book.
func (book *OrderBook) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: book.asks.depthCount(),
		AskOrderCount: book.asks.orderCount(),
		BidDepthCount: book.bids.depthCount(),
		BidOrderCount: book.bids.orderCount(),
	}
}

// Snapshot copies the resting orders of both sides in priority order.
func (book *OrderBook) Snapshot() *BookSnapshot {
	return &BookSnapshot{
		OrderID: book.orderID,
		TradeID: book.tradeID,
		Bids:    book.bids.toSnapshot(),
		Asks:    book.asks.toSnapshot(),
	}
}
