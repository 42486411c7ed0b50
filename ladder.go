package backtest

import (
	"github.com/0x5487/backtest-engine/structure"
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

const nullIndex = structure.NullIndex

// orderNode is the arena slot of a resting order.
// prev/next link the FIFO queue of its level.
type orderNode struct {
	order Order
	level int32
	prev  int32
	next  int32
}

// levelNode is the arena slot of a price level.
type levelNode struct {
	price    decimal.Decimal
	totalQty decimal.Decimal
	head     int32
	tail     int32
	count    int64
}

// ladder is one side of the simulated book.
// levelList maps price → level handle, best price first.
type ladder struct {
	side        Side
	totalOrders int64
	depths      int64
	levelList   *skiplist.SkipList
	levels      *structure.Arena[levelNode]
	orders      *structure.Arena[orderNode]
}

// newBidLadder creates a ladder for buy orders.
// The levels are sorted by price in descending order (highest price first).
func newBidLadder(levels *structure.Arena[levelNode], orders *structure.Arena[orderNode]) *ladder {
	return &ladder{
		side: Buy,
		levelList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.LessThan(d2) {
				return 1
			} else if d1.GreaterThan(d2) {
				return -1
			}

			return 0
		})),
		levels: levels,
		orders: orders,
	}
}

// newAskLadder creates a ladder for sell orders.
// The levels are sorted by price in ascending order (lowest price first).
func newAskLadder(levels *structure.Arena[levelNode], orders *structure.Arena[orderNode]) *ladder {
	return &ladder{
		side: Sell,
		levelList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.GreaterThan(d2) {
				return 1
			} else if d1.LessThan(d2) {
				return -1
			}

			return 0
		})),
		levels: levels,
		orders: orders,
	}
}

// better reports whether price a has priority over price b on this side.
func (q *ladder) better(a, b decimal.Decimal) bool {
	if q.side == Buy {
		return a.GreaterThan(b)
	}
	return a.LessThan(b)
}

// insertOrder appends the order behind handle h to the tail of its price level,
// creating the level if it does not exist yet.
func (q *ladder) insertOrder(h int32) error {
	node := q.orders.Get(h)
	price := node.order.Price

	var lh int32
	if el := q.levelList.Get(price); el != nil {
		lh, _ = el.Value.(int32)
	} else {
		var err error
		lh, err = q.levels.Alloc()
		if err != nil {
			return err
		}
		lvl := q.levels.Get(lh)
		lvl.price = price
		lvl.head = nullIndex
		lvl.tail = nullIndex

		q.levelList.Set(price, lh)
		q.depths++
	}

	lvl := q.levels.Get(lh)
	node.level = lh
	node.prev = lvl.tail
	node.next = nullIndex
	if lvl.tail != nullIndex {
		q.orders.Get(lvl.tail).next = h
	} else {
		lvl.head = h
	}
	lvl.tail = h

	lvl.count++
	lvl.totalQty = lvl.totalQty.Add(node.order.Quantity)
	q.totalOrders++
	return nil
}

// removeOrder unlinks the order behind handle h from its level.
// It also drops the level if it becomes empty. The order slot itself is not freed.
func (q *ladder) removeOrder(h int32) {
	node := q.orders.Get(h)
	if node == nil || node.level == nullIndex {
		return
	}

	lh := node.level
	lvl := q.levels.Get(lh)

	if node.prev != nullIndex {
		q.orders.Get(node.prev).next = node.next
	} else {
		lvl.head = node.next
	}

	if node.next != nullIndex {
		q.orders.Get(node.next).prev = node.prev
	} else {
		lvl.tail = node.prev
	}

	node.prev = nullIndex
	node.next = nullIndex
	node.level = nullIndex

	lvl.totalQty = lvl.totalQty.Sub(node.order.Quantity)
	lvl.count--
	q.totalOrders--

	if lvl.count == 0 {
		q.levelList.Remove(lvl.price)
		q.levels.Free(lh)
		q.depths--
	}
}

// front returns the best level element, or nil when the ladder is empty.
func (q *ladder) front() *skiplist.Element {
	return q.levelList.Front()
}

// level resolves a skiplist element to its level handle and node.
func (q *ladder) level(el *skiplist.Element) (int32, *levelNode) {
	lh, _ := el.Value.(int32)
	return lh, q.levels.Get(lh)
}

// levelOrders returns the order handles of a level in FIFO order.
// The slice is a copy, so callers may remove orders while ranging over it.
func (q *ladder) levelOrders(lh int32) []int32 {
	lvl := q.levels.Get(lh)
	handles := make([]int32, 0, lvl.count)
	for h := lvl.head; h != nullIndex; h = q.orders.Get(h).next {
		handles = append(handles, h)
	}
	return handles
}

// orderCount returns the total number of orders in the ladder.
func (q *ladder) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the ladder.
func (q *ladder) depthCount() int64 {
	return q.depths
}

// toSnapshot copies the resting orders, walking levels best first and each level in FIFO order.
func (q *ladder) toSnapshot() []Order {
	snapshots := make([]Order, 0, q.totalOrders)

	for el := q.front(); el != nil; el = el.Next() {
		_, lvl := q.level(el)
		for h := lvl.head; h != nullIndex; {
			node := q.orders.Get(h)
			snapshots = append(snapshots, node.order)
			h = node.next
		}
	}

	return snapshots
}

// depth returns the aggregated ladder up to the specified limit.
func (q *ladder) depth(limit uint32) []*DepthItem {
	result := make([]*DepthItem, 0, limit)

	var i uint32
	for el := q.front(); i < limit && el != nil; el = el.Next() {
		_, lvl := q.level(el)
		result = append(result, &DepthItem{
			Price:    lvl.price,
			Quantity: lvl.totalQty,
			Count:    lvl.count,
		})
		i++
	}

	return result
}
