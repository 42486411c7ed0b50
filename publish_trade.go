package backtest

import "sync"

// TradePublisher receives every trade of a replay in production order.
// Trades are passed by value, so implementations may keep them.
type TradePublisher interface {
	PublishTrades(...Trade)
}

// MemoryTradePublisher stores trades in memory, useful for testing.
type MemoryTradePublisher struct {
	mu     sync.RWMutex
	trades []Trade
}

// NewMemoryTradePublisher creates a new MemoryTradePublisher.
func NewMemoryTradePublisher() *MemoryTradePublisher {
	return &MemoryTradePublisher{
		trades: make([]Trade, 0),
	}
}

// PublishTrades appends trades to the in-memory slice.
func (m *MemoryTradePublisher) PublishTrades(trades ...Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trades...)
}

// Count returns the number of trades stored.
func (m *MemoryTradePublisher) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trades)
}

// Get returns the trade at the specified index.
func (m *MemoryTradePublisher) Get(index int) Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.trades[index]
}

// Trades returns a copy of all trades stored.
func (m *MemoryTradePublisher) Trades() []Trade {
	m.mu.RLock()
	defer m.mu.RUnlock()

	trades := make([]Trade, len(m.trades))
	copy(trades, m.trades)
	return trades
}

// DiscardTradePublisher discards all trades, useful for benchmarking.
type DiscardTradePublisher struct {
}

// NewDiscardTradePublisher creates a new DiscardTradePublisher.
func NewDiscardTradePublisher() *DiscardTradePublisher {
	return &DiscardTradePublisher{}
}

// PublishTrades does nothing.
func (p *DiscardTradePublisher) PublishTrades(trades ...Trade) {

}
