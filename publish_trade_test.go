package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemoryTradePublisher(t *testing.T) {
	p := NewMemoryTradePublisher()
	p.PublishTrades(Trade{ID: 1}, Trade{ID: 2})
	p.PublishTrades(Trade{ID: 3})

	assert.Equal(t, 3, p.Count())
	assert.Equal(t, uint64(2), p.Get(1).ID)

	trades := p.Trades()
	trades[0].ID = 99
	assert.Equal(t, uint64(1), p.Get(0).ID, "Trades returns a copy")

	NewDiscardTradePublisher().PublishTrades(Trade{ID: 1})
}
