package backtest

import (
	"fmt"

	"github.com/0x5487/backtest-engine/protocol"
	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// Tick is one market data row. Level 0 of each side is the top of book.
// BfPrice and AfPrice carry the previous row's best bid and best ask.
type Tick struct {
	Symbol    string
	Timestamp int64 // Unix nano

	BidPrice  [MaxDepth]decimal.Decimal
	BidVolume [MaxDepth]decimal.Decimal
	BidDepth  int
	AskPrice  [MaxDepth]decimal.Decimal
	AskVolume [MaxDepth]decimal.Decimal
	AskDepth  int

	BidFill decimal.Decimal
	AskFill decimal.Decimal
	BfPrice decimal.Decimal
	AfPrice decimal.Decimal

	TradedVolume decimal.Decimal
	TradedAmount decimal.Decimal
	LastPrice    decimal.Decimal
}

func (t *Tick) BestBid() decimal.Decimal       { return t.BidPrice[0] }
func (t *Tick) BestBidVolume() decimal.Decimal { return t.BidVolume[0] }
func (t *Tick) BestAsk() decimal.Decimal       { return t.AskPrice[0] }
func (t *Tick) BestAskVolume() decimal.Decimal { return t.AskVolume[0] }

// MidPrice returns the top-of-book midpoint, falling back to the last traded price.
// ok is false when the row carries neither.
func (t *Tick) MidPrice() (decimal.Decimal, bool) {
	bid, ask := t.BestBid(), t.BestAsk()
	if bid.IsPositive() && ask.IsPositive() {
		return bid.Add(ask).Div(two), true
	}
	if t.LastPrice.IsPositive() {
		return t.LastPrice, true
	}
	return decimal.Zero, false
}

func (t *Tick) validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrMalformedTick)
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedTick)
	}
	if t.BidDepth < 1 || t.BidDepth > MaxDepth || t.AskDepth < 1 || t.AskDepth > MaxDepth {
		return fmt.Errorf("%w: book depth must be between 1 and %d", ErrMalformedTick, MaxDepth)
	}
	for i := 0; i < t.BidDepth; i++ {
		if t.BidPrice[i].IsNegative() || t.BidVolume[i].IsNegative() {
			return fmt.Errorf("%w: negative bid level %d", ErrMalformedTick, i+1)
		}
	}
	for i := 0; i < t.AskDepth; i++ {
		if t.AskPrice[i].IsNegative() || t.AskVolume[i].IsNegative() {
			return fmt.Errorf("%w: negative ask level %d", ErrMalformedTick, i+1)
		}
	}
	return nil
}

// ParseTick converts a wire record into a Tick, rejecting rows with missing or
// unparsable required fields. Deeper book levels and trade statistics are optional.
func ParseTick(rec *protocol.TickRecord) (*Tick, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: nil record", ErrMalformedTick)
	}

	t := &Tick{
		Symbol:    rec.Symbol,
		Timestamp: rec.Timestamp,
	}

	var err error
	t.BidDepth, err = parseLevels("bid", rec.BidPrices, rec.BidVolumes, &t.BidPrice, &t.BidVolume)
	if err != nil {
		return nil, err
	}
	t.AskDepth, err = parseLevels("ask", rec.AskPrices, rec.AskVolumes, &t.AskPrice, &t.AskVolume)
	if err != nil {
		return nil, err
	}

	required := []struct {
		name string
		src  string
		dst  *decimal.Decimal
	}{
		{"bid_fill", rec.BidFill, &t.BidFill},
		{"ask_fill", rec.AskFill, &t.AskFill},
		{"bf_price", rec.BfPrice, &t.BfPrice},
		{"af_price", rec.AfPrice, &t.AfPrice},
	}
	for _, f := range required {
		if f.src == "" {
			return nil, fmt.Errorf("%w: missing %s", ErrMalformedTick, f.name)
		}
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTick, f.name, err)
		}
	}

	optional := []struct {
		name string
		src  string
		dst  *decimal.Decimal
	}{
		{"traded_volume", rec.TradedVolume, &t.TradedVolume},
		{"traded_amount", rec.TradedAmount, &t.TradedAmount},
		{"last_price", rec.LastPrice, &t.LastPrice},
	}
	for _, f := range optional {
		if f.src == "" {
			continue
		}
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedTick, f.name, err)
		}
	}

	if err := t.validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// parseLevels fills prices/volumes from the wire slices and returns the depth.
// A level where both price and volume are blank ends the book; level 1 is mandatory.
func parseLevels(side string, prices, volumes []string, dstPrice, dstVolume *[MaxDepth]decimal.Decimal) (int, error) {
	if len(prices) != len(volumes) {
		return 0, fmt.Errorf("%w: %s has %d prices but %d volumes", ErrMalformedTick, side, len(prices), len(volumes))
	}
	if len(prices) > MaxDepth {
		return 0, fmt.Errorf("%w: %s has more than %d levels", ErrMalformedTick, side, MaxDepth)
	}

	depth := 0
	for i := range prices {
		if prices[i] == "" && volumes[i] == "" {
			break
		}
		if prices[i] == "" || volumes[i] == "" {
			return 0, fmt.Errorf("%w: %s level %d is incomplete", ErrMalformedTick, side, i+1)
		}

		p, err := decimal.NewFromString(prices[i])
		if err != nil {
			return 0, fmt.Errorf("%w: %s price %d: %v", ErrMalformedTick, side, i+1, err)
		}
		v, err := decimal.NewFromString(volumes[i])
		if err != nil {
			return 0, fmt.Errorf("%w: %s volume %d: %v", ErrMalformedTick, side, i+1, err)
		}
		dstPrice[i] = p
		dstVolume[i] = v
		depth++
	}

	if depth == 0 {
		return 0, fmt.Errorf("%w: missing %s level 1", ErrMalformedTick, side)
	}
	return depth, nil
}
