package backtest

import "github.com/shopspring/decimal"

// Records holds one entry per replayed row in each column.
// A fill price column is null on rows without a fill of that side.
type Records struct {
	Timestamp     []int64               `json:"timestamp"`
	NAV           []decimal.Decimal     `json:"nav"`
	Position      []decimal.Decimal     `json:"position"`
	Commission    []decimal.Decimal     `json:"commission"`
	BuyFillPrice  []decimal.NullDecimal `json:"buy_fill_price"`
	SellFillPrice []decimal.NullDecimal `json:"sell_fill_price"`
}

func newRecords() *Records {
	return &Records{
		Timestamp:     make([]int64, 0, 1024),
		NAV:           make([]decimal.Decimal, 0, 1024),
		Position:      make([]decimal.Decimal, 0, 1024),
		Commission:    make([]decimal.Decimal, 0, 1024),
		BuyFillPrice:  make([]decimal.NullDecimal, 0, 1024),
		SellFillPrice: make([]decimal.NullDecimal, 0, 1024),
	}
}

func (r *Records) append(timestamp int64, state AccountState, buyFill, sellFill decimal.NullDecimal) {
	r.Timestamp = append(r.Timestamp, timestamp)
	r.NAV = append(r.NAV, state.NAV)
	r.Position = append(r.Position, state.Position)
	r.Commission = append(r.Commission, state.Commission)
	r.BuyFillPrice = append(r.BuyFillPrice, buyFill)
	r.SellFillPrice = append(r.SellFillPrice, sellFill)
}

// Len returns the number of recorded rows.
func (r *Records) Len() int {
	return len(r.Timestamp)
}

// BookSnapshot contains the resting orders of the simulated book.
type BookSnapshot struct {
	OrderID uint64  `json:"order_id"` // Last assigned order id
	TradeID uint64  `json:"trade_id"` // Last assigned trade id
	Bids    []Order `json:"bids"`     // Ordered list of bids (best price first)
	Asks    []Order `json:"asks"`     // Ordered list of asks (best price first)
}

// Report is the outcome of one replay.
type Report struct {
	RunID         string        `json:"run_id"`
	EngineVersion string        `json:"engine_version"`
	SchemaVersion int           `json:"schema_version"`
	Calibration   Calibration   `json:"calibration"`
	Records       *Records      `json:"records"`
	Trades        []Trade       `json:"trades"`
	OpenOrders    *BookSnapshot `json:"open_orders"`
	Account       AccountState  `json:"account"`
}
