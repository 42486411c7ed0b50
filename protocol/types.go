package protocol

import (
	"fmt"
	"strings"
)

// MaxDepth is the number of book levels a tick row may carry per side.
const MaxDepth = 10

// TickRecord is the wire form of one market data row.
// Decimal fields are strings to prevent precision loss in JSON.
// BfPrice and AfPrice are the previous row's best bid and best ask, not the current row's.
type TickRecord struct {
	Symbol       string   `json:"symbol"`
	Timestamp    int64    `json:"timestamp"` // Unix nano
	BidPrices    []string `json:"bid_prices"`
	BidVolumes   []string `json:"bid_volumes"`
	AskPrices    []string `json:"ask_prices"`
	AskVolumes   []string `json:"ask_volumes"`
	BidFill      string   `json:"bid_fill"`
	AskFill      string   `json:"ask_fill"`
	BfPrice      string   `json:"bf_price"`
	AfPrice      string   `json:"af_price"`
	TradedVolume string   `json:"traded_volume,omitempty"`
	TradedAmount string   `json:"traded_amount,omitempty"`
	LastPrice    string   `json:"last_price,omitempty"`
}

// Side represents the order side (Buy/Sell).
type Side int8

const (
	SideBuy  Side = 1
	SideSell Side = 2
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	}
	return fmt.Sprintf("side(%d)", int8(s))
}

// Valid reports whether s is one of the two recognized sides.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("protocol: invalid side %d", int8(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "buy":
		*s = SideBuy
	case "sell":
		*s = SideSell
	default:
		return fmt.Errorf("protocol: invalid side %q", text)
	}
	return nil
}

// Offset tells whether an order opens or closes a position.
type Offset int8

const (
	OffsetOpen  Offset = 1
	OffsetClose Offset = 2
)

func (o Offset) String() string {
	switch o {
	case OffsetOpen:
		return "open"
	case OffsetClose:
		return "close"
	}
	return fmt.Sprintf("offset(%d)", int8(o))
}

// Valid reports whether o is one of the two recognized offsets.
func (o Offset) Valid() bool {
	return o == OffsetOpen || o == OffsetClose
}

func (o Offset) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("protocol: invalid offset %d", int8(o))
	}
	return []byte(o.String()), nil
}

func (o *Offset) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "open":
		*o = OffsetOpen
	case "close":
		*o = OffsetClose
	default:
		return fmt.Errorf("protocol: invalid offset %q", text)
	}
	return nil
}

// FillReason identifies which matching rule produced a fill.
type FillReason string

const (
	FillReasonSwept         FillReason = "swept"          // Market traded clean through the level
	FillReasonLevelCrossed  FillReason = "level-crossed"  // Price moved past a level that was not previously top-of-book
	FillReasonQueueDepleted FillReason = "queue-depleted" // Estimated queue ahead of the order reached zero
)

// CommissionKind selects how a contract charges commission.
type CommissionKind string

const (
	CommissionValue   CommissionKind = "value"   // Flat amount per unit of quantity
	CommissionPercent CommissionKind = "percent" // Fraction of traded notional
)

// ContractRecord is the wire form of a contract's commission configuration.
type ContractRecord struct {
	CommissionKind  CommissionKind `json:"commission_kind"`
	CommissionValue string         `json:"commission_value"`
	Factor          string         `json:"factor"`
}
