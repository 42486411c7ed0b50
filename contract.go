package backtest

import (
	"fmt"
	"io"
	"sort"

	"github.com/0x5487/backtest-engine/protocol"
	"github.com/shopspring/decimal"
)

type CommissionKind = protocol.CommissionKind

const (
	CommissionValue   CommissionKind = protocol.CommissionValue
	CommissionPercent CommissionKind = protocol.CommissionPercent
)

// Contract holds the per-symbol commission configuration.
// Factor converts quoted price × quantity into settlement units (contract multiplier).
type Contract struct {
	Symbol          string          `json:"symbol"`
	CommissionKind  CommissionKind  `json:"commission_kind"`
	CommissionValue decimal.Decimal `json:"commission_value"`
	Factor          decimal.Decimal `json:"factor"`
}

// Commission returns the fee charged for trading qty at price.
func (c Contract) Commission(qty, price decimal.Decimal) decimal.Decimal {
	switch c.CommissionKind {
	case CommissionValue:
		return c.CommissionValue.Mul(qty)
	case CommissionPercent:
		return c.CommissionValue.Mul(price).Mul(qty).Mul(c.Factor)
	}
	return decimal.Zero
}

func (c Contract) validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: contract symbol is empty", ErrInvalidParam)
	}
	if c.CommissionKind != CommissionValue && c.CommissionKind != CommissionPercent {
		return fmt.Errorf("%w: unknown commission kind %q for %s", ErrInvalidParam, c.CommissionKind, c.Symbol)
	}
	if c.CommissionValue.IsNegative() {
		return fmt.Errorf("%w: negative commission for %s", ErrInvalidParam, c.Symbol)
	}
	if !c.Factor.IsPositive() {
		return fmt.Errorf("%w: factor must be positive for %s", ErrInvalidParam, c.Symbol)
	}
	return nil
}

// ContractProvider resolves the contract of a symbol.
type ContractProvider interface {
	Contract(symbol string) (Contract, bool)
}

// ContractBook is an in-memory ContractProvider.
type ContractBook struct {
	contracts map[string]Contract
}

// NewContractBook creates a ContractBook holding the given contracts.
func NewContractBook(contracts ...Contract) (*ContractBook, error) {
	book := &ContractBook{
		contracts: make(map[string]Contract, len(contracts)),
	}
	for _, c := range contracts {
		if err := book.Register(c); err != nil {
			return nil, err
		}
	}
	return book, nil
}

// Register adds or replaces the contract for c.Symbol.
func (b *ContractBook) Register(c Contract) error {
	if err := c.validate(); err != nil {
		return err
	}
	b.contracts[c.Symbol] = c
	return nil
}

// Contract returns the contract registered for symbol.
func (b *ContractBook) Contract(symbol string) (Contract, bool) {
	c, ok := b.contracts[symbol]
	return c, ok
}

// Symbols returns the registered symbols in lexical order.
func (b *ContractBook) Symbols() []string {
	symbols := make([]string, 0, len(b.contracts))
	for s := range b.contracts {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}

// LoadContracts decodes a symbol → contract document.
// An empty factor defaults to 1.
func LoadContracts(r io.Reader, serializer protocol.Serializer) (*ContractBook, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	records := make(map[string]protocol.ContractRecord)
	if err := serializer.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode contracts: %w", err)
	}

	book, _ := NewContractBook()
	for symbol, rec := range records {
		c := Contract{
			Symbol:         symbol,
			CommissionKind: rec.CommissionKind,
			Factor:         decimal.NewFromInt(1),
		}
		if rec.CommissionValue != "" {
			if c.CommissionValue, err = decimal.NewFromString(rec.CommissionValue); err != nil {
				return nil, fmt.Errorf("%w: commission_value for %s: %v", ErrInvalidParam, symbol, err)
			}
		}
		if rec.Factor != "" {
			if c.Factor, err = decimal.NewFromString(rec.Factor); err != nil {
				return nil, fmt.Errorf("%w: factor for %s: %v", ErrInvalidParam, symbol, err)
			}
		}
		if err := book.Register(c); err != nil {
			return nil, err
		}
	}
	return book, nil
}
