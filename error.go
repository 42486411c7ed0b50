package backtest

import "errors"

var (
	ErrInvalidOrder    = errors.New("the order is invalid")
	ErrNotFound        = errors.New("not found")
	ErrUnknownSymbol   = errors.New("no contract registered for symbol")
	ErrMalformedTick   = errors.New("malformed tick row")
	ErrInvalidParam    = errors.New("the param is invalid")
	ErrInvalidState    = errors.New("engine is not in a valid state for this operation")
	ErrTimeout         = errors.New("timeout")
	ErrCapacityReached = errors.New("order book capacity reached")
)
