package backtest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// EngineState is the lifecycle of a TickEngine: Idle → Running → Finished.
type EngineState int32

const (
	EngineIdle EngineState = iota
	EngineRunning
	EngineFinished
)

func (s EngineState) String() string {
	switch s {
	case EngineIdle:
		return "idle"
	case EngineRunning:
		return "running"
	case EngineFinished:
		return "finished"
	}
	return "unknown"
}

type engineOptions struct {
	calibration   Calibration
	initialCash   decimal.Decimal
	publisher     TradePublisher
	arenaCapacity int32
	maxOrders     int32
}

// EngineOption configures a TickEngine.
type EngineOption func(*engineOptions)

// WithQueueParam sets the multiplier applied to the displayed best volume when an
// order's queue position is first estimated. Default 1.
func WithQueueParam(v decimal.Decimal) EngineOption {
	return func(o *engineOptions) {
		o.calibration.QueueParam = v
	}
}

// WithFillParam sets the multiplier applied to the simulator's own queue estimate
// when boosting the observed fill signal. Default 1.
func WithFillParam(v decimal.Decimal) EngineOption {
	return func(o *engineOptions) {
		o.calibration.FillParam = v
	}
}

// WithInitialCash sets the starting cash of the account.
func WithInitialCash(v decimal.Decimal) EngineOption {
	return func(o *engineOptions) {
		o.initialCash = v
	}
}

// WithTradePublisher receives every trade in production order.
func WithTradePublisher(p TradePublisher) EngineOption {
	return func(o *engineOptions) {
		o.publisher = p
	}
}

// WithArenaCapacity presizes the order and level arenas.
func WithArenaCapacity(capacity int32) EngineOption {
	return func(o *engineOptions) {
		o.arenaCapacity = capacity
	}
}

// WithMaxOrders bounds the number of resting orders. SendOrder fails with
// ErrCapacityReached beyond it.
func WithMaxOrders(n int32) EngineOption {
	return func(o *engineOptions) {
		o.maxOrders = n
	}
}

// TickEngine replays a tick stream against the resting orders of one strategy.
// All replay state lives on the instance, so independent engines can run side by side.
// A TickEngine runs once; its Broker methods must only be called from strategy callbacks.
type TickEngine struct {
	state atomic.Int32
	runID xid.ID

	opts      engineOptions
	contracts ContractProvider
	strategy  Strategy

	book    *OrderBook
	account *account
	records *Records
	trades  []Trade

	tick          *Tick // row currently being replayed
	lastTimestamp int64
	rows          int64
}

// NewTickEngine creates an idle engine driving strategy. Orders are priced with contracts.
func NewTickEngine(contracts ContractProvider, strategy Strategy, opts ...EngineOption) (*TickEngine, error) {
	if contracts == nil {
		return nil, fmt.Errorf("%w: contracts is nil", ErrInvalidParam)
	}
	if strategy == nil {
		strategy = NopStrategy{}
	}

	options := engineOptions{
		calibration: Calibration{
			QueueParam: decimal.NewFromInt(1),
			FillParam:  decimal.NewFromInt(1),
		},
		initialCash:   decimal.Zero,
		publisher:     NewDiscardTradePublisher(),
		arenaCapacity: defaultArenaCapacity,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.calibration.QueueParam.IsNegative() {
		return nil, fmt.Errorf("%w: queue_param must not be negative", ErrInvalidParam)
	}
	if options.calibration.FillParam.IsNegative() {
		return nil, fmt.Errorf("%w: fill_param must not be negative", ErrInvalidParam)
	}
	if options.maxOrders < 0 {
		return nil, fmt.Errorf("%w: max orders must not be negative", ErrInvalidParam)
	}
	if options.publisher == nil {
		return nil, fmt.Errorf("%w: trade publisher is nil", ErrInvalidParam)
	}

	return &TickEngine{
		runID:     xid.New(),
		opts:      options,
		contracts: contracts,
		strategy:  strategy,
		book:      NewOrderBook(options.arenaCapacity, options.maxOrders),
		account:   newAccount(options.initialCash),
		records:   newRecords(),
		trades:    make([]Trade, 0, 64),
	}, nil
}

// RunID identifies this replay in logs and in the report.
func (e *TickEngine) RunID() string {
	return e.runID.String()
}

// State returns the current lifecycle state.
func (e *TickEngine) State() EngineState {
	return EngineState(e.state.Load())
}

// Calibration returns the run-level constants of the replay.
func (e *TickEngine) Calibration() Calibration {
	return e.opts.calibration
}

// OrderBook exposes the simulated book for inspection.
func (e *TickEngine) OrderBook() *OrderBook {
	return e.book
}

// Start replays src to the end on the calling goroutine.
// A malformed or out-of-order row aborts the replay: the engine still finishes and the
// returned report covers the rows replayed before the failure.
func (e *TickEngine) Start(src TickSource) (*Report, error) {
	if err := e.begin(); err != nil {
		return nil, err
	}

	var runErr error
	for {
		tick, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			runErr = fmt.Errorf("read tick %d: %w", e.rows+1, err)
			break
		}
		if err := e.step(tick); err != nil {
			runErr = fmt.Errorf("replay tick %d: %w", e.rows+1, err)
			break
		}
	}

	return e.finish(runErr)
}

// tickHandler feeds ring buffer events into the replay loop.
type tickHandler struct {
	engine *TickEngine
	failed atomic.Bool
	err    error
}

func (h *tickHandler) OnEvent(tick *Tick) {
	if h.failed.Load() {
		return
	}
	if err := h.engine.step(tick); err != nil {
		h.err = fmt.Errorf("replay tick %d: %w", h.engine.rows+1, err)
		h.failed.Store(true)
	}
}

// StartPipelined reads src on the calling goroutine while a single consumer goroutine
// matches the rows, handing them over through a ring buffer of the given capacity
// (a power of 2). The outcome is identical to Start.
// If ctx expires before the consumer has drained, ErrTimeout is returned and the engine
// is left running.
func (e *TickEngine) StartPipelined(ctx context.Context, src TickSource, capacity int64) (*Report, error) {
	if !isPowerOfTwo(capacity) {
		return nil, fmt.Errorf("%w: pipeline capacity %d is not a power of 2", ErrInvalidParam, capacity)
	}
	if err := e.begin(); err != nil {
		return nil, err
	}

	handler := &tickHandler{engine: e}
	rb := NewRingBuffer[*Tick](capacity, handler)
	rb.Start()

	var readErr error
	var read int64
	for !handler.failed.Load() {
		if err := ctx.Err(); err != nil {
			readErr = err
			break
		}

		tick, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		read++
		if err != nil {
			readErr = fmt.Errorf("read tick %d: %w", read, err)
			break
		}
		rb.Publish(tick)
	}

	if err := rb.Shutdown(ctx); err != nil {
		logger.Error("pipeline drain timed out", "run_id", e.RunID(), "pending", rb.PendingEvents())
		return nil, fmt.Errorf("drain pipeline: %w", err)
	}

	// a replay failure precedes the read error that stopped the producer
	runErr := handler.err
	if runErr == nil {
		runErr = readErr
	}
	return e.finish(runErr)
}

func (e *TickEngine) begin() error {
	if !e.state.CompareAndSwap(int32(EngineIdle), int32(EngineRunning)) {
		return fmt.Errorf("%w: engine is %s", ErrInvalidState, e.State())
	}

	logger.Info("replay started",
		"run_id", e.RunID(),
		"queue_param", e.opts.calibration.QueueParam.String(),
		"fill_param", e.opts.calibration.FillParam.String(),
	)
	e.strategy.OnInit(e)
	return nil
}

func (e *TickEngine) finish(runErr error) (*Report, error) {
	e.state.Store(int32(EngineFinished))
	e.strategy.OnFinish()

	report := e.Report()
	if runErr != nil {
		logger.Error("replay aborted", "run_id", e.RunID(), "rows", e.rows, "error", runErr)
		return report, runErr
	}

	logger.Info("replay finished",
		"run_id", e.RunID(),
		"rows", e.rows,
		"trades", len(e.trades),
		"nav", report.Account.NAV.String(),
	)
	return report, nil
}

// step replays one row: match, book the fills, record, then hand the row to the strategy.
func (e *TickEngine) step(tick *Tick) error {
	if tick == nil {
		return fmt.Errorf("%w: nil tick", ErrMalformedTick)
	}
	if err := tick.validate(); err != nil {
		return err
	}
	if tick.Timestamp < e.lastTimestamp {
		return fmt.Errorf("%w: timestamp %d is before %d", ErrMalformedTick, tick.Timestamp, e.lastTimestamp)
	}

	e.lastTimestamp = tick.Timestamp
	e.tick = tick
	e.rows++

	trades := e.book.match(tick, e.opts.calibration)

	if mid, ok := tick.MidPrice(); ok {
		e.account.markToMarket(mid)
	}

	var buyFill, sellFill decimal.NullDecimal
	if len(trades) > 0 {
		e.trades = append(e.trades, trades...)
		e.opts.publisher.PublishTrades(trades...)
	}
	for i := range trades {
		trade := &trades[i]

		var commission decimal.Decimal
		if contract, ok := e.contracts.Contract(trade.Symbol); ok {
			commission = contract.Commission(trade.Quantity, trade.Price)
		}
		e.account.onTrade(trade, commission)

		if trade.Side == Buy {
			buyFill = decimal.NewNullDecimal(trade.Price)
		} else {
			sellFill = decimal.NewNullDecimal(trade.Price)
		}

		logger.Debug("order filled",
			"run_id", e.RunID(),
			"trade_id", trade.ID,
			"order_id", trade.OrderID,
			"side", trade.Side.String(),
			"price", trade.Price.String(),
			"qty", trade.Quantity.String(),
			"reason", string(trade.Reason),
		)
		e.strategy.OnTrade(*trade)
	}

	e.records.append(tick.Timestamp, e.account.state, buyFill, sellFill)
	e.strategy.OnTick(tick)
	return nil
}

// SendOrder validates and rests a limit order. The order is matched from the next row on.
func (e *TickEngine) SendOrder(symbol string, side Side, offset Offset, price, qty decimal.Decimal) (Order, error) {
	if e.State() != EngineRunning {
		return Order{}, fmt.Errorf("%w: engine is %s", ErrInvalidState, e.State())
	}

	if err := validateOrder(side, offset, price, qty); err != nil {
		logger.Warn("order rejected", "run_id", e.RunID(), "symbol", symbol, "error", err)
		return Order{}, err
	}
	if _, ok := e.contracts.Contract(symbol); !ok {
		logger.Warn("order rejected", "run_id", e.RunID(), "symbol", symbol, "error", ErrUnknownSymbol)
		return Order{}, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}

	order := Order{
		Symbol:   symbol,
		Side:     side,
		Offset:   offset,
		Price:    price,
		Quantity: qty,
	}
	if e.tick != nil {
		order.Timestamp = e.tick.Timestamp
	}
	order.AheadQty = initialAheadQty(&order, e.tick, e.opts.calibration)

	order, err := e.book.insert(order)
	if err != nil {
		logger.Warn("order rejected", "run_id", e.RunID(), "symbol", symbol, "error", err)
		return Order{}, err
	}
	e.account.onSubmit(&order)

	e.strategy.OnOrder(OrderEvent{Status: OrderAccepted, Order: order})
	return order, nil
}

func validateOrder(side Side, offset Offset, price, qty decimal.Decimal) error {
	if !side.Valid() {
		return fmt.Errorf("%w: unknown side %d", ErrInvalidOrder, side)
	}
	if !offset.Valid() {
		return fmt.Errorf("%w: unknown offset %d", ErrInvalidOrder, offset)
	}
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrder)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	return nil
}

// CancelOrder removes a resting order. It returns ErrNotFound for ids that are
// unknown, already canceled or already filled.
func (e *TickEngine) CancelOrder(id uint64) error {
	if e.State() != EngineRunning {
		return fmt.Errorf("%w: engine is %s", ErrInvalidState, e.State())
	}

	order, err := e.book.cancel(id)
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", id, err)
	}
	e.account.onCancel(&order)

	e.strategy.OnOrder(OrderEvent{Status: OrderCanceled, Order: order})
	return nil
}

// Order looks up a resting order.
func (e *TickEngine) Order(id uint64) (Order, bool) {
	return e.book.Order(id)
}

// Account returns the current bookkeeping.
func (e *TickEngine) Account() AccountState {
	return e.account.state
}

// Trades returns a copy of the trade log.
func (e *TickEngine) Trades() []Trade {
	trades := make([]Trade, len(e.trades))
	copy(trades, e.trades)
	return trades
}

// Report builds the outcome of the replay so far.
func (e *TickEngine) Report() *Report {
	return &Report{
		RunID:         e.RunID(),
		EngineVersion: EngineVersion,
		SchemaVersion: ReportSchemaVersion,
		Calibration:   e.opts.calibration,
		Records:       e.records,
		Trades:        e.Trades(),
		OpenOrders:    e.book.Snapshot(),
		Account:       e.account.state,
	}
}
