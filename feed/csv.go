package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	backtest "github.com/0x5487/backtest-engine"
	"github.com/0x5487/backtest-engine/protocol"
)

// CSVSource reads tick rows from a CSV file with a header line.
//
// Recognized columns: symbol, timestamp, bid_price_N, bid_volume_N, ask_price_N,
// ask_volume_N (N = 1..10), bid_fill, ask_fill, bf_price, af_price, traded_volume,
// traded_amount and last_price. Unknown columns are ignored; deeper levels may be omitted.
type CSVSource struct {
	reader *csv.Reader
	cols   csvColumns
	line   int // line of the last row read
}

// csvColumns holds the column index of each field, -1 when absent.
type csvColumns struct {
	symbol    int
	timestamp int

	bidPrice  []int
	bidVolume []int
	askPrice  []int
	askVolume []int

	bidFill int
	askFill int
	bfPrice int
	afPrice int

	tradedVolume int
	tradedAmount int
	lastPrice    int
}

// NewCSVSource reads the header of r and returns a source over the remaining rows.
func NewCSVSource(r io.Reader) (*CSVSource, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("feed: %w: empty csv", backtest.ErrMalformedTick)
		}
		return nil, fmt.Errorf("feed: read csv header: %w", err)
	}

	cols, err := parseHeader(header)
	if err != nil {
		return nil, err
	}

	return &CSVSource{reader: reader, cols: cols, line: 1}, nil
}

func parseHeader(header []string) (csvColumns, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	lookup := func(name string) int {
		if i, ok := index[name]; ok {
			return i
		}
		return -1
	}

	cols := csvColumns{
		symbol:       lookup("symbol"),
		timestamp:    lookup("timestamp"),
		bidFill:      lookup("bid_fill"),
		askFill:      lookup("ask_fill"),
		bfPrice:      lookup("bf_price"),
		afPrice:      lookup("af_price"),
		tradedVolume: lookup("traded_volume"),
		tradedAmount: lookup("traded_amount"),
		lastPrice:    lookup("last_price"),
	}

	for n := 1; n <= backtest.MaxDepth; n++ {
		bp, bv := lookup(fmt.Sprintf("bid_price_%d", n)), lookup(fmt.Sprintf("bid_volume_%d", n))
		ap, av := lookup(fmt.Sprintf("ask_price_%d", n)), lookup(fmt.Sprintf("ask_volume_%d", n))
		if bp < 0 && bv < 0 && ap < 0 && av < 0 {
			break
		}
		cols.bidPrice = append(cols.bidPrice, bp)
		cols.bidVolume = append(cols.bidVolume, bv)
		cols.askPrice = append(cols.askPrice, ap)
		cols.askVolume = append(cols.askVolume, av)
	}

	required := map[string]int{
		"symbol":       cols.symbol,
		"timestamp":    cols.timestamp,
		"bid_fill":     cols.bidFill,
		"ask_fill":     cols.askFill,
		"bf_price":     cols.bfPrice,
		"af_price":     cols.afPrice,
		"bid_price_1":  -1,
		"bid_volume_1": -1,
		"ask_price_1":  -1,
		"ask_volume_1": -1,
	}
	if len(cols.bidPrice) > 0 {
		required["bid_price_1"] = cols.bidPrice[0]
		required["bid_volume_1"] = cols.bidVolume[0]
		required["ask_price_1"] = cols.askPrice[0]
		required["ask_volume_1"] = cols.askVolume[0]
	}
	for name, i := range required {
		if i < 0 {
			return cols, fmt.Errorf("feed: %w: csv header is missing %s", backtest.ErrMalformedTick, name)
		}
	}

	return cols, nil
}

// Next decodes the next row. It returns io.EOF after the last row.
func (s *CSVSource) Next() (*backtest.Tick, error) {
	fields, err := s.reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("feed: %w: %v", backtest.ErrMalformedTick, err)
	}
	s.line, _ = s.reader.FieldPos(0)

	rec, err := s.record(fields)
	if err != nil {
		return nil, lineError(s.line, err)
	}

	tick, err := backtest.ParseTick(rec)
	if err != nil {
		return nil, lineError(s.line, err)
	}
	return tick, nil
}

func (s *CSVSource) record(fields []string) (*protocol.TickRecord, error) {
	field := func(i int) string {
		if i < 0 || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	rec := &protocol.TickRecord{
		Symbol:       field(s.cols.symbol),
		BidFill:      field(s.cols.bidFill),
		AskFill:      field(s.cols.askFill),
		BfPrice:      field(s.cols.bfPrice),
		AfPrice:      field(s.cols.afPrice),
		TradedVolume: field(s.cols.tradedVolume),
		TradedAmount: field(s.cols.tradedAmount),
		LastPrice:    field(s.cols.lastPrice),
	}

	if ts := field(s.cols.timestamp); ts != "" {
		v, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", backtest.ErrMalformedTick, err)
		}
		rec.Timestamp = v
	}

	rec.BidPrices = pick(field, s.cols.bidPrice)
	rec.BidVolumes = pick(field, s.cols.bidVolume)
	rec.AskPrices = pick(field, s.cols.askPrice)
	rec.AskVolumes = pick(field, s.cols.askVolume)
	return rec, nil
}

func pick(field func(int) string, cols []int) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = field(c)
	}
	return out
}
