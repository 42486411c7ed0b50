package feed

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	backtest "github.com/0x5487/backtest-engine"
	"github.com/0x5487/backtest-engine/protocol"
)

const maxJSONLine = 1 << 20

// JSONLSource reads one protocol.TickRecord per line. Blank lines are skipped.
type JSONLSource struct {
	scanner    *bufio.Scanner
	serializer protocol.Serializer
	line       int
}

// NewJSONLSource creates a JSONLSource decoding lines with serializer.
func NewJSONLSource(r io.Reader, serializer protocol.Serializer) *JSONLSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLine)

	return &JSONLSource{
		scanner:    scanner,
		serializer: serializer,
	}
}

// Next decodes the next record. It returns io.EOF after the last line.
func (s *JSONLSource) Next() (*backtest.Tick, error) {
	for s.scanner.Scan() {
		s.line++
		data := bytes.TrimSpace(s.scanner.Bytes())
		if len(data) == 0 {
			continue
		}

		var rec protocol.TickRecord
		if err := s.serializer.Unmarshal(data, &rec); err != nil {
			return nil, lineError(s.line, fmt.Errorf("%w: %v", backtest.ErrMalformedTick, err))
		}

		tick, err := backtest.ParseTick(&rec)
		if err != nil {
			return nil, lineError(s.line, err)
		}
		return tick, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("feed: read line %d: %w", s.line+1, err)
	}
	return nil, io.EOF
}
