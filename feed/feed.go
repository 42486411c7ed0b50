// Package feed reads tick rows from files into backtest.TickSource implementations.
package feed

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	backtest "github.com/0x5487/backtest-engine"
	"github.com/0x5487/backtest-engine/protocol"
)

// Format names a supported tick file layout.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
)

// DetectFormat picks the format from a file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	}
	return "", fmt.Errorf("feed: unsupported tick file %q", path)
}

// NewSource returns a TickSource decoding r in the given format.
func NewSource(format Format, r io.Reader) (backtest.TickSource, error) {
	switch format {
	case FormatCSV:
		return NewCSVSource(r)
	case FormatJSONL:
		return NewJSONLSource(r, &protocol.DefaultJSONSerializer{}), nil
	}
	return nil, fmt.Errorf("feed: unsupported format %q", format)
}

// lineError decorates a parse failure with the input line it came from.
func lineError(line int, err error) error {
	return fmt.Errorf("line %d: %w", line, err)
}
