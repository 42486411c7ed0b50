package backtest

import "io"

// TickSource yields tick rows in chronological order.
// Next returns io.EOF once the stream is exhausted; any other error aborts the replay.
type TickSource interface {
	Next() (*Tick, error)
}

// SliceSource replays ticks held in memory.
type SliceSource struct {
	ticks []*Tick
	pos   int
}

// NewSliceSource creates a SliceSource over ticks.
func NewSliceSource(ticks ...*Tick) *SliceSource {
	return &SliceSource{ticks: ticks}
}

func (s *SliceSource) Next() (*Tick, error) {
	if s.pos >= len(s.ticks) {
		return nil, io.EOF
	}
	t := s.ticks[s.pos]
	s.pos++
	return t, nil
}
