package gateway

import "sync/atomic"

// Sequencer tags issued requests so a host can drop responses that arrive
// after a newer request was sent.
type Sequencer struct {
	last atomic.Uint64
}

// Next returns the tag for a newly issued request.
func (s *Sequencer) Next() uint64 {
	return s.last.Add(1)
}

// Current reports whether seq is still the latest issued tag.
func (s *Sequencer) Current(seq uint64) bool {
	return s.last.Load() == seq
}
