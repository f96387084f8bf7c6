package finsight

import "sync/atomic"

// Sequence issues request tokens so that only the most recent of several
// overlapping requests is honoured: "last request wins".
//
//	tok := seq.Next()
//	res, err := call()
//	if !seq.Current(tok) {
//		return ErrStale
//	}
type Sequence struct {
	n atomic.Uint64
}

// Next invalidates every previous token and returns a new one.
func (s *Sequence) Next() uint64 { return s.n.Add(1) }

// Current reports whether tok is still the latest token.
func (s *Sequence) Current(tok uint64) bool { return s.n.Load() == tok }
