package engine

import "sync/atomic"

// IDSource allocates process-wide, strictly increasing order ids. It is
// guarded independently of any book, so id allocation never serializes
// submissions for unrelated symbols. Ids are never reused; cancellation
// does not return an id to the source.
type IDSource struct {
	last atomic.Int64
}

func (s *IDSource) Next() int64 {
	return s.last.Add(1)
}
