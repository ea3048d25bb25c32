// Package rules implements the threshold evaluator (§4.4) and its
// hot-reloadable rule snapshot (§4.3).
package rules

import (
	"sync/atomic"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// Snapshot holds the current enabled rule set behind a single atomic
// pointer: get() returns the current reference with no copy, set() swaps it
// atomically. Readers observe either the previous or the next list in full,
// never a partial mix — the parallel-runtime variant of §4.3's store.
type Snapshot struct {
	rules atomic.Pointer[[]model.Rule]
}

func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	empty := []model.Rule{}
	s.rules.Store(&empty)
	return s
}

// Get returns the current rule list. Callers must not mutate the returned
// slice.
func (s *Snapshot) Get() []model.Rule {
	return *s.rules.Load()
}

// Set atomically replaces the rule list.
func (s *Snapshot) Set(next []model.Rule) {
	cp := make([]model.Rule, len(next))
	copy(cp, next)
	s.rules.Store(&cp)
}
