// Package stats implements the statistical (bucketed z-score) evaluator of
// §4.5, generalizing the threshold evaluator's atomic-snapshot pattern to
// statistical profiles (SPEC_FULL.md §3).
package stats

import (
	"sync/atomic"

	"github.com/eventpulse/eventpulse/pkg/model"
)

// Snapshot holds the current enabled statistical profile set behind a
// single atomic pointer, mirroring rules.Snapshot.
type Snapshot struct {
	profiles atomic.Pointer[[]model.StatProfile]
}

func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	empty := []model.StatProfile{}
	s.profiles.Store(&empty)
	return s
}

func (s *Snapshot) Get() []model.StatProfile {
	return *s.profiles.Load()
}

func (s *Snapshot) Set(next []model.StatProfile) {
	cp := make([]model.StatProfile, len(next))
	copy(cp, next)
	s.profiles.Store(&cp)
}
