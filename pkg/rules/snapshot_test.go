package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/eventpulse/eventpulse/pkg/model"
)

func TestSnapshotStartsEmpty(t *testing.T) {
	s := NewSnapshot()
	assert.Empty(t, s.Get())
}

func TestSnapshotSetReplacesList(t *testing.T) {
	s := NewSnapshot()
	s.Set([]model.Rule{{RuleID: "r1"}, {RuleID: "r2"}})
	assert.Len(t, s.Get(), 2)

	s.Set([]model.Rule{{RuleID: "r3"}})
	got := s.Get()
	assert.Len(t, got, 1)
	assert.Equal(t, "r3", got[0].RuleID)
}

func TestSnapshotSetCopiesInput(t *testing.T) {
	input := []model.Rule{{RuleID: "r1"}}
	s := NewSnapshot()
	s.Set(input)

	input[0].RuleID = "mutated"
	assert.Equal(t, "r1", s.Get()[0].RuleID, "Set must defensively copy, not alias the caller's slice")
}
