package stats

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
	s.Set([]model.StatProfile{{ID: "p1"}, {ID: "p2"}})
	assert.Len(t, s.Get(), 2)

	s.Set([]model.StatProfile{{ID: "p3"}})
	got := s.Get()
	assert.Len(t, got, 1)
	assert.Equal(t, "p3", got[0].ID)
}

func TestSnapshotSetCopiesInput(t *testing.T) {
	input := []model.StatProfile{{ID: "p1"}}
	s := NewSnapshot()
	s.Set(input)

	input[0].ID = "mutated"
	assert.Equal(t, "p1", s.Get()[0].ID, "Set must defensively copy, not alias the caller's slice")
}
