package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampLimit(t *testing.T) {
	cases := []struct {
		limit, max, want int
	}{
		{0, 500, 1},
		{9999, 500, 500},
		{-5, 500, 1},
		{50, 500, 50},
		{500, 500, 500},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ClampLimit(c.limit, c.max))
	}
}
