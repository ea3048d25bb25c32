package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampWindow(t *testing.T) {
	cases := []struct{ in, want int }{
		{5, minWindowSeconds},
		{10, 10},
		{60, 60},
		{3600, 3600},
		{99999, maxWindowSeconds},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, clampWindow(c.in))
	}
}
