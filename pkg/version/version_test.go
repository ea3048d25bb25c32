package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullIncludesAppName(t *testing.T) {
	assert.True(t, strings.HasPrefix(Full(), AppName+"/"))
}
