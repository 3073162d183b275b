package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFull(t *testing.T) {
	full := Full()
	assert.True(t, strings.HasPrefix(full, "kredefy/"))
	assert.NotEmpty(t, Commit())
	assert.NotContains(t, full, " ")
}

func TestCommitStable(t *testing.T) {
	assert.Equal(t, Commit(), Commit())
}
