package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exact", Truncate("exact", 5))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	// max<=0 表示不限制
	assert.Equal(t, "anything", Truncate("anything", 0))

	long := strings.Repeat("x", 100)
	got := Truncate(long, 10)
	assert.Len(t, got, 13)
	assert.True(t, strings.HasSuffix(got, "..."))
}
