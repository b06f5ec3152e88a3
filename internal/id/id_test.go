package id

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SortableAndParseable(t *testing.T) {
	now := time.Date(2025, 1, 21, 15, 0, 0, 0, time.UTC)
	prev := ""
	for i := 0; i < 100; i++ {
		s := New(now)
		require.Len(t, s, 26)
		if prev != "" {
			assert.Greater(t, s, prev)
		}
		prev = s
	}

	parsed, err := ulid.Parse(prev)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), int64(parsed.Time()))
}
