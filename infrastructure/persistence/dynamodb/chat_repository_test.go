package dynamodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageSortKey(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)

	t.Run("round trips the timestamp", func(t *testing.T) {
		got, err := messageTimestamp(messageSortKey(ts))
		require.NoError(t, err)
		assert.True(t, got.Equal(ts))
	})

	t.Run("identical timestamps yield distinct keys", func(t *testing.T) {
		assert.NotEqual(t, messageSortKey(ts), messageSortKey(ts))
	})

	t.Run("orders against a bare timestamp cursor", func(t *testing.T) {
		cursor := ts.Format(time.RFC3339Nano)
		// A message at exactly the cursor time is not strictly older.
		assert.Greater(t, messageSortKey(ts), cursor)
		assert.Less(t, messageSortKey(ts.Add(-time.Second)), cursor)
	})

	t.Run("bare timestamps from older rows still parse", func(t *testing.T) {
		got, err := messageTimestamp(ts.Format(time.RFC3339Nano))
		require.NoError(t, err)
		assert.True(t, got.Equal(ts))
	})
}
