package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *RequestLog {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "requests.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func sptr(s string) *string { return &s }

func TestInsertAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	id, err := l.Insert(ctx, "user-1", "a pirate ship approaches", sptr("pirates"), sptr("corsair"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, id, e.ID)
	assert.Equal(t, "user-1", e.UserID)
	assert.Equal(t, "a pirate ship approaches", e.Text)
	assert.Equal(t, "pirates", e.SoundID)
	assert.Equal(t, "corsair", e.ThemeID)
	assert.WithinDuration(t, time.Now().UTC(), e.CreatedAt, time.Minute)
}

func TestInsertNilPicks(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	_, err := l.Insert(ctx, "user-1", "just chatting", nil, nil)
	require.NoError(t, err)

	entries, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].SoundID)
	assert.Empty(t, entries[0].ThemeID)
}

func TestRecentOrderAndLimit(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := l.Insert(ctx, "user-1", "turn", nil, nil)
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := 1; i < len(entries); i++ {
		assert.False(t, entries[i].CreatedAt.After(entries[i-1].CreatedAt),
			"entries must be newest first")
	}
}

func TestOpenReopensExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "requests.db")
	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.Insert(context.Background(), "user-1", "hello", nil, nil)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l2, err := Open(path)
	require.NoError(t, err)
	defer l2.Close()
	entries, err := l2.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
