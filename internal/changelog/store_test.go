package changelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haltarr/haltarr/internal/arr"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "change-log.jsonl")
	store, err := NewStore(path, zerolog.Nop())
	require.NoError(t, err)
	return store, path
}

func TestStore_AppendAndReadBack(t *testing.T) {
	store, _ := newTestStore(t)

	entry := Entry{
		Service: arr.ServiceRadarr,
		ItemKey: "movie/12",
		ItemID:  12,
		Title:   "Example Movie",
		Quality: "Remux-2160p",
		Action:  ActionUnmonitorMovie,
	}
	require.NoError(t, store.Append(entry))

	entries, err := store.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, arr.ServiceRadarr, got.Service)
	assert.Equal(t, "movie/12", got.ItemKey)
	assert.Equal(t, "Example Movie", got.Title)
	assert.Equal(t, ActionUnmonitorMovie, got.Action)
	assert.False(t, got.Timestamp.IsZero(), "append should stamp the entry")
	assert.Equal(t, time.UTC, got.Timestamp.Location())
}

func TestStore_RecentNewestFirst(t *testing.T) {
	store, _ := newTestStore(t)

	for _, key := range []string{"movie/1", "movie/2", "movie/3"} {
		require.NoError(t, store.Append(Entry{Service: arr.ServiceRadarr, ItemKey: key, Action: ActionUnmonitorMovie}))
	}

	recent, err := store.Recent(2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "movie/3", recent[0].ItemKey)
	assert.Equal(t, "movie/2", recent[1].ItemKey)

	none, err := store.Recent(0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_SkipsMalformedTrailingLine(t *testing.T) {
	store, path := newTestStore(t)

	require.NoError(t, store.Append(Entry{Service: arr.ServiceRadarr, ItemKey: "movie/1", Action: ActionUnmonitorMovie}))
	require.NoError(t, store.Append(Entry{Service: arr.ServiceSonarr, ItemKey: "series/1/episode/2", Action: ActionUnmonitorEpisode}))

	// Simulate a torn write: a partial JSON document with no newline.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"service":"radarr","itemKey":"mov`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	entries, err := store.All()
	require.NoError(t, err)
	require.Len(t, entries, 2, "torn trailing line must be skipped, earlier records kept")
	assert.Equal(t, "movie/1", entries[0].ItemKey)
	assert.Equal(t, "series/1/episode/2", entries[1].ItemKey)

	// Appends after a torn line land on their own line and stay parseable.
	require.NoError(t, store.Append(Entry{Service: arr.ServiceRadarr, ItemKey: "movie/9", Action: ActionUnmonitorMovie}))
	entries, err = store.All()
	require.NoError(t, err)
	assert.Equal(t, "movie/9", entries[len(entries)-1].ItemKey)
}

func TestStore_Clear(t *testing.T) {
	store, path := newTestStore(t)

	require.NoError(t, store.Append(Entry{Service: arr.ServiceRadarr, ItemKey: "movie/1", Action: ActionUnmonitorMovie}))
	require.NoError(t, store.Clear())

	entries, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, entries)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size(), "clear must truncate durable storage")
}

func TestStore_MissingFileReadsEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	entries, err := store.All()
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.NoError(t, store.Clear(), "clearing a missing log is a no-op")
}
