package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	var got sample
	found, err := store.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "a", sample{Name: "first", Count: 1}))
	require.NoError(t, store.Set(ctx, "a", sample{Name: "second", Count: 2}))

	found, err = store.Get(ctx, "a", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, sample{Name: "second", Count: 2}, got)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")
	store, err := NewFileStore(path)
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	ctx := context.Background()

	store, err := NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set(ctx, "client:Exercises done-count", 4))

	reopened, err := NewFileStore(path)
	require.NoError(t, err)

	var n int
	found, err := reopened.Get(ctx, "client:Exercises done-count", &n)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 4, n)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewFileStore(path)
	assert.Error(t, err)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := NewRedisStoreWithClient(client, "fitdash:", time.Hour)
	defer store.Close()
	exerciseStore(t, store)

	assert.True(t, mr.Exists("fitdash:a"))
	assert.Equal(t, time.Hour, mr.TTL("fitdash:a"))

	mr.FastForward(2 * time.Hour)
	var got sample
	found, err := store.Get(context.Background(), "a", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewRedisStorePingsServer(t *testing.T) {
	mr := miniredis.RunT(t)

	store, err := NewRedisStore(RedisOptions{Addr: mr.Addr(), Prefix: "p:"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewRedisStore(RedisOptions{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
}
