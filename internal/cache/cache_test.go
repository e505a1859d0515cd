package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pyrite/internal/testutil"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"), WithNow(func() time.Time {
		return base.Add(time.Duration(clock.Next()) * time.Second)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func entry(key, module, build string) Entry {
	return Entry{
		Key:        key,
		ModuleName: module,
		CCode:      "// " + module,
		MkCode:     "mk",
		CMakeCode:  "cmake",
		BuildID:    build,
	}
}

func TestKeyChangesWithSourceAndVersion(t *testing.T) {
	k1 := Key("def f(): pass", "0.3.0")
	k2 := Key("def g(): pass", "0.3.0")
	k3 := Key("def f(): pass", "0.4.0")

	assert.Len(t, k1, 64)
	assert.NotEqual(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Equal(t, k1, Key("def f(): pass", "0.3.0"))
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("k1", "mathx", "build-1")))

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "mathx", got.ModuleName)
	assert.Equal(t, "// mathx", got.CCode)
	assert.Equal(t, "build-1", got.BuildID)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 1, 0, time.UTC), got.CreatedAt)
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t)

	_, ok, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPutIsIdempotent(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("k1", "mathx", "build-1")))
	require.NoError(t, c.Put(ctx, entry("k1", "mathx", "build-2")))

	got, ok, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "build-1", got.BuildID, "first entry wins")
}

func TestListNewestFirst(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("k1", "alpha", "build-1")))
	require.NoError(t, c.Put(ctx, entry("k2", "beta", "build-2")))
	require.NoError(t, c.Put(ctx, entry("k3", "gamma", "build-3")))

	entries, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "gamma", entries[0].ModuleName)
	assert.Equal(t, "beta", entries[1].ModuleName)
	assert.Equal(t, "alpha", entries[2].ModuleName)
}

func TestClear(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, entry("k1", "alpha", "build-1")))
	require.NoError(t, c.Put(ctx, entry("k2", "beta", "build-2")))

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, c1.Put(context.Background(), entry("k1", "mathx", "build-1")))
	require.NoError(t, c1.Close())

	c2, err := Open(path)
	require.NoError(t, err)
	defer c2.Close()

	_, ok, err := c2.Get(context.Background(), "k1")
	require.NoError(t, err)
	assert.True(t, ok, "entries survive reopen")
}
