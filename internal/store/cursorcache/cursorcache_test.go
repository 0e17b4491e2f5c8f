package cursorcache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetGetClearRoundTrips(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	cache, err := Open(filepath.Join(dir, "cursor.db"))
	require.NoError(err)
	defer cache.Close()

	_, ok, err := cache.Get("raw_orders")
	require.NoError(err)
	require.False(ok)

	require.NoError(cache.Set("raw_orders", "123"))
	cursor, ok, err := cache.Get("raw_orders")
	require.NoError(err)
	require.True(ok)
	require.Equal("123", cursor)

	require.NoError(cache.Clear("raw_orders"))
	_, ok, err = cache.Get("raw_orders")
	require.NoError(err)
	require.False(ok)
}

func TestGetUnknownCollectionReturnsNotFound(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	cache, err := Open(filepath.Join(dir, "cursor.db"))
	require.NoError(err)
	defer cache.Close()

	_, ok, err := cache.Get("never_set")
	require.NoError(err)
	require.False(ok)
}
