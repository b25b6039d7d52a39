package localcache_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safekid-nepal/safekid-api/localcache"
)

type entry struct {
	Name   string `json:"name"`
	Tokens int    `json:"tokens"`
}

func newCache(t *testing.T) *localcache.Cache {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := localcache.New(ctx, "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, localcache.NamespaceSessions, "tok", entry{Name: "Sita", Tokens: 100}))

	var got entry
	ok, err := c.Get(ctx, localcache.NamespaceSessions, "tok", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entry{Name: "Sita", Tokens: 100}, got)

	// overwrite keeps a single row
	require.NoError(t, c.Put(ctx, localcache.NamespaceSessions, "tok", entry{Name: "Sita", Tokens: 20}))
	ok, err = c.Get(ctx, localcache.NamespaceSessions, "tok", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 20, got.Tokens)
}

func TestGetMissing(t *testing.T) {
	c := newCache(t)

	var got entry
	ok, err := c.Get(context.Background(), localcache.NamespaceSessions, "nope", &got)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteAndAll(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, localcache.NamespaceSessions, "a", entry{Name: "A"}))
	require.NoError(t, c.Put(ctx, localcache.NamespaceSessions, "b", entry{Name: "B"}))
	require.NoError(t, c.Put(ctx, localcache.NamespaceReports, "snapshot", []int{1, 2}))

	all, err := c.All(ctx, localcache.NamespaceSessions)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	var b entry
	require.NoError(t, json.Unmarshal(all["b"], &b))
	assert.Equal(t, "B", b.Name)

	require.NoError(t, c.Delete(ctx, localcache.NamespaceSessions, "a"))
	require.NoError(t, c.Delete(ctx, localcache.NamespaceSessions, "a"))

	all, err = c.All(ctx, localcache.NamespaceSessions)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_, ok := all["a"]
	assert.False(t, ok)
}
