package client

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	token, err := store.Load()
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.Save("tok-1"))
	require.NoError(t, store.Save("tok-2"))

	token, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)

	require.NoError(t, store.Clear())
	token, err = store.Load()
	require.NoError(t, err)
	require.Empty(t, token)

	// Clearing an already empty store is a no-op
	require.NoError(t, store.Clear())
}

func TestNotifyingStorePublishesWrites(t *testing.T) {
	store := NewNotifyingStore(NewMemoryStore())

	var mu sync.Mutex
	var seen []string
	store.Subscribe(func(token string) {
		mu.Lock()
		seen = append(seen, token)
		mu.Unlock()
	})

	require.NoError(t, store.Save("tok-1"))
	require.NoError(t, store.Clear())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"tok-1", ""}, seen)
}

func TestNotifyingStoreServesCachedReads(t *testing.T) {
	inner := NewMemoryStore()
	store := NewNotifyingStore(inner)

	require.NoError(t, store.Save("tok-1"))

	// A write bypassing this store is invisible until the next write
	// through it: the cache is only invalidated by its own publishes.
	require.NoError(t, inner.Save("sneaky"))

	token, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-1", token)

	require.NoError(t, store.Save("tok-2"))
	token, err = store.Load()
	require.NoError(t, err)
	require.Equal(t, "tok-2", token)
}

func TestNotifyingStoreLoadsThroughOnColdCache(t *testing.T) {
	inner := NewMemoryStore()
	require.NoError(t, inner.Save("existing"))

	store := NewNotifyingStore(inner)
	token, err := store.Load()
	require.NoError(t, err)
	require.Equal(t, "existing", token)
}
