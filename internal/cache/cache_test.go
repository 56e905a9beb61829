package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string    `msgpack:"name"`
	Value float64   `msgpack:"value"`
	Tags  []string  `msgpack:"tags"`
	When  time.Time `msgpack:"when"`
}

func TestKey_OrderIndependent(t *testing.T) {
	k1 := Key("cov", []string{"BTC", "ETH", "SOL"})
	k2 := Key("cov", []string{"SOL", "BTC", "ETH"})
	k3 := Key("cov", []string{"BTC", "ETH"})

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "cov:")
}

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()

	in := payload{Name: "risk", Value: -0.05, Tags: []string{"var", "daily"}}
	require.NoError(t, store.Set("k", in, time.Minute))

	var out payload
	require.NoError(t, store.Get("k", &out))
	assert.Equal(t, in.Name, out.Name)
	assert.InDelta(t, in.Value, out.Value, 1e-12)
	assert.Equal(t, in.Tags, out.Tags)
}

func TestMemoryStore_Missing(t *testing.T) {
	store := NewMemoryStore()

	var out payload
	assert.ErrorIs(t, store.Get("absent", &out), ErrNotFound)
	assert.ErrorIs(t, store.Expire("absent", time.Minute), ErrNotFound)
	assert.NoError(t, store.Delete("absent"))
}

func TestMemoryStore_Expiry(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set("k", payload{Name: "x"}, -time.Second))

	var out payload
	assert.ErrorIs(t, store.Get("k", &out), ErrNotFound)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	in := payload{Name: "frontier", Value: 1.25}
	require.NoError(t, store.Set("k", in, time.Minute))

	var out payload
	require.NoError(t, store.Get("k", &out))
	assert.Equal(t, "frontier", out.Name)

	require.NoError(t, store.Delete("k"))
	assert.ErrorIs(t, store.Get("k", &out), ErrNotFound)
}

func TestSQLiteStore_ExpireAndPurge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set("k", payload{Name: "x"}, time.Hour))
	require.NoError(t, store.Expire("k", -time.Second))

	var out payload
	assert.ErrorIs(t, store.Get("k", &out), ErrNotFound)
	assert.NoError(t, store.Purge())
	assert.ErrorIs(t, store.Expire("k", time.Minute), ErrNotFound)
}
