// Package cache provides the key-value store abstraction the analytics engine
// uses for result caching. The computational core never touches a store
// directly; the orchestrator injects one.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a get/set/delete/expire key-value store.
type Store interface {
	// Get unmarshals the value stored under key into dest.
	Get(key string, dest interface{}) error
	// Set stores value under key with the given time-to-live.
	Set(key string, value interface{}, ttl time.Duration) error
	// Delete removes a key. Deleting an absent key is not an error.
	Delete(key string) error
	// Expire overrides the remaining time-to-live of a key.
	Expire(key string, ttl time.Duration) error
}

// Key builds a deterministic cache key from a prefix and a set of asset
// identifiers. Assets are sorted before hashing so the key is order
// independent.
func Key(prefix string, assets []string) string {
	sorted := make([]string, len(assets))
	copy(sorted, assets)
	sort.Strings(sorted)
	h := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return prefix + ":" + hex.EncodeToString(h[:16])
}

type memoryEntry struct {
	payload   []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store used by tests and short-lived runs.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

// Get implements Store.
func (m *MemoryStore) Get(key string, dest interface{}) error {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		return ErrNotFound
	}
	return msgpack.Unmarshal(entry.payload, dest)
}

// Set implements Store.
func (m *MemoryStore) Set(key string, value interface{}, ttl time.Duration) error {
	payload, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[key] = memoryEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// Expire implements Store.
func (m *MemoryStore) Expire(key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return ErrNotFound
	}
	entry.expiresAt = time.Now().Add(ttl)
	m.entries[key] = entry
	return nil
}
