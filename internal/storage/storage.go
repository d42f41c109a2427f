// Package storage is the key-value layer behind per-visitor persisted state
// (session token, cart id, locale). Backends are last-write-wins.
package storage

import (
	"context"
	"fmt"
	"sync"
)

// Store is a string key-value store.
// Get reports ok=false for a missing key; that is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// Backend is a Store that owns a connection.
type Backend interface {
	Store
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	DatabaseURL   string
	SQLitePath    string
}

// Open connects to the configured backend. An empty backend name means memory.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		client, err := NewRedisClient(ctx, opts.RedisAddr, opts.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		return NewRedisStore(client, ""), nil
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case BackendSQLite:
		return NewSQLiteStore(ctx, opts.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Backend)
	}
}

// === Namespace ===

type namespace struct {
	parent Store
	prefix string
}

// Namespace scopes every key of parent under prefix + ":".
// Used to give each visitor its own copy of the fixed storage keys.
func Namespace(parent Store, prefix string) Store {
	return &namespace{parent: parent, prefix: prefix + ":"}
}

func (n *namespace) Get(ctx context.Context, key string) (string, bool, error) {
	return n.parent.Get(ctx, n.prefix+key)
}

func (n *namespace) Set(ctx context.Context, key, value string) error {
	return n.parent.Set(ctx, n.prefix+key, value)
}

func (n *namespace) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = n.prefix + k
	}
	return n.parent.Delete(ctx, prefixed...)
}

// === Memory ===

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *Memory) Close() error { return nil }
