// Package variables holds named values captured from earlier calls so later
// requests and poll conditions can reference them as {{name}}.
package variables

import (
	"context"
	"regexp"
	"sync"
)

// Store is a key/value scope carried on a context.
type Store interface {
	Set(key, value string)
	Get(key string) (string, bool)
	// Snapshot returns a copy of all stored variables.
	Snapshot() map[string]string
}

// MemoryStore is a map-backed Store, safe for concurrent use.
type MemoryStore struct {
	mu        sync.RWMutex
	variables map[string]string
}

// NewStore creates an empty MemoryStore, optionally seeded with initial values.
func NewStore(initial map[string]string) *MemoryStore {
	s := &MemoryStore{variables: make(map[string]string, len(initial))}
	for k, v := range initial {
		s.variables[k] = v
	}
	return s
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.variables[key] = value
	m.mu.Unlock()
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.variables[key]
	return value, ok
}

func (m *MemoryStore) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string, len(m.variables))
	for key, value := range m.variables {
		result[key] = value
	}
	return result
}

type contextKey struct{}

// FromContext returns the store attached to ctx, or nil.
func FromContext(ctx context.Context) Store {
	if ctx == nil {
		return nil
	}
	if s, ok := ctx.Value(contextKey{}).(Store); ok {
		return s
	}
	return nil
}

// NewContext returns a copy of ctx carrying store.
func NewContext(ctx context.Context, store Store) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, contextKey{}, store)
}

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Expand replaces {{name}} placeholders with values from store. Unknown names
// are left untouched so a missing capture stays visible in logs.
func Expand(s string, store Store) string {
	if store == nil || s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholderPattern.FindStringSubmatch(match)[1]
		if value, ok := store.Get(name); ok {
			return value
		}
		return match
	})
}
