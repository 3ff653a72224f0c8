// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// Memory is a fast, ephemeral document store. Useful for tests and dry runs
// where persistence across invocations is not wanted.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]json.RawMessage
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]json.RawMessage)}
}

// Get returns the document stored under key.
func (m *Memory) Get(ctx context.Context, key string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, schemas.ErrNotFound
	}
	out := make(json.RawMessage, len(doc))
	copy(out, doc)
	return out, nil
}

// Set stores a copy of the document under key.
func (m *Memory) Set(ctx context.Context, key string, doc json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make(json.RawMessage, len(doc))
	copy(stored, doc)
	m.docs[key] = stored
	return nil
}

var _ schemas.DocumentStore = (*Memory)(nil)
