package archive

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"decent-ci/src/results"
)

// MemoryArchive is a thread-safe in-memory Archive and Lister.
// Used for local mode, the MCP server and tests.
type MemoryArchive struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryArchive creates an empty archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Create stores doc under a new id.
func (m *MemoryArchive) Create(ctx context.Context, path string, doc results.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.NewString()
	m.entries[id] = Entry{ID: id, Path: path, UpdatedAt: m.now(), Document: doc}
	return id, nil
}

// Update replaces the document stored under id. The id stays the same.
func (m *MemoryArchive) Update(ctx context.Context, id, path string, doc results.Document) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.entries[id]; !ok {
		return "", ErrNotFound{ID: id}
	}
	m.entries[id] = Entry{ID: id, Path: path, UpdatedAt: m.now(), Document: doc}
	return id, nil
}

// Put stores doc under a caller-chosen id, replacing any previous entry.
// Used to mirror documents received as events.
func (m *MemoryArchive) Put(id, path string, doc results.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[id] = Entry{ID: id, Path: path, UpdatedAt: m.now(), Document: doc}
}

// Get returns the entry stored under id.
func (m *MemoryArchive) Get(ctx context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return Entry{}, ErrNotFound{ID: id}
	}
	return e, nil
}

// List returns matching entries, newest first.
func (m *MemoryArchive) List(ctx context.Context, filter Filter) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for _, e := range m.entries {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Len returns the number of stored documents.
func (m *MemoryArchive) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
