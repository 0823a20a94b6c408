package archive

import (
	"context"
	"sync"

	"decent-ci/src/logger"
	"decent-ci/src/results"
)

// Mirrored writes to a primary archive and copies every document to
// secondary archives. Only primary failures are returned; mirror failures
// are logged.
type Mirrored struct {
	primary Archive
	mirrors []Archive
	log     logger.Logger

	mu  sync.Mutex
	ids map[string][]string // primary id -> mirror ids
}

// NewMirrored creates a Mirrored archive.
func NewMirrored(primary Archive, log logger.Logger, mirrors ...Archive) *Mirrored {
	return &Mirrored{
		primary: primary,
		mirrors: mirrors,
		log:     logger.OrDefault(log),
		ids:     make(map[string][]string),
	}
}

// Create writes doc to the primary and every mirror.
func (m *Mirrored) Create(ctx context.Context, path string, doc results.Document) (string, error) {
	id, err := m.primary.Create(ctx, path, doc)
	if err != nil {
		return "", err
	}

	mirrorIDs := make([]string, len(m.mirrors))
	for i, mirror := range m.mirrors {
		mid, err := mirror.Create(ctx, path, doc)
		if err != nil {
			m.log.Warn("[Archive] Mirror %d create failed for %s: %v", i, path, err)
			continue
		}
		mirrorIDs[i] = mid
	}

	m.mu.Lock()
	m.ids[id] = mirrorIDs
	m.mu.Unlock()
	return id, nil
}

// Update writes doc to the primary and to the mirrors that hold a copy.
// Mirrors whose create failed get a fresh copy.
func (m *Mirrored) Update(ctx context.Context, id, path string, doc results.Document) (string, error) {
	newID, err := m.primary.Update(ctx, id, path, doc)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	mirrorIDs, ok := m.ids[id]
	delete(m.ids, id)
	m.mu.Unlock()
	if !ok {
		mirrorIDs = make([]string, len(m.mirrors))
	}

	for i, mirror := range m.mirrors {
		var mid string
		if mirrorIDs[i] == "" {
			mid, err = mirror.Create(ctx, path, doc)
		} else {
			mid, err = mirror.Update(ctx, mirrorIDs[i], path, doc)
		}
		if err != nil {
			m.log.Warn("[Archive] Mirror %d update failed for %s: %v", i, path, err)
			continue
		}
		mirrorIDs[i] = mid
	}

	m.mu.Lock()
	m.ids[newID] = mirrorIDs
	m.mu.Unlock()
	return newID, nil
}
