// Package archive stores results documents. The GitHub archive is the
// primary store; the Postgres and in-memory archives are listable and back
// the MCP server and the viewer.
package archive

import (
	"context"
	"fmt"
	"time"

	"decent-ci/src/results"
)

// Archive writes results documents. Create returns the identifier that a
// later Update of the same document must pass; Update returns the
// identifier to use next time.
type Archive interface {
	Create(ctx context.Context, path string, doc results.Document) (string, error)
	Update(ctx context.Context, id, path string, doc results.Document) (string, error)
}

// Filter narrows a listing. Empty fields match everything.
type Filter struct {
	Repository string
	Ref        string
	DeviceID   string
	Limit      int
}

func (f Filter) matches(e Entry) bool {
	fm := e.Document.FrontMatter
	ref := fm.Tag
	if ref == "" {
		ref = fm.Branch
	}
	return (f.Repository == "" || f.Repository == fm.Repository) &&
		(f.Ref == "" || f.Ref == ref) &&
		(f.DeviceID == "" || f.DeviceID == fm.DeviceID)
}

// Entry is one stored document.
type Entry struct {
	ID        string           `json:"id"`
	Path      string           `json:"path"`
	UpdatedAt time.Time        `json:"updated_at"`
	Document  results.Document `json:"document"`
}

// Lister reads stored documents back.
type Lister interface {
	// List returns entries newest first.
	List(ctx context.Context, filter Filter) ([]Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
}

// ErrNotFound is returned when no document has the requested id.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("result not found: %s", e.ID)
}
