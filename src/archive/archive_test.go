package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"decent-ci/src/gate"
	"decent-ci/src/logger"
	"decent-ci/src/provider"
	"decent-ci/src/results"
)

func doc(repo, branch, device string, pending bool) results.Document {
	return results.Document{FrontMatter: results.FrontMatter{
		Repository: repo,
		Branch:     branch,
		DeviceID:   device,
		CommitSHA:  "abc123",
		Pending:    pending,
		Date:       time.Date(2024, 5, 21, 10, 0, 0, 0, time.UTC),
	}}
}

func TestMemoryArchive(t *testing.T) {
	ar := NewMemoryArchive()
	ctx := context.Background()

	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ar.now = func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}

	id, err := ar.Create(ctx, "_posts/main/a.html", doc("octo/app", "main", "linux-gcc", true))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := ar.Create(ctx, "_posts/dev/a.html", doc("octo/app", "dev", "linux-gcc", false)); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	sameID, err := ar.Update(ctx, id, "_posts/main/a.html", doc("octo/app", "main", "linux-gcc", false))
	if err != nil || sameID != id {
		t.Fatalf("Update() = %q, %v; want %q", sameID, err, id)
	}

	got, err := ar.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Document.FrontMatter.Pending {
		t.Error("Get() should return the updated document")
	}

	all, _ := ar.List(ctx, Filter{})
	if len(all) != 2 || all[0].ID != id {
		t.Errorf("List() = %v, want updated entry first", all)
	}
	onMain, _ := ar.List(ctx, Filter{Ref: "main"})
	if len(onMain) != 1 {
		t.Errorf("List(main) returned %d entries, want 1", len(onMain))
	}
	limited, _ := ar.List(ctx, Filter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("List(limit 1) returned %d entries", len(limited))
	}
}

func TestMemoryArchive_NotFound(t *testing.T) {
	ar := NewMemoryArchive()
	ctx := context.Background()

	var notFound ErrNotFound
	if _, err := ar.Get(ctx, "missing"); !errors.As(err, &notFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := ar.Update(ctx, "missing", "p", results.Document{}); !errors.As(err, &notFound) || notFound.ID != "missing" {
		t.Errorf("Update() error = %v, want ErrNotFound", err)
	}
}

func TestGitHubArchive_CreateThenUpdate(t *testing.T) {
	fake := provider.NewFakePlatform()
	g := gate.New(fake, logger.NewSilentLogger())
	ar := NewGitHubArchive(fake, g, "octo/results", "gh-pages", logger.NewSilentLogger())
	ctx := context.Background()

	path := "_posts/main/2024-05-21-linux-gcc.html"
	id, err := ar.Create(ctx, path, doc("octo/app", "main", "linux-gcc", true))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	next, err := ar.Update(ctx, id, path, doc("octo/app", "main", "linux-gcc", false))
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if next == id {
		t.Error("Update() should return the new blob sha")
	}

	if len(fake.Puts) != 2 {
		t.Fatalf("got %d puts, want 2", len(fake.Puts))
	}
	if fake.Puts[0].SHA != "" || fake.Puts[1].SHA != id || fake.Puts[1].Branch != "gh-pages" {
		t.Errorf("puts = %+v", fake.Puts)
	}

	stored, _ := fake.GetContent(ctx, "octo/results", path, "")
	parsed, err := results.Parse(stored.Content)
	if err != nil {
		t.Fatalf("stored document does not parse: %v", err)
	}
	if parsed.FrontMatter.Pending {
		t.Error("stored document should be the final revision")
	}
}

func TestGitHubArchive_CreateOverwritesExisting(t *testing.T) {
	fake := provider.NewFakePlatform()
	ar := NewGitHubArchive(fake, gate.New(nil, logger.NewSilentLogger()), "octo/results", "", nil)
	ctx := context.Background()

	path := "_posts/main/x.html"
	first, err := ar.Create(ctx, path, doc("octo/app", "main", "d", false))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := ar.Create(ctx, path, doc("octo/app", "main", "d", true)); err != nil {
		t.Fatalf("second Create() error = %v", err)
	}
	if fake.Puts[1].SHA != first {
		t.Errorf("second create should pass the existing sha, got %q", fake.Puts[1].SHA)
	}
}

type failingArchive struct{}

func (failingArchive) Create(context.Context, string, results.Document) (string, error) {
	return "", errors.New("mirror down")
}

func (failingArchive) Update(context.Context, string, string, results.Document) (string, error) {
	return "", errors.New("mirror down")
}

func TestMirrored(t *testing.T) {
	primary := NewMemoryArchive()
	mirror := NewMemoryArchive()
	m := NewMirrored(primary, logger.NewSilentLogger(), mirror, failingArchive{})
	ctx := context.Background()

	id, err := m.Create(ctx, "p", doc("octo/app", "main", "d", true))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := m.Update(ctx, id, "p", doc("octo/app", "main", "d", false)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if primary.Len() != 1 || mirror.Len() != 1 {
		t.Fatalf("primary has %d, mirror has %d entries, want 1 each", primary.Len(), mirror.Len())
	}
	entries, _ := mirror.List(ctx, Filter{})
	if entries[0].Document.FrontMatter.Pending {
		t.Error("mirror should hold the final revision")
	}
}

func TestMirrored_PrimaryFailure(t *testing.T) {
	mirror := NewMemoryArchive()
	m := NewMirrored(failingArchive{}, logger.NewSilentLogger(), mirror)

	if _, err := m.Create(context.Background(), "p", results.Document{}); err == nil {
		t.Error("Create() should fail when the primary fails")
	}
	if mirror.Len() != 0 {
		t.Error("mirrors should not be written when the primary fails")
	}
}
