// Package store provides subject-scoped persistence of memory records with a
// JSON-file backend and a SQLite backend.
package store

import (
	"context"
	"io"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rcliao/profile-memory/internal/model"
)

// PutParams holds parameters for storing a memory.
type PutParams struct {
	Content    string
	Category   string
	Importance string
	Tags       []string
	Kind       string
}

// Store defines the subject-scoped record storage interface. A Store never
// reads or writes records of any subject other than Subject().
type Store interface {
	// Put validates and appends a new record, persisting synchronously.
	Put(ctx context.Context, p PutParams) (*model.Memory, error)

	// List returns every record in append order.
	List(ctx context.Context) ([]model.Memory, error)

	// Get looks up a single record by id.
	Get(ctx context.Context, id string) (*model.Memory, error)

	// UpdateImportance changes importance and refreshes updated_at.
	UpdateImportance(ctx context.Context, id string, importance model.Importance) (*model.Memory, error)

	// Clear removes every record of the subject. Idempotent.
	Clear(ctx context.Context) error

	Count(ctx context.Context) (int, error)
	Categories(ctx context.Context) ([]model.Category, error)
	Tags(ctx context.Context) ([]string, error)

	Subject() string
	// Path is the backing file of the subject's collection.
	Path() string

	Close() error
}

// idSource hands out monotonic ULIDs; safe for concurrent use.
type idSource struct {
	mu      sync.Mutex
	entropy io.Reader
}

func newIDSource() *idSource {
	return &idSource{entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)}
}

func (s *idSource) next(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
}

// newRecord validates p and builds the record a backend will persist.
func newRecord(subject, id string, now time.Time, p PutParams) (model.Memory, error) {
	content := strings.TrimSpace(p.Content)
	if content == "" {
		return model.Memory{}, model.WrapValidationError("content", model.ErrEmptyContent)
	}
	category, err := model.ParseCategory(p.Category)
	if err != nil {
		return model.Memory{}, err
	}
	return model.Memory{
		ID:         id,
		SubjectID:  subject,
		Content:    content,
		Category:   category,
		Importance: model.CoerceImportance(p.Importance),
		Tags:       normalizeTags(subject, p.Tags),
		Kind:       model.CoerceKind(p.Kind),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// normalizeTags trims, drops empties and duplicates, and appends the subject tag.
func normalizeTags(subject string, tags []string) []string {
	scope := model.SubjectTag(subject)
	seen := map[string]bool{}
	out := make([]string, 0, len(tags)+1)
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if !seen[scope] {
		out = append(out, scope)
	}
	return out
}

// touch returns a timestamp strictly after prev.
func touch(prev time.Time) time.Time {
	now := time.Now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}
