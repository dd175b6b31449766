package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"

	"github.com/rcliao/profile-memory/internal/model"
)

const backendJSON = "json"

// JSONStore keeps one subject's records in a single JSON document
// ({"memories": [...]}). Every mutation holds an exclusive lock on a sibling
// .lock file and rewrites the whole document through a temp file and rename,
// so readers only ever observe a complete old or new collection.
//
// The file lock is not reentrant within a process, so mu serializes
// mutations made through the same handle.
type JSONStore struct {
	mu      sync.Mutex
	subject string
	path    string
	lock    *flock.Flock
	cache   *RecordCache
	ids     *idSource
}

type jsonDocument struct {
	Memories []model.Memory `json:"memories"`
}

// JSONOption configures a JSONStore.
type JSONOption func(*JSONStore)

// WithCache shares a decoded-record cache between handles.
func WithCache(c *RecordCache) JSONOption {
	return func(s *JSONStore) { s.cache = c }
}

// JSONPath is the file holding subject's records under dir.
func JSONPath(dir, subject string) string {
	return filepath.Join(dir, fmt.Sprintf("user_%s_memories.json", subject))
}

// NewJSONStore returns a handle for subject's file under dir. Nothing is
// created on disk until the first write.
func NewJSONStore(dir, subject string, opts ...JSONOption) (*JSONStore, error) {
	if err := model.ValidateSubject(subject); err != nil {
		return nil, err
	}
	path := JSONPath(dir, subject)
	s := &JSONStore{
		subject: subject,
		path:    path,
		lock:    flock.New(path + ".lock"),
		ids:     newIDSource(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *JSONStore) Subject() string { return s.subject }
func (s *JSONStore) Path() string    { return s.path }

func (s *JSONStore) Put(ctx context.Context, p PutParams) (*model.Memory, error) {
	now := time.Now().UTC()
	mem, err := newRecord(s.subject, s.ids.next(now), now, p)
	if err != nil {
		return nil, err
	}
	err = s.mutate(func(records []model.Memory) ([]model.Memory, error) {
		return append(records, mem), nil
	})
	observe(backendJSON, "put", err)
	if err != nil {
		return nil, err
	}
	return &mem, nil
}

func (s *JSONStore) List(ctx context.Context) ([]model.Memory, error) {
	records, err := s.load()
	observe(backendJSON, "list", err)
	return records, err
}

func (s *JSONStore) Get(ctx context.Context, id string) (*model.Memory, error) {
	records, err := s.load()
	observe(backendJSON, "get", err)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(records, func(m model.Memory) bool { return m.ID == id })
	if i < 0 {
		return nil, model.NotFoundError{ID: id}
	}
	return &records[i], nil
}

func (s *JSONStore) UpdateImportance(ctx context.Context, id string, importance model.Importance) (*model.Memory, error) {
	var updated model.Memory
	err := s.mutate(func(records []model.Memory) ([]model.Memory, error) {
		i := slices.IndexFunc(records, func(m model.Memory) bool { return m.ID == id })
		if i < 0 {
			return nil, model.NotFoundError{ID: id}
		}
		records[i].Importance = importance
		records[i].UpdatedAt = touch(records[i].UpdatedAt)
		updated = records[i].Clone()
		return records, nil
	})
	observe(backendJSON, "update", err)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Clear removes the subject's records and keeps any others in the file. An
// unreadable document is reset to an empty collection rather than left
// blocking every later write.
func (s *JSONStore) Clear(ctx context.Context) error {
	err := s.locked(func() error {
		all, err := s.readDocument()
		if err != nil {
			return s.write([]model.Memory{})
		}
		_, foreign := s.partition(all)
		return s.write(foreign)
	})
	observe(backendJSON, "clear", err)
	return err
}

func (s *JSONStore) Count(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	return len(records), err
}

func (s *JSONStore) Categories(ctx context.Context) ([]model.Category, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return categoriesOf(records), nil
}

func (s *JSONStore) Tags(ctx context.Context) ([]string, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	return tagsOf(records), nil
}

func (s *JSONStore) Close() error { return nil }

// load reads the collection without locking, consulting the cache first.
// A missing file is an empty collection.
func (s *JSONStore) load() ([]model.Memory, error) {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Memory{}, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: model.OpRead, Path: s.path, Err: err}
	}
	if records, ok := s.cache.get(s.path, info); ok {
		return records, nil
	}
	records, err := s.readFile()
	if err != nil {
		return nil, err
	}
	s.cache.set(s.path, info, records)
	return records, nil
}

// readFile returns the records owned by the subject, in storage order.
func (s *JSONStore) readFile() ([]model.Memory, error) {
	all, err := s.readDocument()
	if err != nil {
		return nil, err
	}
	owned, _ := s.partition(all)
	return owned, nil
}

// readDocument decodes every record in the file, whatever its owner.
func (s *JSONStore) readDocument() ([]model.Memory, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []model.Memory{}, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: model.OpRead, Path: s.path, Err: err}
	}
	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &model.StorageError{Op: model.OpRead, Path: s.path, Err: fmt.Errorf("decode: %w", err)}
	}
	return doc.Memories, nil
}

// partition splits records into the subject's own and everyone else's, both
// in storage order. Records written before subject ids were stored carry
// only the scope tag; they are adopted by the subject whose tag they carry.
func (s *JSONStore) partition(all []model.Memory) (owned, foreign []model.Memory) {
	owned = make([]model.Memory, 0, len(all))
	foreign = []model.Memory{}
	scope := model.SubjectTag(s.subject)
	for _, m := range all {
		switch {
		case m.SubjectID == s.subject:
			owned = append(owned, m)
		case m.SubjectID == "" && m.HasTag(scope):
			m.SubjectID = s.subject
			owned = append(owned, m)
		default:
			foreign = append(foreign, m)
		}
	}
	return owned, foreign
}

// mutate runs fn over the subject's records while holding the exclusive
// lock and atomically persists the result next to the untouched records of
// other owners. An error from fn aborts without writing.
func (s *JSONStore) mutate(fn func([]model.Memory) ([]model.Memory, error)) error {
	return s.locked(func() error {
		all, err := s.readDocument()
		if err != nil {
			// Never overwrite a collection we could not read.
			return &model.StorageError{Op: model.OpWrite, Path: s.path, Err: err}
		}
		owned, foreign := s.partition(all)
		owned, err = fn(owned)
		if err != nil {
			return err
		}
		return s.write(append(foreign, owned...))
	})
}

// locked runs fn holding both the handle mutex and the file lock.
func (s *JSONStore) locked(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return &model.StorageError{Op: model.OpWrite, Path: s.path, Err: fmt.Errorf("create dir: %w", err)}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lock.Lock(); err != nil {
		return &model.StorageError{Op: model.OpWrite, Path: s.path, Err: fmt.Errorf("lock: %w", err)}
	}
	defer s.lock.Unlock()
	return fn()
}

// write atomically replaces the document with records.
func (s *JSONStore) write(records []model.Memory) error {
	if records == nil {
		records = []model.Memory{}
	}
	data, err := json.MarshalIndent(jsonDocument{Memories: records}, "", "  ")
	if err != nil {
		return &model.StorageError{Op: model.OpWrite, Path: s.path, Err: fmt.Errorf("encode: %w", err)}
	}
	s.cache.invalidate(s.path)
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return &model.StorageError{Op: model.OpWrite, Path: s.path, Err: err}
	}
	return nil
}
