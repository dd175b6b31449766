package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/profile-memory/internal/model"
)

type opener func(t *testing.T, subject string) Store

// backends returns an opener per backend rooted at dir; handles opened by the
// same opener share storage, like separate processes on one machine.
func backends(dir string) map[string]opener {
	return map[string]opener{
		"json": func(t *testing.T, subject string) Store {
			s, err := NewJSONStore(filepath.Join(dir, "memories"), subject)
			require.NoError(t, err)
			return s
		},
		"sqlite": func(t *testing.T, subject string) Store {
			s, err := NewSQLiteStore(filepath.Join(dir, "memory.db"), subject)
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, open opener)) {
	for _, name := range []string{"json", "sqlite"} {
		t.Run(name, func(t *testing.T) {
			fn(t, backends(t.TempDir())[name])
		})
	}
}

func TestPutAndList(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "u1")

		mem, err := s.Put(ctx, PutParams{
			Content: "  Likes coffee ", Category: "preferences", Importance: "high",
			Tags: []string{"drinks", " ", "drinks"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, mem.ID)
		assert.Equal(t, "Likes coffee", mem.Content)
		assert.Equal(t, model.CategoryPreferences, mem.Category)
		assert.Equal(t, model.ImportanceHigh, mem.Importance)
		assert.Equal(t, model.KindUser, mem.Kind)
		assert.Equal(t, []string{"drinks", "user_u1"}, mem.Tags)
		assert.True(t, mem.CreatedAt.Equal(mem.UpdatedAt))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, mem.ID, list[0].ID)
		assert.Equal(t, mem.Tags, list[0].Tags)
		assert.True(t, mem.CreatedAt.Equal(list[0].CreatedAt))

		got, err := s.Get(ctx, mem.ID)
		require.NoError(t, err)
		assert.Equal(t, "Likes coffee", got.Content)
	})
}

func TestPutAppendOrderAndDefaults(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "u1")

		for _, c := range []string{"first", "second", "third"} {
			_, err := s.Put(ctx, PutParams{Content: c, Importance: "urgent", Kind: "session"})
			require.NoError(t, err)
		}
		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i, c := range []string{"first", "second", "third"} {
			assert.Equal(t, c, list[i].Content)
			assert.Equal(t, model.ImportanceMedium, list[i].Importance)
			assert.Equal(t, model.DefaultCategory, list[i].Category)
			assert.Equal(t, model.KindSession, list[i].Kind)
		}
		assert.NotEqual(t, list[0].ID, list[1].ID)
	})
}

func TestPutValidation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "u1")

		_, err := s.Put(ctx, PutParams{Content: "x", Category: "hobbies"})
		assert.True(t, model.IsValidationError(err))

		_, err = s.Put(ctx, PutParams{Content: "   "})
		assert.True(t, model.IsValidationError(err))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestUpdateImportance(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "u1")

		mem, err := s.Put(ctx, PutParams{Content: "Is a developer", Category: "personal_facts", Importance: "low"})
		require.NoError(t, err)

		updated, err := s.UpdateImportance(ctx, mem.ID, model.ImportanceHigh)
		require.NoError(t, err)
		assert.Equal(t, model.ImportanceHigh, updated.Importance)
		assert.True(t, updated.UpdatedAt.After(mem.UpdatedAt))

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, model.ImportanceHigh, list[0].Importance)
		assert.Equal(t, "Is a developer", list[0].Content)
		assert.Equal(t, model.CategoryPersonalFacts, list[0].Category)
		assert.True(t, list[0].CreatedAt.Equal(mem.CreatedAt))
		assert.True(t, list[0].UpdatedAt.After(mem.UpdatedAt))
	})
}

func TestUpdateImportance_NotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "u1")
		_, err := s.Put(ctx, PutParams{Content: "x"})
		require.NoError(t, err)

		_, err = s.UpdateImportance(ctx, "missing", model.ImportanceLow)
		assert.True(t, model.IsNotFound(err))

		_, err = s.Get(ctx, "missing")
		assert.True(t, model.IsNotFound(err))
	})
}

func TestClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "u1")

		require.NoError(t, s.Clear(ctx))
		_, err := s.Put(ctx, PutParams{Content: "a"})
		require.NoError(t, err)
		_, err = s.Put(ctx, PutParams{Content: "b"})
		require.NoError(t, err)

		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx))

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestAggregates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		s := open(t, "u1")

		cats, err := s.Categories(ctx)
		require.NoError(t, err)
		assert.Empty(t, cats)

		s.Put(ctx, PutParams{Content: "Wants to learn AI", Category: "goals", Tags: []string{"ai"}})
		s.Put(ctx, PutParams{Content: "Likes coffee", Category: "preferences"})
		s.Put(ctx, PutParams{Content: "Likes tea", Category: "preferences", Tags: []string{"drinks"}})

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, n)

		cats, err = s.Categories(ctx)
		require.NoError(t, err)
		assert.Equal(t, []model.Category{model.CategoryPreferences, model.CategoryGoals}, cats)

		tags, err := s.Tags(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"ai", "drinks", "user_u1"}, tags)
	})
}

func TestSubjectIsolation(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		a := open(t, "alice")
		b := open(t, "bob")

		mem, err := a.Put(ctx, PutParams{Content: "Alice's secret"})
		require.NoError(t, err)

		list, err := b.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)

		_, err = b.UpdateImportance(ctx, mem.ID, model.ImportanceLow)
		assert.True(t, model.IsNotFound(err))

		require.NoError(t, b.Clear(ctx))
		n, err := a.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestTwoHandlesNoLostUpdate(t *testing.T) {
	forEachBackend(t, func(t *testing.T, open opener) {
		ctx := context.Background()
		h1 := open(t, "u1")
		h2 := open(t, "u1")

		_, err := h1.Put(ctx, PutParams{Content: "from handle one"})
		require.NoError(t, err)
		_, err = h2.Put(ctx, PutParams{Content: "from handle two"})
		require.NoError(t, err)

		list, err := h1.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})
}

func TestInvalidSubject(t *testing.T) {
	_, err := NewJSONStore(t.TempDir(), "../escape")
	assert.True(t, model.IsValidationError(err))
	_, err = NewSQLiteStore(filepath.Join(t.TempDir(), "m.db"), "")
	assert.True(t, model.IsValidationError(err))
}

func TestJSONStore_CreatesStorageOnFirstWrite(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "sub", "memories")
	s, err := NewJSONStore(dir, "42")
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "reads must not create storage")

	_, err = s.Put(ctx, PutParams{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "user_42_memories.json"), s.Path())
	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"memories"`)
}

func TestJSONStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "42")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0o644))

	_, err = s.List(ctx)
	assert.True(t, model.IsStorageRead(err))

	_, err = s.Put(ctx, PutParams{Content: "must not clobber"})
	assert.True(t, model.IsStorageWrite(err))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "{not json", string(data))
}

func TestJSONStore_IgnoresForeignRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "42")
	require.NoError(t, err)
	doc := `{"memories":[{"id":"x","subject_id":"7","content":"not yours","category":"name","importance":"high","tags":["user_7"],"kind":"user"}]}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

// rawRecords decodes every record in the file at path, whatever its owner.
func rawRecords(t *testing.T, path string) []model.Memory {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc jsonDocument
	require.NoError(t, json.Unmarshal(data, &doc))
	return doc.Memories
}

func TestJSONStore_WritesKeepForeignRecords(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "42")
	require.NoError(t, err)
	doc := `{"memories":[{"id":"x","subject_id":"7","content":"not yours","category":"name","importance":"high","tags":["user_7"],"kind":"user"}]}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))

	m, err := s.Put(ctx, PutParams{Content: "new fact"})
	require.NoError(t, err)
	_, err = s.UpdateImportance(ctx, m.ID, model.ImportanceHigh)
	require.NoError(t, err)

	raw := rawRecords(t, s.Path())
	require.Len(t, raw, 2)
	assert.Equal(t, "x", raw[0].ID)
	assert.Equal(t, "not yours", raw[0].Content)
	assert.Equal(t, model.ImportanceHigh, raw[0].Importance)

	_, err = s.UpdateImportance(ctx, "x", model.ImportanceLow)
	assert.True(t, model.IsNotFound(err))

	require.NoError(t, s.Clear(ctx))
	raw = rawRecords(t, s.Path())
	require.Len(t, raw, 1)
	assert.Equal(t, "x", raw[0].ID)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJSONStore_AdoptsRecordsWithoutSubjectID(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewJSONStore(dir, "42")
	require.NoError(t, err)
	doc := `{"memories":[{"id":"legacy","content":"Name is Bob","category":"name","importance":"high","tags":["user_42"]}]}`
	require.NoError(t, os.WriteFile(s.Path(), []byte(doc), 0o644))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "42", list[0].SubjectID)

	_, err = s.Put(ctx, PutParams{Content: "new fact"})
	require.NoError(t, err)

	raw := rawRecords(t, s.Path())
	require.Len(t, raw, 2)
	assert.Equal(t, "legacy", raw[0].ID)
	assert.Equal(t, "Name is Bob", raw[0].Content)
}

func TestJSONStore_ClearResetsCorruptFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewJSONStore(t.TempDir(), "42")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"memories": [`), 0o644))

	require.NoError(t, s.Clear(ctx))
	_, err = s.Put(ctx, PutParams{Content: "fresh start"})
	require.NoError(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fresh start", list[0].Content)
}

func TestJSONStore_CacheSeesOtherHandlesWrites(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	cache, err := NewRecordCache(1 << 20)
	require.NoError(t, err)
	t.Cleanup(cache.Close)

	cached, err := NewJSONStore(dir, "42", WithCache(cache))
	require.NoError(t, err)
	other, err := NewJSONStore(dir, "42")
	require.NoError(t, err)

	_, err = cached.Put(ctx, PutParams{Content: "one"})
	require.NoError(t, err)
	list, err := cached.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Returned slices must not alias cached state.
	list[0].Content = "mutated"

	// Force a different mtime even on coarse-grained filesystems.
	time.Sleep(10 * time.Millisecond)
	_, err = other.Put(ctx, PutParams{Content: "two"})
	require.NoError(t, err)

	list, err = cached.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Content)
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()
	s, err := NewJSONStore(t.TempDir(), "metrics")
	require.NoError(t, err)

	before := testutil.ToFloat64(operationsTotal.WithLabelValues(backendJSON, "put"))
	beforeFail := testutil.ToFloat64(operationFailuresTotal.WithLabelValues(backendJSON, "update"))

	_, err = s.Put(ctx, PutParams{Content: "counted"})
	require.NoError(t, err)
	_, err = s.UpdateImportance(ctx, "nope", model.ImportanceHigh)
	require.Error(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(operationsTotal.WithLabelValues(backendJSON, "put")))
	assert.Equal(t, beforeFail+1, testutil.ToFloat64(operationFailuresTotal.WithLabelValues(backendJSON, "update")))
}
