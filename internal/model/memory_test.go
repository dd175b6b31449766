package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Preferences ")
	require.NoError(t, err)
	assert.Equal(t, CategoryPreferences, c)

	c, err = ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, DefaultCategory, c)

	_, err = ParseCategory("hobbies")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestLookupCategory_Unknown(t *testing.T) {
	_, ok := LookupCategory("hobbies")
	assert.False(t, ok)
	for _, c := range Categories {
		got, ok := LookupCategory(string(c))
		assert.True(t, ok, c)
		assert.Equal(t, c, got)
	}
}

func TestImportance(t *testing.T) {
	tests := []struct {
		in   string
		want Importance
		rank int
	}{
		{"high", ImportanceHigh, 3},
		{"MEDIUM", ImportanceMedium, 2},
		{"low", ImportanceLow, 1},
		{"", ImportanceMedium, 2},
		{"critical", ImportanceMedium, 2},
	}
	for _, tt := range tests {
		got := CoerceImportance(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.rank, got.Rank(), tt.in)
	}
	assert.Equal(t, 1, Importance("bogus").Rank())
}

func TestCoerceKind(t *testing.T) {
	assert.Equal(t, KindSession, CoerceKind("session"))
	assert.Equal(t, KindUser, CoerceKind(""))
	assert.Equal(t, KindUser, CoerceKind("other"))
}

func TestValidateSubject(t *testing.T) {
	for _, ok := range []string{"1", "42", "alice", "user.a-b_c"} {
		assert.NoError(t, ValidateSubject(ok), ok)
	}
	for _, bad := range []string{"", "../etc", "a/b", ".hidden", "a..b", "a b"} {
		assert.Error(t, ValidateSubject(bad), bad)
	}
	assert.Equal(t, "user_42", SubjectTag("42"))
}

func TestErrorClassification(t *testing.T) {
	werr := fmt.Errorf("put: %w", &StorageError{Op: OpWrite, Path: "/x", Err: errors.New("disk full")})
	assert.True(t, IsStorageWrite(werr))
	assert.False(t, IsStorageRead(werr))

	nf := fmt.Errorf("update: %w", NotFoundError{ID: "abc"})
	assert.True(t, IsNotFound(nf))
	assert.Contains(t, nf.Error(), "abc")
}

func TestCloneDoesNotShareTags(t *testing.T) {
	m := Memory{Tags: []string{"a"}}
	c := m.Clone()
	c.Tags[0] = "b"
	assert.Equal(t, "a", m.Tags[0])
}
