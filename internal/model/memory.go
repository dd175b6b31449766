// Package model defines the profile memory record and its closed value sets.
package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Memory is one remembered fact about one subject.
type Memory struct {
	ID         string     `json:"id" yaml:"id"`
	SubjectID  string     `json:"subject_id" yaml:"subject_id"`
	Content    string     `json:"content" yaml:"content"`
	Category   Category   `json:"category" yaml:"category"`
	Importance Importance `json:"importance" yaml:"importance"`
	Tags       []string   `json:"tags" yaml:"tags"`
	Kind       Kind       `json:"kind" yaml:"kind"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" yaml:"updated_at"`
}

// HasTag reports whether the record carries tag.
func (m Memory) HasTag(tag string) bool {
	return slices.Contains(m.Tags, tag)
}

// Clone returns a copy that shares no slices with m.
func (m Memory) Clone() Memory {
	c := m
	c.Tags = slices.Clone(m.Tags)
	return c
}

// Category is the closed set of fact categories.
type Category string

const (
	CategoryName          Category = "name"
	CategoryPersonalFacts Category = "personal_facts"
	CategoryPreferences   Category = "preferences"
	CategoryGoals         Category = "goals"
	CategorySkills        Category = "skills"
	CategoryProjects      Category = "projects"
	CategoryEvents        Category = "events"
	CategoryFriends       Category = "friends"
	CategoryFamily        Category = "family"
	CategoryConversation  Category = "conversation"
)

// DefaultCategory is used when a write omits the category.
const DefaultCategory = CategoryPersonalFacts

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryName,
	CategoryPersonalFacts,
	CategoryPreferences,
	CategoryGoals,
	CategorySkills,
	CategoryProjects,
	CategoryEvents,
	CategoryFriends,
	CategoryFamily,
	CategoryConversation,
}

// LookupCategory maps s to a known category without erroring.
func LookupCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(Categories, c) {
		return c, true
	}
	return "", false
}

// ParseCategory is the write-time parser: empty input yields DefaultCategory,
// anything outside the closed set is a validation error.
func ParseCategory(s string) (Category, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultCategory, nil
	}
	c, ok := LookupCategory(s)
	if !ok {
		return "", WrapValidationError("category", fmt.Errorf("%w %q", ErrInvalidCategory, s))
	}
	return c, nil
}

// Importance is the weight of a fact.
type Importance string

const (
	ImportanceHigh   Importance = "high"
	ImportanceMedium Importance = "medium"
	ImportanceLow    Importance = "low"
)

// DefaultImportance is applied to missing or unrecognized importance on write.
const DefaultImportance = ImportanceMedium

// LookupImportance maps s to a known level.
func LookupImportance(s string) (Importance, bool) {
	switch i := Importance(strings.ToLower(strings.TrimSpace(s))); i {
	case ImportanceHigh, ImportanceMedium, ImportanceLow:
		return i, true
	}
	return "", false
}

// CoerceImportance never fails: unknown input becomes DefaultImportance.
func CoerceImportance(s string) Importance {
	if i, ok := LookupImportance(s); ok {
		return i
	}
	return DefaultImportance
}

// Rank orders importance levels: high=3, medium=2, low and anything else=1.
func (i Importance) Rank() int {
	switch i {
	case ImportanceHigh:
		return 3
	case ImportanceMedium:
		return 2
	default:
		return 1
	}
}

// Kind separates long-lived user facts from facts scoped to one session.
type Kind string

const (
	KindUser    Kind = "user"
	KindSession Kind = "session"
)

// CoerceKind defaults anything but "session" to KindUser.
func CoerceKind(s string) Kind {
	if Kind(strings.ToLower(strings.TrimSpace(s))) == KindSession {
		return KindSession
	}
	return KindUser
}

var subjectPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidateSubject rejects identifiers that are empty or could escape the
// subject's storage location.
func ValidateSubject(subject string) error {
	if !subjectPattern.MatchString(subject) || strings.Contains(subject, "..") {
		return NewValidationError("subject_id", fmt.Sprintf("invalid subject %q", subject))
	}
	return nil
}

// SubjectTag is the scoping tag every record of subject carries.
func SubjectTag(subject string) string {
	return "user_" + subject
}
