// Package query filters and ranks a subject's memory records.
//
// Ranking is importance first (high, medium, low), then created_at newest
// first, then storage order. Filters are applied before ranking and the limit
// after it, so the cap always sees the full filtered set.
package query

import (
	"sort"

	"github.com/rcliao/profile-memory/internal/model"
)

// Params holds parameters for searching memories. Empty fields do not filter.
type Params struct {
	Query      string
	Category   string
	Tag        string
	Importance string
	// Limit caps the ranked result; 0 returns nothing and a negative
	// value returns every match.
	Limit int
}

// Engine answers queries for exactly one subject.
type Engine struct {
	subject  string
	scopeTag string
}

// New returns an engine scoped to subject.
func New(subject string) *Engine {
	return &Engine{subject: subject, scopeTag: model.SubjectTag(subject)}
}

// Search filters records by category, tag, importance and free text, ranks
// and caps them. Records that do not belong to the engine's subject are never
// returned. An unknown category or importance yields an empty result rather
// than an error.
func (e *Engine) Search(records []model.Memory, p Params) []model.Memory {
	if p.Limit == 0 {
		return []model.Memory{}
	}

	var category model.Category
	if p.Category != "" {
		c, ok := model.LookupCategory(p.Category)
		if !ok {
			return []model.Memory{}
		}
		category = c
	}

	var importance model.Importance
	if p.Importance != "" {
		i, ok := model.LookupImportance(p.Importance)
		if !ok {
			return []model.Memory{}
		}
		importance = i
	}

	matcher := NewMatcher(p.Query)
	out := []model.Memory{}
	for _, r := range records {
		if !e.owns(r) {
			continue
		}
		if category != "" && r.Category != category {
			continue
		}
		if p.Tag != "" && !r.HasTag(p.Tag) {
			continue
		}
		if importance != "" && r.Importance != importance {
			continue
		}
		if !matcher.Match(r.Content) {
			continue
		}
		out = append(out, r)
	}

	Rank(out)
	if p.Limit > 0 && len(out) > p.Limit {
		out = out[:p.Limit]
	}
	return out
}

// ByCategory returns every record in category, ranked.
func (e *Engine) ByCategory(records []model.Memory, category string) []model.Memory {
	return e.Search(records, Params{Category: category, Limit: -1})
}

// ByImportance returns every record at level, ranked. Unknown levels match nothing.
func (e *Engine) ByImportance(records []model.Memory, level string) []model.Memory {
	return e.Search(records, Params{Importance: level, Limit: -1})
}

func (e *Engine) owns(r model.Memory) bool {
	return r.SubjectID == e.subject && r.HasTag(e.scopeTag)
}

// Rank sorts records in place by importance rank, then newest created_at.
// The sort is stable so remaining ties keep storage order.
func Rank(records []model.Memory) {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := records[i].Importance.Rank(), records[j].Importance.Rank()
		if ri != rj {
			return ri > rj
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
