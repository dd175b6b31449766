package query

import "github.com/rcliao/profile-memory/internal/model"

// Section names a part of the profile summary.
type Section string

const (
	SectionPreferences         Section = "preferences"
	SectionPersonalFacts       Section = "personal_facts"
	SectionGoals               Section = "goals"
	SectionSkills              Section = "skills"
	SectionRecentConversations Section = "recent_conversations"
)

// Sections lists summary sections in display order.
var Sections = []Section{
	SectionPreferences,
	SectionPersonalFacts,
	SectionGoals,
	SectionSkills,
	SectionRecentConversations,
}

var sectionCategory = map[Section]model.Category{
	SectionPreferences:         model.CategoryPreferences,
	SectionPersonalFacts:       model.CategoryPersonalFacts,
	SectionGoals:               model.CategoryGoals,
	SectionSkills:              model.CategorySkills,
	SectionRecentConversations: model.CategoryConversation,
}

// SummaryLimits caps each section independently.
type SummaryLimits map[Section]int

// LimitsFor derives per-section caps from a base limit. Goals and recent
// conversations surface fewer entries: three fifths of the base, rounded up,
// which gives 5/5/3/5/3 for a base of 5.
func LimitsFor(base int) SummaryLimits {
	if base < 0 {
		base = 0
	}
	reduced := (3*base + 4) / 5
	return SummaryLimits{
		SectionPreferences:         base,
		SectionPersonalFacts:       base,
		SectionGoals:               reduced,
		SectionSkills:              base,
		SectionRecentConversations: reduced,
	}
}

// Summary maps each section to its ranked, capped records.
type Summary map[Section][]model.Memory

// ProfileSummary builds every section from user-kind records only; session
// facts are left out of the long-lived profile. Every section is present,
// possibly empty.
func (e *Engine) ProfileSummary(records []model.Memory, limits SummaryLimits) Summary {
	durable := make([]model.Memory, 0, len(records))
	for _, r := range records {
		if r.Kind != model.KindSession {
			durable = append(durable, r)
		}
	}

	out := Summary{}
	for _, s := range Sections {
		out[s] = e.Search(durable, Params{
			Category: string(sectionCategory[s]),
			Limit:    limits[s],
		})
	}
	return out
}
