package store

import (
	"slices"

	"github.com/rcliao/profile-memory/internal/model"
)

// categoriesOf returns the distinct categories present, in model.Categories order.
func categoriesOf(records []model.Memory) []model.Category {
	present := map[model.Category]bool{}
	for _, r := range records {
		present[r.Category] = true
	}
	out := []model.Category{}
	for _, c := range model.Categories {
		if present[c] {
			out = append(out, c)
		}
	}
	return out
}

// tagsOf returns the distinct tags present, sorted.
func tagsOf(records []model.Memory) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, r := range records {
		for _, t := range r.Tags {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	slices.Sort(out)
	return out
}
