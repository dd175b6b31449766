// Package contextbuild compresses ranked memories and recent conversation
// turns into bounded text blocks for a downstream prompt.
package contextbuild

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rcliao/profile-memory/internal/model"
)

// minExcerpt is the smallest remaining budget worth spending on a partial fact.
const minExcerpt = 40

const ellipsis = "..."

// Turn is one message of a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Builder holds the bounds applied to generated text. A non-positive bound
// disables that limit.
type Builder struct {
	MaxChars        int // build_context budget in runes
	MaxTurns        int // turns kept by ConversationSummary, newest last
	SummaryMaxChars int // hard bound on ConversationSummary output
	TurnMaxChars    int // per-turn excerpt length
}

// BuildContext renders the first maxItems memories, one per line, as
// "- [category] content". Facts are packed greedily into MaxChars; when the
// next fact does not fit but at least minExcerpt runes remain, an excerpt of
// it closes the block. Empty input or maxItems <= 0 yields "".
func (b Builder) BuildContext(memories []model.Memory, maxItems int) string {
	if len(memories) == 0 || maxItems <= 0 {
		return ""
	}
	if len(memories) > maxItems {
		memories = memories[:maxItems]
	}

	var lines []string
	used := 0
	for _, m := range memories {
		line := fmt.Sprintf("- [%s] %s", m.Category, collapse(m.Content))
		cost := utf8.RuneCountInString(line)
		if len(lines) > 0 {
			cost++ // newline
		}
		if b.MaxChars <= 0 || used+cost <= b.MaxChars {
			lines = append(lines, line)
			used += cost
			continue
		}
		remaining := b.MaxChars - used
		if len(lines) > 0 {
			remaining--
		}
		if remaining >= minExcerpt {
			lines = append(lines, truncate(line, remaining))
		}
		break
	}
	return strings.Join(lines, "\n")
}

// ConversationSummary describes the last MaxTurns non-empty turns, oldest
// first, as "Last N messages: User asked about: ...; Assistant replied: ...".
// Each turn is cut to TurnMaxChars and the whole text to SummaryMaxChars.
func (b Builder) ConversationSummary(turns []Turn) string {
	kept := make([]Turn, 0, len(turns))
	for _, t := range turns {
		if strings.TrimSpace(t.Content) != "" {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	if b.MaxTurns > 0 && len(kept) > b.MaxTurns {
		kept = kept[len(kept)-b.MaxTurns:]
	}

	parts := make([]string, len(kept))
	for i, t := range kept {
		excerpt := collapse(t.Content)
		if b.TurnMaxChars > 0 {
			excerpt = truncate(excerpt, b.TurnMaxChars)
		}
		parts[i] = roleLabel(t.Role) + ": " + excerpt
	}

	noun := "messages"
	if len(kept) == 1 {
		noun = "message"
	}
	out := fmt.Sprintf("Last %d %s: %s", len(kept), noun, strings.Join(parts, "; "))
	if b.SummaryMaxChars > 0 {
		out = truncate(out, b.SummaryMaxChars)
	}
	return out
}

func roleLabel(role string) string {
	switch r := strings.ToLower(strings.TrimSpace(role)); r {
	case "user":
		return "User asked about"
	case "assistant":
		return "Assistant replied"
	case "system":
		return "System noted"
	case "":
		return "Unknown"
	default:
		first, size := utf8.DecodeRuneInString(r)
		return string(unicode.ToUpper(first)) + r[size:]
	}
}

// collapse folds runs of whitespace, newlines included, into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncate cuts s to at most max runes, marking the cut with an ellipsis when
// there is room for one.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max <= len(ellipsis) {
		return string(runes[:max])
	}
	return strings.TrimRightFunc(string(runes[:max-len(ellipsis)]), unicode.IsSpace) + ellipsis
}
