package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rcliao/profile-memory/internal/contextbuild"
	"github.com/rcliao/profile-memory/internal/exchange"
	"github.com/rcliao/profile-memory/internal/model"
	"github.com/rcliao/profile-memory/internal/query"
	"github.com/rcliao/profile-memory/internal/store"
)

// conversationContextLimit is how many conversation records ConversationContext returns.
const conversationContextLimit = 5

// statusSampleSize is how many records Status shows, in storage order.
const statusSampleSize = 3

// RememberParams holds parameters for storing a memory.
type RememberParams struct {
	Content    string
	Category   string
	Importance string
	Tags       []string
	Kind       string
}

// RecallParams holds parameters for recalling memories.
type RecallParams struct {
	Query      string
	Category   string
	Tag        string
	Importance string
	// Limit of 0 returns nothing; a negative limit uses the configured default.
	Limit int
}

// Stats summarizes a subject's collection.
type Stats struct {
	Total        int                      `json:"total"`
	Categories   []model.Category         `json:"categories"`
	Tags         []string                 `json:"tags"`
	ByImportance map[model.Importance]int `json:"by_importance"`
}

// Status describes the backing storage of a subject, for debugging.
type Status struct {
	Subject    string           `json:"subject"`
	Backend    string           `json:"backend"`
	Path       string           `json:"path"`
	Exists     bool             `json:"exists"`
	SizeBytes  int64            `json:"size_bytes"`
	Count      int              `json:"count"`
	Categories []model.Category `json:"categories"`
	Sample     []model.Memory   `json:"sample"`
	Error      string           `json:"error,omitempty"`
}

// IngestResult reports what Ingest did with an extraction payload.
type IngestResult struct {
	Response string         `json:"response"`
	Stored   []model.Memory `json:"stored"`
	Skipped  int            `json:"skipped"`
}

// Remember validates and stores a new fact for subject.
func (s *MemoryService) Remember(ctx context.Context, subject string, p RememberParams) (_ *model.Memory, err error) {
	ctx, span := startSpan(ctx, "remember", subject)
	defer func() { endSpan(span, err) }()

	h, err := s.handle(subject)
	if err != nil {
		return nil, fmt.Errorf("remember: %w", err)
	}
	_, statErr := os.Stat(h.Path())
	firstWrite := errors.Is(statErr, os.ErrNotExist)

	m, err := h.Put(ctx, store.PutParams{
		Content:    p.Content,
		Category:   p.Category,
		Importance: p.Importance,
		Tags:       p.Tags,
		Kind:       p.Kind,
	})
	if err != nil {
		return nil, fmt.Errorf("remember: %w", err)
	}
	if firstWrite {
		s.log.Info().Str("subject", subject).Str("path", h.Path()).Msg("created memory storage")
	}
	rememberedTotal.WithLabelValues(string(m.Category)).Inc()
	s.log.Debug().
		Str("subject", subject).
		Str("id", m.ID).
		Str("category", string(m.Category)).
		Str("importance", string(m.Importance)).
		Msg("memory stored")
	return m, nil
}

// RememberPreference stores a fact in the preferences category.
func (s *MemoryService) RememberPreference(ctx context.Context, subject, content, importance string) (*model.Memory, error) {
	return s.Remember(ctx, subject, RememberParams{Content: content, Category: string(model.CategoryPreferences), Importance: importance})
}

// RememberPersonalFact stores a fact in the personal_facts category.
func (s *MemoryService) RememberPersonalFact(ctx context.Context, subject, content, importance string) (*model.Memory, error) {
	return s.Remember(ctx, subject, RememberParams{Content: content, Category: string(model.CategoryPersonalFacts), Importance: importance})
}

// RememberGoal stores a fact in the goals category.
func (s *MemoryService) RememberGoal(ctx context.Context, subject, content, importance string) (*model.Memory, error) {
	return s.Remember(ctx, subject, RememberParams{Content: content, Category: string(model.CategoryGoals), Importance: importance})
}

// RememberSkill stores a fact in the skills category.
func (s *MemoryService) RememberSkill(ctx context.Context, subject, content, importance string) (*model.Memory, error) {
	return s.Remember(ctx, subject, RememberParams{Content: content, Category: string(model.CategorySkills), Importance: importance})
}

// Recall returns subject's records matching p, ranked and capped.
func (s *MemoryService) Recall(ctx context.Context, subject string, p RecallParams) []model.Memory {
	ctx, span := startSpan(ctx, "recall", subject)
	defer span.End()

	limit := p.Limit
	if limit < 0 {
		limit = s.cfg.DefaultLimit
	}
	out := query.New(subject).Search(s.records(ctx, subject, "recall"), query.Params{
		Query:      p.Query,
		Category:   p.Category,
		Tag:        p.Tag,
		Importance: p.Importance,
		Limit:      limit,
	})
	s.log.Debug().Str("subject", subject).Str("query", p.Query).Int("count", len(out)).Msg("memories recalled")
	return out
}

// ByCategory returns every record of subject in category, ranked.
func (s *MemoryService) ByCategory(ctx context.Context, subject, category string) []model.Memory {
	ctx, span := startSpan(ctx, "by_category", subject)
	defer span.End()
	return query.New(subject).ByCategory(s.records(ctx, subject, "by_category"), category)
}

// ByImportance returns every record of subject at level, ranked.
func (s *MemoryService) ByImportance(ctx context.Context, subject, level string) []model.Memory {
	ctx, span := startSpan(ctx, "by_importance", subject)
	defer span.End()
	return query.New(subject).ByImportance(s.records(ctx, subject, "by_importance"), level)
}

// ProfileSummary groups subject's user-kind records into the fixed summary
// sections, each ranked and capped by limits.
func (s *MemoryService) ProfileSummary(ctx context.Context, subject string, limits query.SummaryLimits) query.Summary {
	ctx, span := startSpan(ctx, "profile_summary", subject)
	defer span.End()
	return query.New(subject).ProfileSummary(s.records(ctx, subject, "profile_summary"), limits)
}

// Stats reports totals, distinct categories and tags, and counts per
// importance level. A failed read reports an empty collection.
func (s *MemoryService) Stats(ctx context.Context, subject string) Stats {
	ctx, span := startSpan(ctx, "stats", subject)
	defer span.End()

	st := Stats{
		Categories: []model.Category{},
		Tags:       []string{},
		ByImportance: map[model.Importance]int{
			model.ImportanceHigh:   0,
			model.ImportanceMedium: 0,
			model.ImportanceLow:    0,
		},
	}
	h, err := s.handle(subject)
	if err != nil {
		s.degraded(ctx, subject, "stats", err)
		return st
	}
	records, err := h.List(ctx)
	if err != nil {
		s.degraded(ctx, subject, "stats", err)
		return st
	}
	categories, err := h.Categories(ctx)
	if err != nil {
		s.degraded(ctx, subject, "stats", err)
		return st
	}
	tags, err := h.Tags(ctx)
	if err != nil {
		s.degraded(ctx, subject, "stats", err)
		return st
	}

	st.Total = len(records)
	st.Categories = categories
	st.Tags = tags
	for _, r := range records {
		// Unrecognized levels rank as low, so they are counted as low.
		level, ok := model.LookupImportance(string(r.Importance))
		if !ok {
			level = model.ImportanceLow
		}
		st.ByImportance[level]++
	}
	return st
}

// UpdateImportance sets the importance of record id. Only high, medium and
// low are accepted.
func (s *MemoryService) UpdateImportance(ctx context.Context, subject, id, level string) (_ *model.Memory, err error) {
	ctx, span := startSpan(ctx, "update_importance", subject)
	defer func() { endSpan(span, err) }()

	importance, ok := model.LookupImportance(level)
	if !ok {
		return nil, model.NewValidationError("importance", fmt.Sprintf("invalid importance level %q (use high, medium or low)", level))
	}
	h, err := s.handle(subject)
	if err != nil {
		return nil, fmt.Errorf("update importance: %w", err)
	}
	m, err := h.UpdateImportance(ctx, id, importance)
	if err != nil {
		return nil, fmt.Errorf("update importance: %w", err)
	}
	s.log.Debug().Str("subject", subject).Str("id", id).Str("importance", string(importance)).Msg("importance updated")
	return m, nil
}

// Clear removes every record of subject.
func (s *MemoryService) Clear(ctx context.Context, subject string) (err error) {
	ctx, span := startSpan(ctx, "clear", subject)
	defer func() { endSpan(span, err) }()

	h, err := s.handle(subject)
	if err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	if err := h.Clear(ctx); err != nil {
		return fmt.Errorf("clear: %w", err)
	}
	s.log.Info().Str("subject", subject).Msg("memories cleared")
	return nil
}

// BuildContext renders subject's most relevant records for q as a text
// block. When q matches nothing the top ranked records are used instead. A
// negative limit uses the configured context size.
func (s *MemoryService) BuildContext(ctx context.Context, subject, q string, limit int) string {
	ctx, span := startSpan(ctx, "build_context", subject)
	defer span.End()

	if limit < 0 {
		limit = s.cfg.ContextMaxItems
	}
	if limit == 0 {
		return ""
	}
	records := s.records(ctx, subject, "build_context")
	engine := query.New(subject)
	ranked := engine.Search(records, query.Params{Query: q, Limit: limit})
	if len(ranked) == 0 && q != "" {
		ranked = engine.Search(records, query.Params{Limit: limit})
	}
	return s.builder.BuildContext(ranked, limit)
}

// BuildConversationSummary compresses subject's recent turns into a bounded
// description.
func (s *MemoryService) BuildConversationSummary(ctx context.Context, subject string, turns []contextbuild.Turn) string {
	_, span := startSpan(ctx, "build_conversation_summary", subject)
	defer span.End()
	return s.builder.ConversationSummary(turns)
}

// ConversationContext returns subject's top ranked conversation records.
func (s *MemoryService) ConversationContext(ctx context.Context, subject string) []model.Memory {
	ctx, span := startSpan(ctx, "conversation_context", subject)
	defer span.End()
	return query.New(subject).Search(s.records(ctx, subject, "conversation_context"), query.Params{
		Category: string(model.CategoryConversation),
		Limit:    conversationContextLimit,
	})
}

// Status inspects subject's backing storage. Failures are reported in the
// Error field rather than returned.
func (s *MemoryService) Status(ctx context.Context, subject string) Status {
	ctx, span := startSpan(ctx, "status", subject)
	defer span.End()

	st := Status{
		Subject:    subject,
		Backend:    s.cfg.Backend,
		Categories: []model.Category{},
		Sample:     []model.Memory{},
	}
	h, err := s.handle(subject)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Path = h.Path()
	if info, err := os.Stat(st.Path); err == nil {
		st.Exists = true
		st.SizeBytes = info.Size()
	}
	records, err := h.List(ctx)
	if err != nil {
		s.degraded(ctx, subject, "status", err)
		st.Error = err.Error()
		return st
	}
	st.Count = len(records)
	categories, err := h.Categories(ctx)
	if err == nil {
		st.Categories = categories
	}
	if len(records) > statusSampleSize {
		records = records[:statusSampleSize]
	}
	st.Sample = records
	return st
}

// Export writes subject's ranked records to w. A failed read exports an
// empty collection; encoding failures are returned.
func (s *MemoryService) Export(ctx context.Context, subject string, w io.Writer, format exchange.Format) (err error) {
	ctx, span := startSpan(ctx, "export", subject)
	defer func() { endSpan(span, err) }()

	records := query.New(subject).Search(s.records(ctx, subject, "export"), query.Params{Limit: exchange.ExportLimit})
	if err := exchange.Write(w, format, records); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// Ingest stores every usable memory of a generation payload. Entries with
// empty content or an unknown category are skipped and counted. The first
// storage failure aborts the ingest and is returned with what was stored so far.
func (s *MemoryService) Ingest(ctx context.Context, subject string, data []byte) (_ *IngestResult, err error) {
	ctx, span := startSpan(ctx, "ingest", subject)
	defer func() { endSpan(span, err) }()

	if err := model.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	payload, err := exchange.ParsePayload(data)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	res := &IngestResult{Response: payload.Response, Stored: []model.Memory{}}
	for _, e := range payload.Memories {
		if !e.Usable() {
			res.Skipped++
			continue
		}
		m, err := s.Remember(ctx, subject, RememberParams{
			Content:    e.Content,
			Category:   e.Category,
			Importance: e.Importance,
			Kind:       e.Type,
		})
		if model.IsValidationError(err) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("ingest: %w", err)
		}
		res.Stored = append(res.Stored, *m)
	}
	s.log.Debug().Str("subject", subject).Int("stored", len(res.Stored)).Int("skipped", res.Skipped).Msg("payload ingested")
	return res, nil
}
