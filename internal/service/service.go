// Package service exposes the profile memory operations consumed by the
// surrounding application.
//
// Reads are best effort: a storage failure while reading is logged, counted
// and answered with an empty result. Writes return their error so callers can
// tell that nothing was saved.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rcliao/profile-memory/internal/config"
	"github.com/rcliao/profile-memory/internal/contextbuild"
	"github.com/rcliao/profile-memory/internal/model"
	"github.com/rcliao/profile-memory/internal/store"
)

var tracer = otel.Tracer("profile-memory")

// MemoryService keeps one store handle per subject and routes every
// operation through it.
type MemoryService struct {
	cfg     *config.Config
	log     zerolog.Logger
	cache   *store.RecordCache
	builder contextbuild.Builder

	mu      sync.Mutex
	handles map[string]store.Store
}

// New creates a MemoryService from cfg.
func New(cfg *config.Config, log zerolog.Logger) (*MemoryService, error) {
	var cache *store.RecordCache
	if cfg.CacheEnabled && cfg.Backend != config.BackendSQLite {
		c, err := store.NewRecordCache(cfg.CacheMaxBytes)
		if err != nil {
			return nil, err
		}
		cache = c
	}
	return &MemoryService{
		cfg:   cfg,
		log:   log,
		cache: cache,
		builder: contextbuild.Builder{
			MaxChars:        cfg.ContextMaxChars,
			MaxTurns:        cfg.SummaryMaxTurns,
			SummaryMaxChars: cfg.SummaryMaxChars,
			TurnMaxChars:    cfg.TurnMaxChars,
		},
		handles: make(map[string]store.Store),
	}, nil
}

// Close releases every open store handle.
func (s *MemoryService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for subject, h := range s.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", subject, err))
		}
		delete(s.handles, subject)
	}
	s.cache.Close()
	return errors.Join(errs...)
}

// handle returns the cached store for subject, opening it on first use.
func (s *MemoryService) handle(subject string) (store.Store, error) {
	if err := model.ValidateSubject(subject); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.handles[subject]; ok {
		return h, nil
	}
	h, err := store.Open(s.cfg, subject, s.cache)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	s.handles[subject] = h
	s.log.Debug().
		Str("subject", subject).
		Str("backend", s.cfg.Backend).
		Str("path", h.Path()).
		Msg("memory store initialized")
	return h, nil
}

// records lists subject's collection, degrading any failure to empty.
func (s *MemoryService) records(ctx context.Context, subject, op string) []model.Memory {
	h, err := s.handle(subject)
	if err == nil {
		var recs []model.Memory
		recs, err = h.List(ctx)
		if err == nil {
			return recs
		}
	}
	s.degraded(ctx, subject, op, err)
	return []model.Memory{}
}

func (s *MemoryService) degraded(ctx context.Context, subject, op string, err error) {
	degradedReadsTotal.WithLabelValues(op).Inc()
	trace.SpanFromContext(ctx).RecordError(err)
	s.log.Error().
		Err(err).
		Str("subject", subject).
		Str("op", op).
		Msg("memory read failed, returning empty result")
}

func startSpan(ctx context.Context, op, subject string) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return tracer.Start(ctx, "memory."+op, trace.WithAttributes(attribute.String("subject", subject)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
