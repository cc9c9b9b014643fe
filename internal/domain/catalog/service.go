package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"selfeval/internal/domain/auth"
	"selfeval/internal/platform/cache"
	"selfeval/internal/platform/events"
)

const categoriesKey = "catalog:categories"

func categoryKey(category string) string { return "catalog:category:" + category }

type Service struct {
	store    StoreAPI
	cache    cache.Cache
	cacheTTL time.Duration
	events   events.Publisher
	group    singleflight.Group
	now      func() time.Time

	// SeedFile is the static catalog used by BulkSeed and SeedAll.
	SeedFile string
	// OnCacheLookup, when set, observes catalog cache hits and misses.
	OnCacheLookup func(view string, hit bool)
}

func NewService(store StoreAPI, c cache.Cache, ttl time.Duration, pub events.Publisher) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	if pub == nil {
		pub = events.Discard{}
	}
	return &Service{store: store, cache: c, cacheTTL: ttl, events: pub, now: time.Now}
}

// ListByCategory returns the category's questions in insertion order.
// Concurrent identical reads share one store round-trip.
func (s *Service) ListByCategory(ctx context.Context, category string) ([]Question, error) {
	key := categoryKey(category)
	var cached []Question
	if s.cachedInto(ctx, "catalog", key, &cached) {
		return cached, nil
	}
	v, err := s.shared(ctx, key, func(ctx context.Context) (any, error) {
		questions, err := s.store.ListByCategory(ctx, category)
		if err != nil {
			return nil, err
		}
		s.remember(ctx, key, questions)
		return questions, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return v.([]Question), nil
}

// shared runs fetch once per key for all concurrent callers. The fetch is
// detached from any single caller's cancellation; each caller still stops
// waiting when its own ctx ends.
func (s *Service) shared(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (any, error) { return fetch(detached) })
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Categories lists distinct categories in first-seen order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	var cached []string
	if s.cachedInto(ctx, "categories", categoriesKey, &cached) {
		return cached, nil
	}
	v, err := s.shared(ctx, categoriesKey, func(ctx context.Context) (any, error) {
		all, err := s.store.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		out := []string{}
		for _, q := range all {
			if !seen[q.Category] {
				seen[q.Category] = true
				out = append(out, q.Category)
			}
		}
		s.remember(ctx, categoriesKey, out)
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return v.([]string), nil
}

func (s *Service) Get(ctx context.Context, id string) (Question, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, q Question) (Question, error) {
	if err := auth.Require(actor, auth.PermCatalogEdit); err != nil {
		return Question{}, err
	}
	q.Title = strings.TrimSpace(q.Title)
	q.Category = strings.TrimSpace(q.Category)
	if q.Title == "" {
		return Question{}, fmt.Errorf("%w: title is required", ErrInvalidQuestion)
	}
	if q.Category == "" {
		return Question{}, fmt.Errorf("%w: category is required", ErrInvalidQuestion)
	}
	now := s.now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now
	id, err := s.store.Create(ctx, q)
	if err != nil {
		return Question{}, fmt.Errorf("create question: %w", err)
	}
	q.ID = id
	s.changed(ctx, q.Category)
	return q, nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, q Question) (Question, error) {
	if err := auth.Require(actor, auth.PermCatalogEdit); err != nil {
		return Question{}, err
	}
	q.Title = strings.TrimSpace(q.Title)
	if q.Title == "" {
		return Question{}, fmt.Errorf("%w: title is required", ErrInvalidQuestion)
	}
	existing, err := s.store.Get(ctx, q.ID)
	if err != nil {
		return Question{}, err
	}
	q.Category = strings.TrimSpace(q.Category)
	if q.Category == "" {
		q.Category = existing.Category
	}
	q.CreatedAt = existing.CreatedAt
	q.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, q); err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	s.changed(ctx, existing.Category)
	if q.Category != existing.Category {
		s.changed(ctx, q.Category)
	}
	return q, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Actor, id string) error {
	if err := auth.Require(actor, auth.PermCatalogEdit); err != nil {
		return err
	}
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	s.changed(ctx, existing.Category)
	return nil
}

// BulkSeed inserts the seed catalog's rows for category whose titles are not yet present.
func (s *Service) BulkSeed(ctx context.Context, actor auth.Actor, category string) (SeedResult, error) {
	if err := auth.Require(actor, auth.PermCatalogEdit); err != nil {
		return SeedResult{}, err
	}
	rows, err := s.seedRows()
	if err != nil {
		return SeedResult{}, err
	}
	return s.seed(ctx, strings.TrimSpace(category), rows)
}

// SeedAll seeds every category found in the seed catalog. It runs at startup without an actor.
func (s *Service) SeedAll(ctx context.Context) ([]SeedResult, error) {
	rows, err := s.seedRows()
	if err != nil {
		return nil, err
	}
	var results []SeedResult
	for _, category := range SeedCategories(rows) {
		res, err := s.seed(ctx, category, rows)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) seedRows() ([]SeedRow, error) {
	if strings.TrimSpace(s.SeedFile) == "" {
		return nil, ErrNoSeedSource
	}
	return LoadSeedFile(s.SeedFile)
}

func (s *Service) seed(ctx context.Context, category string, rows []SeedRow) (SeedResult, error) {
	result := SeedResult{Category: category}
	existing, err := s.store.ListByCategory(ctx, category)
	if err != nil {
		return result, fmt.Errorf("seed %s: %w", category, err)
	}
	titles := map[string]bool{}
	for _, q := range existing {
		titles[q.Title] = true
	}

	now := s.now().UTC()
	for _, row := range rows {
		if row.Category != category {
			continue
		}
		if row.Title == "" || titles[row.Title] {
			result.Skipped++
			continue
		}
		q := Question{
			Title:            row.Title,
			Category:         category,
			Points:           row.Points,
			Tooltip:          row.Tooltip,
			LibraryEvaluated: row.LibraryEvaluated,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if _, err := s.store.Create(ctx, q); err != nil {
			return result, fmt.Errorf("seed %s: %w", category, err)
		}
		titles[row.Title] = true
		result.Added++
	}
	if result.Added > 0 {
		s.changed(ctx, category)
	}
	return result, nil
}

// Invalidate drops cached views for a category.
func (s *Service) Invalidate(ctx context.Context, category string) {
	if err := s.cache.Delete(ctx, categoryKey(category), categoriesKey); err != nil {
		slog.Warn("catalog cache invalidation failed", "category", category, "err", err)
	}
}

func (s *Service) changed(ctx context.Context, category string) {
	s.Invalidate(ctx, category)
	s.events.Publish(ctx, events.CatalogChanged{Category: category})
}

func (s *Service) cachedInto(ctx context.Context, view, key string, out any) bool {
	err := cache.GetJSON(ctx, s.cache, key, out)
	if err != nil && !errors.Is(err, cache.ErrMiss) {
		slog.Warn("catalog cache read failed", "key", key, "err", err)
	}
	if s.OnCacheLookup != nil {
		s.OnCacheLookup(view, err == nil)
	}
	return err == nil
}

func (s *Service) remember(ctx context.Context, key string, value any) {
	if err := cache.SetJSON(ctx, s.cache, key, value, s.cacheTTL); err != nil {
		slog.Warn("catalog cache write failed", "key", key, "err", err)
	}
}
