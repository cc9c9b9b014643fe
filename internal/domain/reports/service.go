package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/responses"
	"selfeval/internal/domain/users"
	"selfeval/internal/platform/cache"
	"selfeval/internal/platform/events"
)

type ResponseReader interface {
	ListForUser(ctx context.Context, actor auth.Actor, userID, category string) ([]responses.Response, error)
}

type ProfileReader interface {
	Get(ctx context.Context, email string) (users.Profile, error)
	Emails(ctx context.Context) ([]string, error)
}

type UserReport struct {
	Email       string                     `json:"email"`
	Name        string                     `json:"name"`
	LastName    string                     `json:"lastName,omitempty"`
	Summary     UserSummary                `json:"summary"`
	Categories  map[string]CategorySummary `json:"categories"`
	Responses   []responses.Response       `json:"responses"`
	GeneratedAt time.Time                  `json:"generatedAt"`
}

type LibraryRow struct {
	Email          string  `json:"email"`
	Name           string  `json:"name"`
	Items          int     `json:"items"`
	Articles       int     `json:"articles"`
	PendingCount   int     `json:"pendingCount"`
	ApprovedCount  int     `json:"approvedCount"`
	TotalPoints    float64 `json:"totalPoints"`
	ApprovedPoints float64 `json:"approvedPoints"`
}

type Service struct {
	responses ResponseReader
	profiles  ProfileReader
	cache     cache.Cache
	cacheTTL  time.Duration
	now       func() time.Time

	OnCacheLookup func(view string, hit bool)
}

func NewService(r ResponseReader, p ProfileReader, c cache.Cache, ttl time.Duration) *Service {
	if c == nil {
		c = cache.NewMemory()
	}
	return &Service{responses: r, profiles: p, cache: c, cacheTTL: ttl, now: time.Now}
}

func userKey(email string) string { return "report:user:" + email }

// UserReport summarizes one user's responses. Users may read their own report;
// others need reports.read.
func (s *Service) UserReport(ctx context.Context, actor auth.Actor, userID string) (UserReport, error) {
	userID = auth.NormalizeEmail(userID)
	if auth.NormalizeEmail(actor.Email) != userID || !actor.Authenticated() {
		if err := auth.Require(actor, auth.PermReportsRead); err != nil {
			return UserReport{}, err
		}
	}

	var report UserReport
	err := cache.GetJSON(ctx, s.cache, userKey(userID), &report)
	if s.OnCacheLookup != nil {
		s.OnCacheLookup("user_report", err == nil)
	}
	if err == nil {
		return report, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		slog.Warn("report cache read failed", "user", userID, "err", err)
	}

	profile, err := s.profiles.Get(ctx, userID)
	if err != nil && !errors.Is(err, users.ErrNotFound) {
		return UserReport{}, err
	}
	list, err := s.responses.ListForUser(ctx, actor, userID, "")
	if err != nil {
		return UserReport{}, fmt.Errorf("user report: %w", err)
	}
	report = UserReport{
		Email:       userID,
		Name:        profile.Name,
		LastName:    profile.LastName,
		Summary:     SummarizeUser(list),
		Categories:  SummarizeByCategory(list),
		Responses:   list,
		GeneratedAt: s.now().UTC(),
	}
	if err := cache.SetJSON(ctx, s.cache, userKey(userID), report, s.cacheTTL); err != nil {
		slog.Warn("report cache write failed", "user", userID, "err", err)
	}
	return report, nil
}

// LibraryOverview totals library-evaluated responses per user, skipping users without any.
func (s *Service) LibraryOverview(ctx context.Context, actor auth.Actor) ([]LibraryRow, error) {
	if err := auth.Require(actor, auth.PermReportsRead); err != nil {
		return nil, err
	}
	emails, err := s.profiles.Emails(ctx)
	if err != nil {
		return nil, fmt.Errorf("library overview: %w", err)
	}
	rows := []LibraryRow{}
	for _, email := range emails {
		list, err := s.responses.ListForUser(ctx, actor, email, "")
		if err != nil {
			return nil, fmt.Errorf("library overview %s: %w", email, err)
		}
		var library []responses.Response
		articles := 0
		for _, r := range list {
			if r.LibraryEvaluated {
				library = append(library, r)
				articles += len(r.Articles)
			}
		}
		if len(library) == 0 {
			continue
		}
		sum := SummarizeUser(library)
		name := ""
		if p, err := s.profiles.Get(ctx, email); err == nil {
			name = p.Name
			if p.LastName != "" {
				name += " " + p.LastName
			}
		}
		rows = append(rows, LibraryRow{
			Email:          email,
			Name:           name,
			Items:          len(library),
			Articles:       articles,
			PendingCount:   sum.PendingCount,
			ApprovedCount:  sum.ApprovedCount,
			TotalPoints:    sum.TotalPoints,
			ApprovedPoints: sum.ApprovedPoints,
		})
	}
	return rows, nil
}

func (s *Service) Invalidate(ctx context.Context, userID string) {
	if err := s.cache.Delete(ctx, userKey(auth.NormalizeEmail(userID))); err != nil {
		slog.Warn("report cache invalidation failed", "user", userID, "err", err)
	}
}

// Subscribe drops a user's cached report whenever their responses change or are reviewed.
func (s *Service) Subscribe(bus *events.Bus) {
	events.On(bus, func(ctx context.Context, e events.ResponsesChanged) error {
		s.Invalidate(ctx, e.UserID)
		return nil
	})
	events.On(bus, func(ctx context.Context, e events.ResponseReviewed) error {
		s.Invalidate(ctx, e.UserID)
		return nil
	})
}
