package responses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"selfeval/internal/domain/auth"
	"selfeval/internal/platform/docstore"
	"selfeval/internal/platform/events"
)

type Service struct {
	store  StoreAPI
	users  UserLister
	events events.Publisher
	now    func() time.Time
}

func NewService(store StoreAPI, users UserLister, pub events.Publisher) *Service {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Service{store: store, users: users, events: pub, now: time.Now}
}

// requireOwner allows an authenticated actor to act on their own responses only.
func requireOwner(actor auth.Actor, userID string) error {
	if err := auth.Require(actor, auth.PermFormFill); err != nil {
		return err
	}
	if auth.NormalizeEmail(actor.Email) != auth.NormalizeEmail(userID) {
		return auth.ErrForbidden
	}
	return nil
}

// ListForUser returns the user's responses, restricted to category when it is not empty.
// Owners and reviewers may read.
func (s *Service) ListForUser(ctx context.Context, actor auth.Actor, userID, category string) ([]Response, error) {
	if err := requireOwner(actor, userID); err != nil {
		if !errors.Is(err, auth.ErrForbidden) {
			return nil, err
		}
		if err := auth.RequireAny(actor, auth.PermResponsesReview, auth.PermLibraryReview, auth.PermReportsRead); err != nil {
			return nil, err
		}
	}
	var filter docstore.Filter
	if category != "" {
		filter = docstore.Filter{"category": category}
	}
	list, err := s.store.List(ctx, auth.NormalizeEmail(userID), filter)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return list, nil
}

// UpsertByQuestion creates a pending response for the question or overwrites the
// existing one, resetting it to pending and clearing verification.
func (s *Service) UpsertByQuestion(ctx context.Context, actor auth.Actor, userID, questionID string, patch Patch) (Response, error) {
	if err := requireOwner(actor, userID); err != nil {
		return Response{}, err
	}
	userID = auth.NormalizeEmail(userID)
	existing, found, err := s.store.FindByQuestion(ctx, userID, questionID)
	if err != nil {
		return Response{}, fmt.Errorf("find response: %w", err)
	}
	if found && existing.Status == StatusApproved {
		return existing, ErrEditForbidden
	}

	now := s.now().UTC()
	if !found {
		r := Response{
			QuestionID:       questionID,
			QuestionTitle:    patch.QuestionTitle,
			Points:           patch.Points,
			Category:         patch.Category,
			Status:           StatusPending,
			LibraryEvaluated: patch.LibraryEvaluated,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		id, err := s.store.Create(ctx, userID, r)
		if err != nil {
			return Response{}, fmt.Errorf("create response: %w", err)
		}
		r.ID = id
		s.events.Publish(ctx, events.ResponsesChanged{UserID: userID, Category: r.Category})
		return r, nil
	}

	existing.Points = patch.Points
	if patch.QuestionTitle != "" {
		existing.QuestionTitle = patch.QuestionTitle
	}
	if patch.Category != "" {
		existing.Category = patch.Category
	}
	existing.LibraryEvaluated = patch.LibraryEvaluated
	existing.Status = StatusPending
	existing.VerifiedBy = ""
	existing.VerifiedAt = nil
	existing.RejectionReason = ""
	existing.UpdatedAt = now
	if err := s.store.Update(ctx, userID, existing); err != nil {
		return Response{}, fmt.Errorf("update response: %w", err)
	}
	s.events.Publish(ctx, events.ResponsesChanged{UserID: userID, Category: existing.Category})
	return existing, nil
}

// Remove deletes one of the actor's own responses unless it is approved.
func (s *Service) Remove(ctx context.Context, actor auth.Actor, userID, responseID string) error {
	if err := requireOwner(actor, userID); err != nil {
		return err
	}
	userID = auth.NormalizeEmail(userID)
	existing, err := s.store.Get(ctx, userID, responseID)
	if err != nil {
		return err
	}
	if existing.Status == StatusApproved {
		return ErrEditForbidden
	}
	if err := s.store.Delete(ctx, userID, responseID); err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	s.events.Publish(ctx, events.ResponsesChanged{UserID: userID, Category: existing.Category})
	return nil
}

// SetStatus records a reviewer decision. The reason is kept for rejections only.
func (s *Service) SetStatus(ctx context.Context, actor auth.Actor, userID, responseID string, status Status, reason string) (Response, error) {
	if err := auth.RequireAny(actor, auth.PermResponsesReview, auth.PermLibraryReview); err != nil {
		return Response{}, err
	}
	if status != StatusApproved && status != StatusRejected {
		return Response{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	userID = auth.NormalizeEmail(userID)
	r, err := s.store.Get(ctx, userID, responseID)
	if err != nil {
		return Response{}, err
	}
	if !actor.Can(auth.PermResponsesReview) && !r.LibraryEvaluated {
		return Response{}, auth.ErrForbidden
	}

	now := s.now().UTC()
	r.Status = status
	r.VerifiedBy = actor.Email
	r.VerifiedAt = &now
	r.UpdatedAt = now
	r.RejectionReason = ""
	if status == StatusRejected {
		r.RejectionReason = strings.TrimSpace(reason)
	}
	if err := s.store.Update(ctx, userID, r); err != nil {
		return Response{}, fmt.Errorf("update response status: %w", err)
	}
	s.reviewed(ctx, userID, r)
	return r, nil
}

// SetArticles replaces the articles recorded on a library-evaluated response.
func (s *Service) SetArticles(ctx context.Context, actor auth.Actor, userID, responseID string, articles []Article) (Response, error) {
	if err := auth.Require(actor, auth.PermLibraryReview); err != nil {
		return Response{}, err
	}
	for i, a := range articles {
		if strings.TrimSpace(a.Title) == "" {
			return Response{}, fmt.Errorf("%w: article %d has no title", ErrInvalidArticles, i+1)
		}
		if a.Points < 0 {
			return Response{}, fmt.Errorf("%w: article %d has negative points", ErrInvalidArticles, i+1)
		}
	}
	userID = auth.NormalizeEmail(userID)
	r, err := s.store.Get(ctx, userID, responseID)
	if err != nil {
		return Response{}, err
	}
	if r.Status == StatusApproved {
		return r, ErrEditForbidden
	}
	if !r.LibraryEvaluated {
		return Response{}, fmt.Errorf("%w: response is not library evaluated", ErrInvalidArticles)
	}
	r.Articles = articles
	r.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, userID, r); err != nil {
		return Response{}, fmt.Errorf("update articles: %w", err)
	}
	s.events.Publish(ctx, events.ResponsesChanged{UserID: userID, Category: r.Category})
	return r, nil
}

// BatchApprove approves every referenced response that has at least one article,
// setting its points to the article total. Refs without articles are skipped.
func (s *Service) BatchApprove(ctx context.Context, actor auth.Actor, refs []Ref) ([]BatchOutcome, error) {
	if err := auth.Require(actor, auth.PermLibraryReview); err != nil {
		return nil, err
	}
	out := make([]BatchOutcome, 0, len(refs))
	for _, ref := range refs {
		out = append(out, s.approveOne(ctx, actor, ref))
	}
	return out, nil
}

func (s *Service) approveOne(ctx context.Context, actor auth.Actor, ref Ref) BatchOutcome {
	userID := auth.NormalizeEmail(ref.UserID)
	result := BatchOutcome{Ref: Ref{UserID: userID, ResponseID: ref.ResponseID}}
	r, err := s.store.Get(ctx, userID, ref.ResponseID)
	if err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = err.Error()
		return result
	}
	switch {
	case r.Status == StatusApproved:
		result.Outcome = OutcomeSkipped
		result.Reason = "already approved"
		return result
	case len(r.Articles) == 0:
		result.Outcome = OutcomeSkipped
		result.Reason = "no articles"
		return result
	}

	now := s.now().UTC()
	r.Points = r.ArticlePoints()
	r.Status = StatusApproved
	r.VerifiedBy = actor.Email
	r.VerifiedAt = &now
	r.UpdatedAt = now
	r.RejectionReason = ""
	if err := s.store.Update(ctx, userID, r); err != nil {
		result.Outcome = OutcomeFailed
		result.Reason = err.Error()
		return result
	}
	s.reviewed(ctx, userID, r)
	result.Outcome = OutcomeApproved
	result.Points = r.Points
	return result
}

// ReviewQueue lists responses across every known user. Library-only reviewers
// see library-evaluated responses only.
func (s *Service) ReviewQueue(ctx context.Context, actor auth.Actor, filter QueueFilter) ([]QueueItem, error) {
	if err := auth.RequireAny(actor, auth.PermResponsesReview, auth.PermLibraryReview); err != nil {
		return nil, err
	}
	if !actor.Can(auth.PermResponsesReview) {
		filter.LibraryOnly = true
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}

	query := docstore.Filter{}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.Category != "" {
		query["category"] = filter.Category
	}
	if filter.LibraryOnly {
		query["libraryEvaluated"] = true
	}

	emails, err := s.users.Emails(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	items := []QueueItem{}
	for _, email := range emails {
		list, err := s.store.List(ctx, email, query)
		if err != nil {
			return nil, fmt.Errorf("list responses of %s: %w", email, err)
		}
		for _, r := range list {
			items = append(items, QueueItem{UserID: email, Response: r})
		}
	}
	return items, nil
}

func (s *Service) reviewed(ctx context.Context, userID string, r Response) {
	s.events.Publish(ctx, events.ResponseReviewed{
		UserID:        userID,
		ResponseID:    r.ID,
		QuestionTitle: r.QuestionTitle,
		Status:        string(r.Status),
		VerifiedBy:    r.VerifiedBy,
		VerifiedAt:    r.VerifiedAt,
		Reason:        r.RejectionReason,
	})
}
