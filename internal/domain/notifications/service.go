package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"selfeval/internal/domain/auth"
	"selfeval/internal/domain/responses"
	"selfeval/internal/platform/events"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Dispatcher runs work in the background. Enqueue reports false when the job was dropped.
type Dispatcher interface {
	Enqueue(jobType string, run func(context.Context) error) bool
}

const jobMail = "notification_mail"

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	Dispatcher  Dispatcher
	DefaultFrom string
	now         func() time.Time
}

func New(store StoreAPI, mailer Mailer) *Service {
	return &Service{store: store, Mailer: mailer, DefaultFrom: "no-reply@example.com", now: time.Now}
}

// Create stores an inbox entry and mails it to the user. Mail failures are logged only.
func (s *Service) Create(ctx context.Context, userID, ntype, title, body string) error {
	userID = auth.NormalizeEmail(userID)
	n := Notification{Type: ntype, Title: title, Body: body, CreatedAt: s.now().UTC()}
	if _, err := s.store.Create(ctx, userID, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.Mailer == nil || userID == "" {
		return nil
	}
	send := func(ctx context.Context) error {
		return s.Mailer.Send(ctx, s.DefaultFrom, userID, title, body)
	}
	if s.Dispatcher != nil && s.Dispatcher.Enqueue(jobMail, send) {
		return nil
	}
	if err := send(ctx); err != nil {
		slog.Warn("notification email send failed", "user", userID, "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, unreadOnly bool) ([]Notification, error) {
	if !actor.Authenticated() {
		return nil, auth.ErrNotAuthenticated
	}
	return s.store.List(ctx, auth.NormalizeEmail(actor.Email), unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, actor auth.Actor, id string) error {
	if !actor.Authenticated() {
		return auth.ErrNotAuthenticated
	}
	return s.store.MarkRead(ctx, auth.NormalizeEmail(actor.Email), id)
}

// Reviewed notifies the owner of a response about a reviewer decision.
func (s *Service) Reviewed(ctx context.Context, e events.ResponseReviewed) error {
	var ntype, title string
	switch responses.Status(e.Status) {
	case responses.StatusApproved:
		ntype, title = TypeResponseApproved, "Your response was approved"
	case responses.StatusRejected:
		ntype, title = TypeResponseRejected, "Your response was rejected"
	default:
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Item: %s\n", e.QuestionTitle)
	fmt.Fprintf(&b, "Decision: %s\n", e.Status)
	if e.VerifiedBy != "" {
		fmt.Fprintf(&b, "Reviewed by: %s\n", e.VerifiedBy)
	}
	if e.Reason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", e.Reason)
	}
	return s.Create(ctx, e.UserID, ntype, title, b.String())
}

func (s *Service) Subscribe(bus *events.Bus) {
	events.On(bus, s.Reviewed)
}
