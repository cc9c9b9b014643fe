package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"selfeval/internal/domain/auth"
)

type Service struct {
	store     StoreAPI
	directory Directory
	now       func() time.Time
}

func NewService(store StoreAPI, directory Directory) *Service {
	if directory == nil {
		directory = Directory{}
	}
	return &Service{store: store, directory: directory, now: time.Now}
}

// SignIn creates the profile on first login and merges it afterwards.
// Roles are refreshed from the provider and the configured directory when
// either supplies any; otherwise the stored roles are kept.
func (s *Service) SignIn(ctx context.Context, id auth.Identity) (Profile, error) {
	email := auth.NormalizeEmail(id.Email)
	if email == "" || !strings.Contains(email, "@") {
		return Profile{}, ErrInvalidEmail
	}
	now := s.now().UTC()
	fresh := auth.NormalizeRoles(append(append([]string{}, id.Roles...), s.directory[email]...))

	existing, docID, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		p := Profile{
			Email:       email,
			Name:        id.Name,
			LastName:    id.LastName,
			Avatar:      id.Avatar,
			Roles:       fresh,
			CreatedAt:   now,
			LastLoginAt: &now,
		}
		if err := s.store.Create(ctx, p); err != nil {
			return Profile{}, fmt.Errorf("create profile: %w", err)
		}
		return p, nil
	}
	if err != nil {
		return Profile{}, err
	}

	if id.Name != "" {
		existing.Name = id.Name
	}
	if id.LastName != "" {
		existing.LastName = id.LastName
	}
	if id.Avatar != "" {
		existing.Avatar = id.Avatar
	}
	if len(fresh) > 0 {
		existing.Roles = fresh
	}
	existing.LastLoginAt = &now
	if err := s.store.Update(ctx, docID, existing); err != nil {
		return Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return existing, nil
}

// Authenticate checks a local password account and signs it in.
func (s *Service) Authenticate(ctx context.Context, email, password string) (Profile, error) {
	email = auth.NormalizeEmail(email)
	p, _, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return Profile{}, auth.ErrInvalidCredentials
	}
	if err != nil {
		return Profile{}, err
	}
	if p.PasswordHash == "" || auth.CheckPassword(p.PasswordHash, password) != nil {
		return Profile{}, auth.ErrInvalidCredentials
	}
	signed, err := s.SignIn(ctx, auth.Identity{Email: email})
	if err != nil {
		return Profile{}, err
	}
	signed.PasswordHash = p.PasswordHash
	return signed, nil
}

func (s *Service) Get(ctx context.Context, email string) (Profile, error) {
	p, _, err := s.store.FindByEmail(ctx, auth.NormalizeEmail(email))
	return p, err
}

// Emails lists every known profile address in store order.
func (s *Service) Emails(ctx context.Context) ([]string, error) {
	profiles, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, p.Email)
	}
	return out, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Profile, error) {
	if err := auth.Require(actor, auth.PermUsersManage); err != nil {
		return nil, err
	}
	return s.store.List(ctx)
}

func (s *Service) SetRoles(ctx context.Context, actor auth.Actor, email string, roles []string) (Profile, error) {
	if err := auth.Require(actor, auth.PermUsersManage); err != nil {
		return Profile{}, err
	}
	p, docID, err := s.store.FindByEmail(ctx, auth.NormalizeEmail(email))
	if err != nil {
		return Profile{}, err
	}
	p.Roles = auth.NormalizeRoles(roles)
	if err := s.store.Update(ctx, docID, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// EnsureAdmin creates a local admin account unless the address already exists.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) error {
	email = auth.NormalizeEmail(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return nil
	}
	_, _, err := s.store.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx, Profile{
		Email:        email,
		Name:         "Administrator",
		Roles:        []string{auth.RoleAdmin},
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}); err != nil {
		return err
	}
	slog.Info("seed admin created", "email", email)
	return nil
}
