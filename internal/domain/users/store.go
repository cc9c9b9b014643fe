package users

import (
	"context"
	"errors"
	"time"

	"selfeval/internal/platform/docstore"
)

type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

// record is the persisted shape; it keeps the password hash that Profile hides from JSON.
type record struct {
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	LastName     string     `json:"lastName,omitempty"`
	Roles        []string   `json:"roles"`
	Avatar       string     `json:"avatar,omitempty"`
	PasswordHash string     `json:"passwordHash,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func toRecord(p Profile) record {
	return record(p)
}

func (r record) profile() Profile {
	return Profile(r)
}

// FindByEmail returns the profile and its document id.
func (s *Store) FindByEmail(ctx context.Context, email string) (Profile, string, error) {
	docs, err := s.docs.Find(ctx, Collection, docstore.Filter{"email": email})
	if err != nil {
		return Profile{}, "", err
	}
	if len(docs) == 0 {
		return Profile{}, "", ErrNotFound
	}
	var rec record
	if err := docs[0].Decode(&rec); err != nil {
		return Profile{}, "", err
	}
	return rec.profile(), docs[0].ID, nil
}

func (s *Store) Create(ctx context.Context, p Profile) error {
	_, err := s.docs.Insert(ctx, Collection, toRecord(p))
	return err
}

func (s *Store) Update(ctx context.Context, id string, p Profile) error {
	err := s.docs.Update(ctx, Collection, id, toRecord(p))
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) List(ctx context.Context) ([]Profile, error) {
	docs, err := s.docs.Find(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}
	recs, err := docstore.DecodeAll[record](docs, nil)
	if err != nil {
		return nil, err
	}
	out := make([]Profile, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.profile())
	}
	return out, nil
}
