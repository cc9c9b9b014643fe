package catalog

import (
	"context"
	"errors"

	"selfeval/internal/platform/docstore"
)

type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func setID(q *Question, id string) { q.ID = id }

func (s *Store) ListByCategory(ctx context.Context, category string) ([]Question, error) {
	docs, err := s.docs.Find(ctx, Collection, docstore.Filter{"category": category})
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll(docs, setID)
}

func (s *Store) ListAll(ctx context.Context) ([]Question, error) {
	docs, err := s.docs.Find(ctx, Collection, nil)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll(docs, setID)
}

func (s *Store) Get(ctx context.Context, id string) (Question, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return Question{}, ErrNotFound
	}
	if err != nil {
		return Question{}, err
	}
	var q Question
	if err := doc.Decode(&q); err != nil {
		return Question{}, err
	}
	q.ID = doc.ID
	return q, nil
}

func (s *Store) Create(ctx context.Context, q Question) (string, error) {
	q.ID = ""
	return s.docs.Insert(ctx, Collection, q)
}

func (s *Store) Update(ctx context.Context, q Question) error {
	id := q.ID
	q.ID = ""
	err := s.docs.Update(ctx, Collection, id, q)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	err := s.docs.Delete(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
