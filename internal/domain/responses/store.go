package responses

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

func setID(r *Response, id string) { r.ID = id }

func (s *Store) List(ctx context.Context, userID string, filter docstore.Filter) ([]Response, error) {
	docs, err := s.docs.Find(ctx, CollectionFor(userID), filter)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll(docs, setID)
}

func (s *Store) FindByQuestion(ctx context.Context, userID, questionID string) (Response, bool, error) {
	found, err := s.List(ctx, userID, docstore.Filter{"questionId": questionID})
	if err != nil {
		return Response{}, false, err
	}
	if len(found) == 0 {
		return Response{}, false, nil
	}
	return found[0], true, nil
}

func (s *Store) Get(ctx context.Context, userID, responseID string) (Response, error) {
	doc, err := s.docs.Get(ctx, CollectionFor(userID), responseID)
	if errors.Is(err, docstore.ErrNotFound) {
		return Response{}, ErrNotFound
	}
	if err != nil {
		return Response{}, err
	}
	var r Response
	if err := doc.Decode(&r); err != nil {
		return Response{}, err
	}
	r.ID = doc.ID
	return r, nil
}

func (s *Store) Create(ctx context.Context, userID string, r Response) (string, error) {
	r.ID = ""
	return s.docs.Insert(ctx, CollectionFor(userID), r)
}

func (s *Store) Update(ctx context.Context, userID string, r Response) error {
	id := r.ID
	r.ID = ""
	err := s.docs.Update(ctx, CollectionFor(userID), id, r)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *Store) Delete(ctx context.Context, userID, responseID string) error {
	err := s.docs.Delete(ctx, CollectionFor(userID), responseID)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
