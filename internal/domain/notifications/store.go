package notifications

import (
	"context"
	"errors"

	"selfeval/internal/platform/docstore"
)

var ErrNotFound = errors.New("notification not found")

type Store struct {
	docs docstore.Store
}

func NewStore(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

func (s *Store) Create(ctx context.Context, userID string, n Notification) (string, error) {
	n.ID = ""
	return s.docs.Insert(ctx, CollectionFor(userID), n)
}

func (s *Store) List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	var filter docstore.Filter
	if unreadOnly {
		filter = docstore.Filter{"read": false}
	}
	docs, err := s.docs.Find(ctx, CollectionFor(userID), filter)
	if err != nil {
		return nil, err
	}
	return docstore.DecodeAll(docs, func(n *Notification, id string) { n.ID = id })
}

func (s *Store) MarkRead(ctx context.Context, userID, id string) error {
	doc, err := s.docs.Get(ctx, CollectionFor(userID), id)
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	var n Notification
	if err := doc.Decode(&n); err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	n.Read = true
	n.ID = ""
	return s.docs.Update(ctx, CollectionFor(userID), id, n)
}
