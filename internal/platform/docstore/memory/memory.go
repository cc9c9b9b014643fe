// Package memory is an in-process docstore backend for tests and local runs.
package memory

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"selfeval/internal/platform/docstore"
)

type entry struct {
	id   string
	body json.RawMessage
}

type Store struct {
	mu          sync.RWMutex
	collections map[string][]entry
	newID       func() string
}

func New() *Store {
	return &Store{
		collections: map[string][]entry{},
		newID:       uuid.NewString,
	}
}

func (s *Store) Insert(_ context.Context, collection string, doc any) (string, error) {
	body, err := docstore.Encode(doc)
	if err != nil {
		return "", err
	}
	id := s.newID()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], entry{id: id, body: body})
	return id, nil
}

func (s *Store) Update(_ context.Context, collection, id string, doc any) error {
	body, err := docstore.Encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.collections[collection]
	for i := range entries {
		if entries[i].id == id {
			entries[i].body = body
			return nil
		}
	}
	return docstore.ErrNotFound
}

func (s *Store) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.collections[collection]
	for i := range entries {
		if entries[i].id == id {
			s.collections[collection] = append(entries[:i:i], entries[i+1:]...)
			return nil
		}
	}
	return docstore.ErrNotFound
}

func (s *Store) Get(_ context.Context, collection, id string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.collections[collection] {
		if e.id == id {
			return docstore.Document{ID: e.id, Body: clone(e.body)}, nil
		}
	}
	return docstore.Document{}, docstore.ErrNotFound
}

func (s *Store) Find(_ context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	want, err := normalize(filter)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []docstore.Document
	for _, e := range s.collections[collection] {
		ok, err := matches(e.body, want)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, docstore.Document{ID: e.id, Body: clone(e.body)})
		}
	}
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

// normalize round-trips filter values through JSON so they compare like stored fields.
func normalize(filter docstore.Filter) (map[string]any, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func matches(body json.RawMessage, want map[string]any) (bool, error) {
	if len(want) == 0 {
		return true, nil
	}
	fields := map[string]any{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return false, err
	}
	for key, value := range want {
		if !reflect.DeepEqual(fields[key], value) {
			return false, nil
		}
	}
	return true, nil
}

func clone(body json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(body))
	copy(out, body)
	return out
}
