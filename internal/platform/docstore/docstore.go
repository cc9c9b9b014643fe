// Package docstore is the document-database boundary of the service.
//
// Domain stores only see named collections of JSON documents with
// generated ids and equality filters. Backends live in subpackages.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrUnavailable = errors.New("document store unavailable")
)

// Filter matches documents whose top-level fields equal the given values.
// An empty filter matches every document in the collection.
type Filter map[string]any

type Document struct {
	ID   string
	Body json.RawMessage
}

func (d Document) Decode(out any) error {
	if err := json.Unmarshal(d.Body, out); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

type Store interface {
	Insert(ctx context.Context, collection string, doc any) (string, error)
	Update(ctx context.Context, collection, id string, doc any) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (Document, error)
	// Find returns matching documents in insertion order.
	Find(ctx context.Context, collection string, filter Filter) ([]Document, error)
	Ping(ctx context.Context) error
	Close()
}

// Unavailable wraps a backend failure so callers can test for ErrUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// Path joins collection path segments, e.g. Path("users", email, "responses").
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}

// Encode marshals a document body, rejecting anything that is not a JSON object.
func Encode(doc any) (json.RawMessage, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	if len(body) == 0 || body[0] != '{' {
		return nil, fmt.Errorf("encode document: expected a JSON object")
	}
	return body, nil
}

// DecodeAll decodes every document into a new T, keeping store order.
func DecodeAll[T any](docs []Document, setID func(*T, string)) ([]T, error) {
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := doc.Decode(&item); err != nil {
			return nil, err
		}
		if setID != nil {
			setID(&item, doc.ID)
		}
		out = append(out, item)
	}
	return out, nil
}
