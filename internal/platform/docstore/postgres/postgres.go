// Package postgres stores documents as JSONB rows in a single documents table.
package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"selfeval/internal/platform/docstore"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	body, err := docstore.Encode(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, body)
		VALUES ($1, $2, $3::jsonb)
	`, collection, id, string(body))
	if err != nil {
		return "", docstore.Unavailable("insert", err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, doc any) error {
	body, err := docstore.Encode(doc)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET body = $3::jsonb, updated_at = now()
		WHERE collection = $1 AND id = $2
	`, collection, id, string(body))
	if err != nil {
		return docstore.Unavailable("update", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	tag, err := s.pool.Exec(ctx, "DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return docstore.Unavailable("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, "SELECT body FROM documents WHERE collection = $1 AND id = $2", collection, id).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, docstore.Unavailable("get", err)
	}
	return docstore.Document{ID: id, Body: body}, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	if filter == nil {
		filter = docstore.Filter{}
	}
	containment, err := json.Marshal(filter)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, body FROM documents
		WHERE collection = $1 AND body @> $2::jsonb
		ORDER BY seq
	`, collection, string(containment))
	if err != nil {
		return nil, docstore.Unavailable("find", err)
	}
	defer rows.Close()

	var out []docstore.Document
	for rows.Next() {
		var doc docstore.Document
		var body []byte
		if err := rows.Scan(&doc.ID, &body); err != nil {
			return nil, docstore.Unavailable("find", err)
		}
		doc.Body = body
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, docstore.Unavailable("find", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return docstore.Unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}
