package postgres

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/uuid"

	"selfeval/internal/platform/db"
	"selfeval/internal/platform/docstore"
)

type row struct {
	Title    string `json:"title"`
	Category string `json:"category"`
}

func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	_, file, _, _ := runtime.Caller(0)
	migrations := filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "migrations")
	if err := db.Migrate(ctx, pool, migrations); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(pool)
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	collection := docstore.Path("test", uuid.NewString())

	first, err := store.Insert(ctx, collection, row{Title: "b", Category: "x"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, collection, row{Title: "a", Category: "x"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, collection, row{Title: "c", Category: "y"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	docs, err := store.Find(ctx, collection, docstore.Filter{"category": "x"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	rows, err := docstore.DecodeAll[row](docs, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 || rows[0].Title != "b" || rows[1].Title != "a" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if err := store.Update(ctx, collection, first, row{Title: "bb", Category: "x"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	doc, err := store.Get(ctx, collection, first)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	var got row
	if err := doc.Decode(&got); err != nil || got.Title != "bb" {
		t.Fatalf("unexpected updated row %+v err=%v", got, err)
	}

	if err := store.Delete(ctx, collection, first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, collection, first); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
