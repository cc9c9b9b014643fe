package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"selfeval/internal/platform/docstore"
)

func TestFromBSONStripsInternalFields(t *testing.T) {
	raw, err := bson.Marshal(bson.D{
		{Key: "_id", Value: "abc"},
		{Key: pathField, Value: "users/a@b.c/responses"},
		{Key: seqField, Value: int64(42)},
		{Key: "questionTitle", Value: "Monografia"},
		{Key: "points", Value: 2.5},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	doc, err := fromBSON(raw)
	if err != nil {
		t.Fatalf("fromBSON: %v", err)
	}
	if doc.ID != "abc" {
		t.Fatalf("expected id abc, got %q", doc.ID)
	}
	var fields map[string]any
	if err := json.Unmarshal(doc.Body, &fields); err != nil {
		t.Fatalf("body is not JSON: %v (%s)", err, doc.Body)
	}
	if _, ok := fields[pathField]; ok {
		t.Fatalf("internal path leaked: %s", doc.Body)
	}
	if fields["questionTitle"] != "Monografia" || fields["points"] != 2.5 {
		t.Fatalf("unexpected body: %s", doc.Body)
	}
}

func TestNextSeqIncreases(t *testing.T) {
	s := &Store{}
	prev := s.nextSeq()
	for i := 0; i < 100; i++ {
		next := s.nextSeq()
		if next <= prev {
			t.Fatalf("sequence not increasing: %d then %d", prev, next)
		}
		prev = next
	}
}

func TestMongoStoreRoundTrip(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	store, err := Connect(ctx, uri, "selfeval_test")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(store.Close)

	type row struct {
		Title string `json:"title"`
		Kind  string `json:"kind"`
	}
	collection := docstore.Path("users", uuid.NewString(), "responses")
	other := docstore.Path("users", uuid.NewString(), "responses")

	id, err := store.Insert(ctx, collection, row{Title: "a", Kind: "x"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, collection, row{Title: "b", Kind: "x"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := store.Insert(ctx, other, row{Title: "c", Kind: "x"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	docs, err := store.Find(ctx, collection, docstore.Filter{"kind": "x"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(docs) != 2 || docs[0].ID != id {
		t.Fatalf("unexpected docs: %+v", docs)
	}

	if err := store.Update(ctx, collection, id, row{Title: "aa", Kind: "x"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.Update(ctx, other, id, row{}); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound across paths, got %v", err)
	}
	if err := store.Delete(ctx, collection, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, collection, id); !errors.Is(err, docstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
