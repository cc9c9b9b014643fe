// Package mongo maps docstore collection paths onto MongoDB collections.
//
// The last path segment names the physical collection; the full path is
// kept in each document under _path so nested collections stay separate.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"selfeval/internal/platform/docstore"
)

const (
	pathField = "_path"
	seqField  = "_seq"
)

type Store struct {
	client   *mongo.Client
	database *mongo.Database

	mu      sync.Mutex
	lastSeq int64
}

func Connect(ctx context.Context, uri, database string) (*Store, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(50).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client, database: client.Database(database)}, nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc any) (string, error) {
	fields, err := toBSON(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	fields["_id"] = id
	fields[pathField] = collection
	fields[seqField] = s.nextSeq()

	if _, err := s.collection(collection).InsertOne(ctx, fields); err != nil {
		return "", docstore.Unavailable("insert", err)
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, doc any) error {
	fields, err := toBSON(doc)
	if err != nil {
		return err
	}
	col := s.collection(collection)

	var current struct {
		Seq int64 `bson:"_seq"`
	}
	err = col.FindOne(ctx, bson.M{"_id": id, pathField: collection}).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Unavailable("update", err)
	}

	fields[pathField] = collection
	fields[seqField] = current.Seq
	result, err := col.ReplaceOne(ctx, bson.M{"_id": id, pathField: collection}, fields)
	if err != nil {
		return docstore.Unavailable("update", err)
	}
	if result.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	result, err := s.collection(collection).DeleteOne(ctx, bson.M{"_id": id, pathField: collection})
	if err != nil {
		return docstore.Unavailable("delete", err)
	}
	if result.DeletedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	raw, err := s.collection(collection).FindOne(ctx, bson.M{"_id": id, pathField: collection}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return docstore.Document{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Document{}, docstore.Unavailable("get", err)
	}
	return fromBSON(raw)
}

func (s *Store) Find(ctx context.Context, collection string, filter docstore.Filter) ([]docstore.Document, error) {
	query := bson.M{}
	if len(filter) > 0 {
		converted, err := toBSON(filter)
		if err != nil {
			return nil, err
		}
		query = converted
	}
	query[pathField] = collection

	cursor, err := s.collection(collection).Find(ctx, query, options.Find().SetSort(bson.D{{Key: seqField, Value: 1}}))
	if err != nil {
		return nil, docstore.Unavailable("find", err)
	}
	defer cursor.Close(ctx)

	var out []docstore.Document
	for cursor.Next(ctx) {
		doc, err := fromBSON(cursor.Current)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := cursor.Err(); err != nil {
		return nil, docstore.Unavailable("find", err)
	}
	return out, nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, nil); err != nil {
		return docstore.Unavailable("ping", err)
	}
	return nil
}

func (s *Store) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = s.client.Disconnect(ctx)
}

func (s *Store) collection(path string) *mongo.Collection {
	name := path
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		name = path[idx+1:]
	}
	return s.database.Collection(name)
}

// nextSeq is strictly increasing within the process.
func (s *Store) nextSeq() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := time.Now().UnixNano()
	if seq <= s.lastSeq {
		seq = s.lastSeq + 1
	}
	s.lastSeq = seq
	return seq
}

func toBSON(doc any) (bson.M, error) {
	body, err := docstore.Encode(doc)
	if err != nil {
		return nil, err
	}
	fields := bson.M{}
	if err := bson.UnmarshalExtJSON(body, false, &fields); err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	return fields, nil
}

func fromBSON(raw bson.Raw) (docstore.Document, error) {
	var fields bson.D
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return docstore.Document{}, fmt.Errorf("decode mongo document: %w", err)
	}
	var doc docstore.Document
	body := make(bson.D, 0, len(fields))
	for _, field := range fields {
		switch field.Key {
		case "_id":
			doc.ID, _ = field.Value.(string)
		case pathField, seqField:
		default:
			body = append(body, field)
		}
	}
	out, err := bson.MarshalExtJSON(body, false, false)
	if err != nil {
		return docstore.Document{}, fmt.Errorf("encode mongo document: %w", err)
	}
	doc.Body = out
	return doc, nil
}
