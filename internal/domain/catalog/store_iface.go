package catalog

import "context"

type StoreAPI interface {
	ListByCategory(ctx context.Context, category string) ([]Question, error)
	ListAll(ctx context.Context) ([]Question, error)
	Get(ctx context.Context, id string) (Question, error)
	Create(ctx context.Context, q Question) (string, error)
	Update(ctx context.Context, q Question) error
	Delete(ctx context.Context, id string) error
}
