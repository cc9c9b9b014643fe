package responses

import (
	"context"

	"selfeval/internal/platform/docstore"
)

type StoreAPI interface {
	List(ctx context.Context, userID string, filter docstore.Filter) ([]Response, error)
	FindByQuestion(ctx context.Context, userID, questionID string) (Response, bool, error)
	Get(ctx context.Context, userID, responseID string) (Response, error)
	Create(ctx context.Context, userID string, r Response) (string, error)
	Update(ctx context.Context, userID string, r Response) error
	Delete(ctx context.Context, userID, responseID string) error
}

// UserLister enumerates the users whose responses a reviewer may browse.
type UserLister interface {
	Emails(ctx context.Context) ([]string, error)
}
