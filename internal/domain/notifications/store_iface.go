package notifications

import "context"

type StoreAPI interface {
	Create(ctx context.Context, userID string, n Notification) (string, error)
	List(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
}
