package users

import "context"

type StoreAPI interface {
	FindByEmail(ctx context.Context, email string) (Profile, string, error)
	Create(ctx context.Context, p Profile) error
	Update(ctx context.Context, id string, p Profile) error
	List(ctx context.Context) ([]Profile, error)
}
