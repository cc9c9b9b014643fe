package responses

import "errors"

var (
	ErrNotFound        = errors.New("response not found")
	ErrEditForbidden   = errors.New("approved responses cannot be edited")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrInvalidArticles = errors.New("invalid articles")
)
