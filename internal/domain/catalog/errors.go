package catalog

import "errors"

var (
	ErrNotFound        = errors.New("question not found")
	ErrInvalidQuestion = errors.New("invalid question")
	ErrNoSeedSource    = errors.New("no seed catalog configured")
)
