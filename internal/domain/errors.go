package domain

import "errors"

var (
	// ErrNotFound means the requested entity does not exist locally.
	ErrNotFound = errors.New("not found")

	// ErrInvalidQuery means caller-supplied coordinates or radius failed
	// validation before the proximity filter ran.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUpstream means the remote place-search provider was unusable as a
	// whole. Wrapping errors carry the operation and remote status.
	ErrUpstream = errors.New("upstream failure")
)
