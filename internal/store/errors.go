package store

import "errors"

// Sentinel errors returned by store implementations. Callers match with
// errors.Is; the gateway maps them onto wire error codes.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
