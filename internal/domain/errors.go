package domain

import "errors"

// Sentinel errors. Handlers map these onto HTTP status codes; callers
// check them with errors.Is. AlreadySettled is distinct from NotFound so
// a client can tell a stale retry from a bad identifier.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySettled   = errors.New("position not found or already withdrawn")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStrategyInactive = errors.New("strategy not found or inactive")
	ErrVersionConflict  = errors.New("position modified concurrently")
	ErrLockHeld         = errors.New("lock already held")
	ErrUnauthorized     = errors.New("unauthorized")
)
