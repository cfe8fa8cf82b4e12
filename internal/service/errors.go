package service

import (
	"errors"

	"lookaway/internal/repository"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoActiveSession  = errors.New("no active session")

	// ErrStoreUnavailable is returned, wrapped, whenever persistence fails.
	ErrStoreUnavailable = repository.ErrStoreUnavailable
)
