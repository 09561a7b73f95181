package storage

import (
	"errors"
	"fmt"

	"token-intel/internal/domain"
)

// Storage errors. ErrNotFound and ErrInvalidInput wrap the domain taxonomy so
// callers can test them with errors.Is against domain sentinels.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = fmt.Errorf("record %w", domain.ErrNotFound)

	// ErrDuplicateKey is returned when inserting a record whose key already exists.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = fmt.Errorf("invalid input: %w", domain.ErrValidation)
)
