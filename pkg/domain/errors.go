package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable is returned by every storage call after the
	// backing store failed to initialize.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageFailure wraps a failed read or write of a collection.
	ErrStorageFailure = errors.New("storage failure")
	// ErrRecordNotFound marks an update or delete whose target id is absent.
	ErrRecordNotFound = errors.New("record not found")
	// ErrDuplicateUsername is returned when registering a username that
	// already exists, compared case-insensitively.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrPropertyArchived rejects tenant mutations under an archived property.
	ErrPropertyArchived = errors.New("property is archived")
	// ErrTenantArchived rejects payment mutations for an effectively archived tenant.
	ErrTenantArchived = errors.New("tenant is archived")
	// ErrDanglingReference rejects a record that points to an id that does not resolve.
	ErrDanglingReference = errors.New("dangling reference")
	// ErrValidation marks a draft rejected before any storage call.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is returned by login when the username or password does not match.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrNotAuthenticated is returned when an operation requires a logged in user.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrUnknownCollection is returned for collection names outside Collections.
	ErrUnknownCollection = errors.New("unknown collection")
)

// NotFoundError reports a missing record of a given entity type.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// Is lets errors.Is match ErrRecordNotFound.
func (e NotFoundError) Is(target error) bool { return target == ErrRecordNotFound }

// ValidationError lists the fields of a draft that failed validation.
type ValidationError struct {
	Entity EntityType
	Fields map[string]string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Entity, e.Fields)
}

// Is lets errors.Is match ErrValidation.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }
