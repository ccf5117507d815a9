package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
// Implementing this interface enables extensible error handling.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors - use with errors.Is().
var (
	// ErrNotFound: the target entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInactive: the target entity exists but was soft-deleted.
	ErrInactive = errors.New("entity has been trashed")
	// ErrPermissionDenied: authorization failure; surfaced, never retried.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrNotAFolder: the target of a move/copy is not a group entity.
	ErrNotAFolder = errors.New("not a folder")
	// ErrNameConflict: an active sibling with the same title/type/mime exists.
	ErrNameConflict = errors.New("name already exists")
	// ErrSelfContainment: a move/copy destination is inside the source's subtree.
	ErrSelfContainment = errors.New("cannot place an entity inside its own subtree")
	// ErrAlreadyExists: destination storage key unexpectedly occupied.
	ErrAlreadyExists = errors.New("already exists")
	// ErrParentDeleted: an ancestor of the target was soft-deleted.
	ErrParentDeleted = errors.New("parent folder has been deleted")
	// ErrIsADirectory: a folder was found where a file was expected.
	ErrIsADirectory = errors.New("entity is a folder")
	// ErrValidation: invalid input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized: authentication failure.
	ErrUnauthorized = errors.New("unauthorized")
)

// statusCodes maps the sentinel taxonomy onto HTTP statuses for the
// transport layer. Anything unmapped is an internal error.
var statusCodes = map[error]int{
	ErrNotFound:         http.StatusNotFound,
	ErrInactive:         http.StatusGone,
	ErrPermissionDenied: http.StatusForbidden,
	ErrNotAFolder:       http.StatusBadRequest,
	ErrNameConflict:     http.StatusConflict,
	ErrSelfContainment:  http.StatusBadRequest,
	ErrAlreadyExists:    http.StatusConflict,
	ErrParentDeleted:    http.StatusGone,
	ErrIsADirectory:     http.StatusBadRequest,
	ErrValidation:       http.StatusBadRequest,
	ErrUnauthorized:     http.StatusUnauthorized,
}

// StatusCode returns the HTTP status for err, preferring an HTTPError
// implementation over the sentinel mapping.
func StatusCode(err error) int {
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode()
	}
	for sentinel, code := range statusCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}
	return http.StatusInternalServerError
}

// NameConflictError carries the deterministic alternate title computed
// for a rejected rename/copy. The caller decides whether to retry with
// the suggestion.
type NameConflictError struct {
	Title      string // the title that collided
	Suggestion string // a title free of collisions at computation time
	IsGroup    bool
}

// Error implements the error interface.
func (e *NameConflictError) Error() string {
	kind := "file"
	if e.IsGroup {
		kind = "folder"
	}
	return fmt.Sprintf("%s %q already exists, try %q", kind, e.Title, e.Suggestion)
}

// Is allows errors.Is() to match against ErrNameConflict.
func (e *NameConflictError) Is(target error) bool {
	return target == ErrNameConflict
}

// StatusCode implements the HTTPError interface.
func (e *NameConflictError) StatusCode() int {
	return http.StatusConflict
}
