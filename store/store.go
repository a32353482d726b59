// Package store defines the remote configuration store an editing session
// loads from and saves to, together with the errors it reports.
package store

import (
	"context"
	"fmt"

	"github.com/brunoga/confedit/model"
)

var (
	// ErrConflict is matched by errors reporting that the expected version
	// token no longer matches the remote version.
	ErrConflict = fmt.Errorf("version conflict")
	// ErrNotFound is returned when a document or version does not exist.
	ErrNotFound = fmt.Errorf("not found")
)

// SaveResult is the outcome of a successful save.
type SaveResult struct {
	// Version is the token of the newly stored version.
	Version string
	// Warnings are advisory findings about the stored document.
	Warnings []model.Warning
}

// Store is an optimistic concurrency store of configuration documents.
type Store interface {
	// Load returns the given version of a document. An empty version
	// selects the current one.
	Load(ctx context.Context, id, version string) (*model.Snapshot, error)
	// Save stores doc and files as the new current version provided the
	// current version is still expected. A mismatch is reported as an
	// error matching ErrConflict.
	Save(ctx context.Context, id string, doc *model.Document, files []model.File, expected string) (SaveResult, error)
	// Validate checks doc without storing it.
	Validate(ctx context.Context, doc *model.Document) ([]model.ValidationIssue, error)
}

// ConflictError reports a failed expected-version check.
type ConflictError struct {
	ID       string
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("document %s: expected version %q, current version is %q", e.ID, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrConflict) true for every ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// TransportError wraps a failure to reach or talk to the remote store.
// Operations failing with it leave local state untouched.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
