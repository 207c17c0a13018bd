package person

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by a Store when a document id does not exist.
var ErrNotFound = errors.New("person not found")

// NoMatchMessage is shown to callers when a match query selects nothing.
const NoMatchMessage = "No persons matched the query."

// ValidationError reports malformed caller input. It is raised before any store call.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// BackendError wraps a failure reported by the underlying store.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: backend: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsValidation reports whether err is or wraps a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsBackend reports whether err is or wraps a *BackendError.
func IsBackend(err error) bool {
	var b *BackendError
	return errors.As(err, &b)
}

// Failure is a single document write that failed inside a batch.
type Failure struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("document %s: %v", f.ID, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// BatchResult aggregates the outcome of a match-then-write operation.
// Failures are kept in match order.
type BatchResult struct {
	Matched  int       `json:"matched"`
	Applied  int       `json:"applied"`
	Failures []Failure `json:"-"`
}

// NoMatch reports whether the match query selected nothing.
func (r BatchResult) NoMatch() bool { return r.Matched == 0 }

// Err joins the per-document failures, or returns nil when every write succeeded.
func (r BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}
