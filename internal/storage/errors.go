package storage

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth means the remote rejected our credentials.
	ErrAuth = errors.New("remote store rejected credentials")
	// ErrNotFound means the collection file, page or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a write carried a stale blob SHA.
	ErrConflict = errors.New("document was modified concurrently, reload and retry")
	// ErrInvalid means a patch would leave a record that no longer decodes
	// into its model. Nothing is written.
	ErrInvalid = errors.New("record does not match its schema")
	// ErrTransport covers every other network or HTTP failure.
	ErrTransport = errors.New("remote store unavailable")
	// ErrStorage is a local storage or serialization failure. It is logged
	// inside LocalStore and never returned to callers.
	ErrStorage = errors.New("local storage failure")
)

// Error records the operation and path that failed.
type Error struct {
	Op   string
	Path string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, e.Err)
}

// Is matches the sentinel kind, so errors.Is(err, ErrConflict) works.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}
