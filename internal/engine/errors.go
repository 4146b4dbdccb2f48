package engine

import (
	"errors"
	"fmt"

	"github.com/trly/quadlet-sync/internal/connection"
)

// ErrNoIDs is returned when an operation needs at least one quadlet id.
var ErrNoIDs = errors.New("no quadlet ids given")

// IntegrityError reports a systemctl response that does not line up with the
// units that were asked about.
type IntegrityError struct {
	Connection connection.ID
	Expected   int // Number of units queried
	Got        int // Number of status lines returned
}

// Error implements the error interface.
func (e *IntegrityError) Error() string {
	return fmt.Sprintf("status refresh for %s: expected %d states, got %d", e.Connection, e.Expected, e.Got)
}

// IsIntegrityError checks if an error is, or wraps, an IntegrityError.
func IsIntegrityError(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}

// NotFoundError represents a connection or quadlet missing from the snapshot.
type NotFoundError struct {
	Connection connection.ID
	QuadletID  string // Empty when the connection itself is unknown
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.QuadletID == "" {
		return fmt.Sprintf("connection %s not found", e.Connection)
	}
	return fmt.Sprintf("quadlet %s not found on %s", e.QuadletID, e.Connection)
}

// IsNotFoundError checks if an error is, or wraps, a NotFoundError.
func IsNotFoundError(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// UnsafePathError is returned when a resolved file path is not allowed to be read.
type UnsafePathError struct {
	Path   string
	Reason string
}

// Error implements the error interface.
func (e *UnsafePathError) Error() string {
	return fmt.Sprintf("refusing %s: %s", e.Path, e.Reason)
}

// InvalidDestinationError is returned when a write target has no usable file name.
type InvalidDestinationError struct {
	Name   string
	Reason string
}

// Error implements the error interface.
func (e *InvalidDestinationError) Error() string {
	return fmt.Sprintf("invalid destination %q: %s", e.Name, e.Reason)
}
