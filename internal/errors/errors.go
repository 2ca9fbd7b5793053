// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrSnapshotNotFound is returned by a snapshot store when the requested file or object does not exist.
var ErrSnapshotNotFound = errors.New("snapshot file not found")

// ErrInvalidRepoFormat is returned when a repository string in the config is not in 'owner/name' format.
type ErrInvalidRepoFormat struct {
	Repo string
}

func (e *ErrInvalidRepoFormat) Error() string {
	return fmt.Sprintf("invalid repository format: %q, expected 'owner/name'", e.Repo)
}

// ErrInvalidTrackedPackage is returned when a tracked package entry cannot be parsed.
type ErrInvalidTrackedPackage struct {
	Entry string
}

func (e *ErrInvalidTrackedPackage) Error() string {
	return fmt.Sprintf("invalid tracked package: %q, expected 'name' or 'name@version'", e.Entry)
}
