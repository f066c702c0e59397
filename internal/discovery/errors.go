package discovery

import (
	"errors"
	"fmt"
)

var (
	// ErrRootNotFound indicates the discovery root does not exist or is not a directory.
	ErrRootNotFound = errors.New("test root not found")
	// ErrNoCases indicates discovery succeeded but matched no cases.
	ErrNoCases = errors.New("no test cases discovered")
)

// DiscoveryError reports a malformed case file. It aborts the whole run.
type DiscoveryError struct {
	Path    string // Path of the offending source file
	Message string
	Err     error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}
