package errors

import "fmt"

// InstallFailure indicates that a tool could not be acquired. The descriptor
// that needs it stays registered but unusable until the tool shows up.
type InstallFailure struct {
	Tool string
	Err  error
}

// Error is an implementation of the error interface.
func (e *InstallFailure) Error() string {
	return fmt.Sprintf("installing tool %q: %v", e.Tool, e.Err)
}

// Unwrap returns the underlying installer error.
func (e *InstallFailure) Unwrap() error {
	return e.Err
}

// SpawnFailure indicates that a server process could not be started. Scoped to
// the affected session; never fatal to the daemon.
type SpawnFailure struct {
	DescriptorID string
	Err          error
}

// Error is an implementation of the error interface.
func (e *SpawnFailure) Error() string {
	return fmt.Sprintf("starting server %q: %v", e.DescriptorID, e.Err)
}

// Unwrap returns the underlying spawn error.
func (e *SpawnFailure) Unwrap() error {
	return e.Err
}
