package errors

import (
	stderr "errors"
	"fmt"

	"github.com/gofrs/uuid"
	"go.lsp.dev/uri"
)

// UUIDNotFoundError is a service domain error for not found.
type UUIDNotFoundError struct {
	UUID uuid.UUID
}

// Error is an implementation of the error interface.
func (n *UUIDNotFoundError) Error() string {
	return fmt.Sprintf("UUID %q not found", n.UUID)
}

// NotFoundUUID returns an UUID and true if UUIDNotFoundError is part of the
// error chain.
func NotFoundUUID(e error) (_ uuid.UUID, ok bool) {
	var nf *UUIDNotFoundError
	if !stderr.As(e, &nf) {
		return uuid.Nil, false
	}
	return nf.UUID, true
}

// NoSessionFoundError indicates that a session cannot be found within the context.
type NoSessionFoundError struct{}

// Error is an implementation of the error interface.
func (n *NoSessionFoundError) Error() string {
	return "no session found in context"
}

// DocumentNotAttachedError indicates that no session exists for a document.
type DocumentNotAttachedError struct {
	Document uri.URI
}

// Error is an implementation of the error interface.
func (n *DocumentNotAttachedError) Error() string {
	return fmt.Sprintf("document %q has no attached session", n.Document)
}

// ProcessNotFoundError indicates that no running server process exists for a
// descriptor and root pairing.
type ProcessNotFoundError struct {
	DescriptorID string
	Root         string
}

// Error is an implementation of the error interface.
func (n *ProcessNotFoundError) Error() string {
	return fmt.Sprintf("no running process for server %q at root %q", n.DescriptorID, n.Root)
}
