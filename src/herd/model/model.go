package model

import (
	"github.com/gofrs/uuid"
	"go.lsp.dev/uri"
)

// DocumentSession is the repository layer model for a document's attachment to
// a language server.
type DocumentSession struct {
	UUID         uuid.UUID
	Document     uri.URI
	Filetype     string
	DescriptorID string
	Root         string
	State        int
	Capabilities map[string]bool
}

// ServerProcess is the repository layer model for one running language server
// process.
type ServerProcess struct {
	DescriptorID string
	Root         string
}
