package entity

import (
	"context"

	"go.lsp.dev/protocol"
)

// ServerConn is a live connection to one running language server process.
// Implementations live in the langserver gateway.
type ServerConn interface {
	// Initialize performs the capability negotiation request.
	Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error)
	// Initialized acknowledges a completed negotiation.
	Initialized(ctx context.Context) error
	// Shutdown asks the server to prepare for exit.
	Shutdown(ctx context.Context) error
	// Exit tells the server to exit and releases the connection.
	Exit() error
	// Done is closed once the server process has exited, for any reason.
	Done() <-chan struct{}
	// Err reports why the process exited, once Done is closed.
	Err() error
}

// ServerProcess pairs a running server connection with the key that sessions
// use to share it.
type ServerProcess struct {
	Key  ProcessKey
	Conn ServerConn
}
