// Package herddaemon implements the daemon's editor-facing JSON-RPC surface.
package herddaemon

import (
	"context"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/controller/binder"
	"github.com/lspherd/lspherd/src/herd/controller/diagnostics"
	"github.com/lspherd/lspherd/src/herd/controller/dispatcher"
	"github.com/lspherd/lspherd/src/herd/internal/jsonrpcfx"
	"github.com/lspherd/lspherd/src/herd/repository/session"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Commands the daemon accepts over workspace/executeCommand.
const (
	// CommandInvoke triggers a bound feature for the sessions of a document.
	CommandInvoke = "herd.invoke"
	// CommandBoundFeatures lists the features bound per session of a document.
	CommandBoundFeatures = "herd.boundFeatures"
	// CommandDiagnosticsPreferences returns the diagnostics display preferences.
	CommandDiagnosticsPreferences = "herd.diagnosticsPreferences"
)

// Handler accepts editor connections and routes their requests.
type Handler interface {
	// Connections returns the manager serving active editor connections.
	Connections() jsonrpcfx.ConnectionManager
}

// Params are inbound parameters to construct the handler.
type Params struct {
	fx.In

	Dispatcher  dispatcher.Controller
	Binder      binder.Controller
	Diagnostics diagnostics.Controller
	Sessions    session.Repository
	JSONRPC     jsonrpcfx.JSONRPCModule
	Logger      *zap.SugaredLogger
	Stats       tally.Scope
}

type handler struct {
	connectionManager jsonrpcfx.ConnectionManager
}

// New constructs a new herd-daemon Handler and registers it to receive
// editor connections.
func New(p Params) (Handler, error) {
	c := jsonRPCConnectionManager{
		dispatcher:  p.Dispatcher,
		binder:      p.Binder,
		diagnostics: p.Diagnostics,
		sessions:    p.Sessions,
		logger:      p.Logger.With("component", "handler"),
		stats:       p.Stats.SubScope("json_rpc"),
	}
	if err := p.JSONRPC.RegisterConnectionManager(&c); err != nil {
		return nil, fmt.Errorf("registering connection manager: %w", err)
	}

	return &handler{connectionManager: &c}, nil
}

func (h *handler) Connections() jsonrpcfx.ConnectionManager {
	return h.connectionManager
}

type jsonRPCConnectionManager struct {
	dispatcher  dispatcher.Controller
	binder      binder.Controller
	diagnostics diagnostics.Controller
	sessions    session.Repository
	logger      *zap.SugaredLogger
	stats       tally.Scope
}

// NewConnection returns a router carrying a fresh UUID for the connection.
func (c *jsonRPCConnectionManager) NewConnection(ctx context.Context, conn *jsonrpc2.Conn) (jsonrpcfx.Router, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("error while creating new connection: %w", err)
	}

	r := jsonRPCRouter{
		dispatcher:  c.dispatcher,
		binder:      c.binder,
		diagnostics: c.diagnostics,
		sessions:    c.sessions,
		logger:      c.logger,
		uuid:        id,
		stats:       c.stats,
	}

	return &r, nil
}

// RemoveConnection cleans up after a closed connection. Document sessions
// outlive editor connections, so there is nothing to tear down here.
func (c *jsonRPCConnectionManager) RemoveConnection(ctx context.Context, id uuid.UUID) {
	c.logger.Debugw("connection removed", "connection", id)
}
