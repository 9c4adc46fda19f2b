package herddaemon

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/controller/binder"
	"github.com/lspherd/lspherd/src/herd/controller/diagnostics"
	"github.com/lspherd/lspherd/src/herd/controller/dispatcher"
	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/repository/session"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

type jsonRPCRouter struct {
	dispatcher  dispatcher.Controller
	binder      binder.Controller
	diagnostics diagnostics.Controller
	sessions    session.Repository
	logger      *zap.SugaredLogger
	uuid        uuid.UUID
	stats       tally.Scope
}

// HandleReq handles routing for a single request.
func (r *jsonRPCRouter) HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	ctx = context.WithValue(ctx, entity.SessionContextKey, r.uuid)

	switch req.Method() {
	// Lifecycle related methods.
	case protocol.MethodInitialize:
		return r.Initialize(ctx, reply, req)

	case protocol.MethodInitialized:
		return r.Initialized(ctx, reply, req)

	case protocol.MethodShutdown:
		return r.Shutdown(ctx, reply, req)

	case protocol.MethodExit:
		return r.Exit(ctx, reply, req)

	// Document related methods.
	case protocol.MethodTextDocumentDidOpen:
		return r.DidOpen(ctx, reply, req)

	case protocol.MethodTextDocumentDidClose:
		return r.DidClose(ctx, reply, req)

	// Workspace methods.
	case protocol.MethodWorkspaceExecuteCommand:
		return r.ExecuteCommand(ctx, reply, req)

	default:
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

func (r *jsonRPCRouter) UUID() uuid.UUID {
	return r.uuid
}
