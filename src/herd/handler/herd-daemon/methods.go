package herddaemon

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// Initialize answers the editor's handshake with the methods and commands
// this daemon serves.
func (r *jsonRPCRouter) Initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	if _, err := mapper.RequestToInitializeParams(req); err != nil {
		return reply(ctx, nil, err)
	}

	result := &protocol.InitializeResult{
		ServerInfo: &protocol.ServerInfo{
			Name: "herd-daemon",
		},
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
			},
			ExecuteCommandProvider: &protocol.ExecuteCommandOptions{
				Commands: []string{
					CommandInvoke,
					CommandBoundFeatures,
					CommandDiagnosticsPreferences,
				},
			},
		},
	}
	return reply(ctx, result, nil)
}

func (r *jsonRPCRouter) Initialized(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	return reply(ctx, nil, nil)
}

func (r *jsonRPCRouter) Shutdown(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	return reply(ctx, nil, nil)
}

// Exit acknowledges the notification; the connection teardown happens when
// the editor closes its end.
func (r *jsonRPCRouter) Exit(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	return reply(ctx, nil, nil)
}

// DidOpen forwards the document to the dispatcher, keyed by the language
// identifier the editor supplied.
func (r *jsonRPCRouter) DidOpen(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToDidOpenTextDocumentParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	err = r.dispatcher.DocumentOpened(ctx, params.TextDocument.URI, string(params.TextDocument.LanguageID))
	return reply(ctx, nil, err)
}

func (r *jsonRPCRouter) DidClose(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToDidCloseTextDocumentParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	err = r.dispatcher.DocumentClosed(ctx, params.TextDocument.URI)
	return reply(ctx, nil, err)
}

// ExecuteCommand dispatches the daemon's own command set.
func (r *jsonRPCRouter) ExecuteCommand(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToExecuteCommandParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	switch params.Command {
	case CommandInvoke:
		return r.executeInvoke(ctx, reply, params.Arguments)
	case CommandBoundFeatures:
		return r.executeBoundFeatures(ctx, reply, params.Arguments)
	case CommandDiagnosticsPreferences:
		return reply(ctx, r.diagnostics.Preferences(), nil)
	default:
		r.stats.Counter("unknown_commands").Inc(1)
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
}

// InvokeResult reports which sessions accepted a feature invocation.
type InvokeResult struct {
	Invoked []uuid.UUID `json:"invoked"`
}

func (r *jsonRPCRouter) executeInvoke(ctx context.Context, reply jsonrpc2.Replier, args []interface{}) error {
	if len(args) == 0 {
		return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
	}
	invokeArgs, err := mapper.CommandArgumentToInvokeArgs(args[0])
	if err != nil {
		return reply(ctx, nil, err)
	}

	sessions, err := r.sessions.GetFromDocument(ctx, invokeArgs.Document)
	if err != nil {
		return reply(ctx, nil, err)
	}

	result := InvokeResult{Invoked: make([]uuid.UUID, 0, len(sessions))}
	for _, s := range sessions {
		ok, err := r.binder.Invoke(ctx, s.UUID, invokeArgs.Feature)
		if err != nil {
			return reply(ctx, nil, err)
		}
		if ok {
			result.Invoked = append(result.Invoked, s.UUID)
		}
	}
	return reply(ctx, result, nil)
}

// BoundFeaturesResult lists the bound features per session of a document.
type BoundFeaturesResult struct {
	Sessions map[uuid.UUID][]entity.Feature `json:"sessions"`
}

func (r *jsonRPCRouter) executeBoundFeatures(ctx context.Context, reply jsonrpc2.Replier, args []interface{}) error {
	if len(args) == 0 {
		return reply(ctx, nil, jsonrpc2.ErrInvalidParams)
	}
	docArgs, err := mapper.CommandArgumentToDocumentArgs(args[0])
	if err != nil {
		return reply(ctx, nil, err)
	}

	sessions, err := r.sessions.GetFromDocument(ctx, docArgs.Document)
	if err != nil {
		return reply(ctx, nil, err)
	}

	result := BoundFeaturesResult{Sessions: make(map[uuid.UUID][]entity.Feature, len(sessions))}
	for _, s := range sessions {
		result.Sessions[s.UUID] = r.binder.Bound(ctx, s.UUID)
	}
	return reply(ctx, result, nil)
}
