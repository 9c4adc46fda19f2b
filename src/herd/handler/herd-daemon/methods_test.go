package herddaemon

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/controller/diagnostics"
	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/factory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/protocol"
	"go.uber.org/mock/gomock"
)

func TestInitialize(t *testing.T) {
	env := newTestRouter(t)

	var result interface{}
	request := factory.JSONRPCRequest(protocol.MethodInitialize, protocol.InitializeParams{})
	err := env.router.Initialize(context.Background(), newCapturingReplier(&result), request)
	require.NoError(t, err)

	initResult, ok := result.(*protocol.InitializeResult)
	require.True(t, ok)
	assert.Equal(t, "herd-daemon", initResult.ServerInfo.Name)
	assert.Equal(t, []string{CommandInvoke, CommandBoundFeatures, CommandDiagnosticsPreferences}, initResult.Capabilities.ExecuteCommandProvider.Commands)

	sync, ok := initResult.Capabilities.TextDocumentSync.(protocol.TextDocumentSyncOptions)
	require.True(t, ok)
	assert.True(t, sync.OpenClose)
}

func TestDidOpenForwards(t *testing.T) {
	env := newTestRouter(t)

	doc := factory.DocumentURI("main.rs")
	env.dispatcher.EXPECT().DocumentOpened(gomock.Any(), doc, "rust").Return(nil)

	request := factory.JSONRPCRequest(protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: doc, LanguageID: "rust"},
	})
	assert.NoError(t, env.router.DidOpen(context.Background(), newMockReplier(), request))
}

func TestDidOpenDispatcherError(t *testing.T) {
	env := newTestRouter(t)

	env.dispatcher.EXPECT().DocumentOpened(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("unavailable"))

	request := factory.JSONRPCRequest(protocol.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{})
	assert.Error(t, env.router.DidOpen(context.Background(), newMockReplier(), request))
}

func TestDidCloseForwards(t *testing.T) {
	env := newTestRouter(t)

	doc := factory.DocumentURI("main.rs")
	env.dispatcher.EXPECT().DocumentClosed(gomock.Any(), doc).Return(nil)

	request := factory.JSONRPCRequest(protocol.MethodTextDocumentDidClose, protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: doc},
	})
	assert.NoError(t, env.router.DidClose(context.Background(), newMockReplier(), request))
}

func TestExecuteCommandInvoke(t *testing.T) {
	ctx := context.Background()
	env := newTestRouter(t)

	doc := factory.DocumentURI("app.ts")
	accepted := factory.DocumentSession("vtsls", doc, "/workspace/project")
	declined := factory.DocumentSession("volar", doc, "/workspace/project")
	require.NoError(t, env.sessions.Set(ctx, accepted))
	require.NoError(t, env.sessions.Set(ctx, declined))

	env.binder.EXPECT().Invoke(gomock.Any(), accepted.UUID, entity.FeatureRename).Return(true, nil)
	env.binder.EXPECT().Invoke(gomock.Any(), declined.UUID, entity.FeatureRename).Return(false, nil)

	var result interface{}
	request := factory.JSONRPCRequest(protocol.MethodWorkspaceExecuteCommand, protocol.ExecuteCommandParams{
		Command: CommandInvoke,
		Arguments: []interface{}{
			map[string]interface{}{"feature": "rename", "uri": string(doc)},
		},
	})
	err := env.router.ExecuteCommand(ctx, newCapturingReplier(&result), request)
	require.NoError(t, err)

	invokeResult, ok := result.(InvokeResult)
	require.True(t, ok)
	assert.Equal(t, []uuid.UUID{accepted.UUID}, invokeResult.Invoked)
}

func TestExecuteCommandInvokeNoSessions(t *testing.T) {
	env := newTestRouter(t)

	var result interface{}
	request := factory.JSONRPCRequest(protocol.MethodWorkspaceExecuteCommand, protocol.ExecuteCommandParams{
		Command: CommandInvoke,
		Arguments: []interface{}{
			map[string]interface{}{"feature": "rename", "uri": string(factory.DocumentURI("orphan.go"))},
		},
	})
	err := env.router.ExecuteCommand(context.Background(), newCapturingReplier(&result), request)
	require.NoError(t, err)

	invokeResult, ok := result.(InvokeResult)
	require.True(t, ok)
	assert.Empty(t, invokeResult.Invoked)
}

func TestExecuteCommandBoundFeatures(t *testing.T) {
	ctx := context.Background()
	env := newTestRouter(t)

	doc := factory.DocumentURI("app.ts")
	s := factory.DocumentSession("vtsls", doc, "/workspace/project")
	require.NoError(t, env.sessions.Set(ctx, s))

	bound := []entity.Feature{entity.FeatureDefinition, entity.FeatureRename}
	env.binder.EXPECT().Bound(gomock.Any(), s.UUID).Return(bound)

	var result interface{}
	request := factory.JSONRPCRequest(protocol.MethodWorkspaceExecuteCommand, protocol.ExecuteCommandParams{
		Command: CommandBoundFeatures,
		Arguments: []interface{}{
			map[string]interface{}{"uri": string(doc)},
		},
	})
	err := env.router.ExecuteCommand(ctx, newCapturingReplier(&result), request)
	require.NoError(t, err)

	boundResult, ok := result.(BoundFeaturesResult)
	require.True(t, ok)
	assert.Equal(t, bound, boundResult.Sessions[s.UUID])
}

func TestExecuteCommandDiagnosticsPreferences(t *testing.T) {
	env := newTestRouter(t)

	prefs := diagnostics.Preferences{BorderStyle: "rounded"}
	env.diagnostics.EXPECT().Preferences().Return(prefs)

	var result interface{}
	request := factory.JSONRPCRequest(protocol.MethodWorkspaceExecuteCommand, protocol.ExecuteCommandParams{
		Command: CommandDiagnosticsPreferences,
	})
	err := env.router.ExecuteCommand(context.Background(), newCapturingReplier(&result), request)
	require.NoError(t, err)
	assert.Equal(t, prefs, result)
}

func TestExecuteCommandUnknown(t *testing.T) {
	env := newTestRouter(t)

	request := factory.JSONRPCRequest(protocol.MethodWorkspaceExecuteCommand, protocol.ExecuteCommandParams{
		Command: "herd.unknown",
	})
	err := env.router.ExecuteCommand(context.Background(), newMockReplier(), request)
	assert.Error(t, err)
}

func TestExecuteCommandMissingArguments(t *testing.T) {
	tests := []string{CommandInvoke, CommandBoundFeatures}

	for _, command := range tests {
		t.Run(command, func(t *testing.T) {
			env := newTestRouter(t)

			request := factory.JSONRPCRequest(protocol.MethodWorkspaceExecuteCommand, protocol.ExecuteCommandParams{
				Command: command,
			})
			err := env.router.ExecuteCommand(context.Background(), newMockReplier(), request)
			assert.Error(t, err)
		})
	}
}
