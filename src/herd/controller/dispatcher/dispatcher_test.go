package dispatcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lspherd/lspherd/src/herd/controller/binder"
	"github.com/lspherd/lspherd/src/herd/controller/installer/installermock"
	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/gateway/langserver/langservermock"
	"github.com/lspherd/lspherd/src/herd/internal/clock"
	"github.com/lspherd/lspherd/src/herd/internal/rootdir/rootdirmock"
	"github.com/lspherd/lspherd/src/herd/repository/process"
	"github.com/lspherd/lspherd/src/herd/repository/registry"
	"github.com/lspherd/lspherd/src/herd/repository/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx/fxtest"
	"go.uber.org/goleak"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

const _testRoot = "/workspace/project"

const _testConfig = `
servers:
  - id: gopls
    command: ["gopls", "serve"]
    filetypes: [go]
    rootMarkers: ["go.mod"]
  - id: overridden
    command: ["overridden", "--stdio"]
    filetypes: [toml]
    capabilityOverrides:
      rename: false
      inlay-hint: true

dispatcher:
  negotiationTimeout: 5s
`

type testEnv struct {
	ctrl       Controller
	gateway    *langservermock.MockGateway
	installer  *installermock.MockController
	resolver   *rootdirmock.MockResolver
	sessions   session.Repository
	processes  process.Repository
	binder     binder.Controller
	scope      tally.TestScope
	gomockCtrl *gomock.Controller
}

func newTestEnv(t *testing.T, yaml string) *testEnv {
	t.Helper()
	gomockCtrl := gomock.NewController(t)

	provider, err := config.NewYAML(config.Source(strings.NewReader(yaml)))
	require.NoError(t, err)

	reg, err := registry.New(registry.Params{Config: provider})
	require.NoError(t, err)

	scope := tally.NewTestScope("testing", make(map[string]string, 0))
	env := &testEnv{
		gateway:   langservermock.NewMockGateway(gomockCtrl),
		installer: installermock.NewMockController(gomockCtrl),
		resolver:  rootdirmock.NewMockResolver(gomockCtrl),
		sessions:  session.New(scope),
		processes: process.New(scope),
		binder: binder.New(binder.Params{
			Logger: zap.NewNop().Sugar(),
			Stats:  scope,
		}),
		scope:      scope,
		gomockCtrl: gomockCtrl,
	}

	lc := fxtest.NewLifecycle(t)
	env.ctrl, err = New(Params{
		Registry:  reg,
		Sessions:  env.sessions,
		Processes: env.processes,
		Gateway:   env.gateway,
		Installer: env.installer,
		Binder:    env.binder,
		Resolver:  env.resolver,
		Clock:     clock.New(),
		Logger:    zap.NewNop().Sugar(),
		Stats:     scope,
		Config:    provider,
		Lifecycle: lc,
	})
	require.NoError(t, err)

	lc.RequireStart()
	t.Cleanup(func() { lc.RequireStop() })
	return env
}

func (e *testEnv) counter(name string) int64 {
	for _, c := range e.scope.Snapshot().Counters() {
		if c.Name() == "testing."+name {
			return c.Value()
		}
	}
	return 0
}

// newServerConn returns a mock connection whose Done channel the test
// controls. The returned close function releases the exit watcher goroutine
// and is registered as a cleanup.
func newServerConn(t *testing.T, gomockCtrl *gomock.Controller) (*langservermock.MockServerConn, func()) {
	t.Helper()
	conn := langservermock.NewMockServerConn(gomockCtrl)
	done := make(chan struct{})
	conn.EXPECT().Done().Return((<-chan struct{})(done)).AnyTimes()

	var closed bool
	closeDone := func() {
		if !closed {
			closed = true
			close(done)
		}
	}
	t.Cleanup(closeDone)
	return conn, closeDone
}

func activeCapabilities() *protocol.InitializeResult {
	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			RenameProvider:     true,
			DefinitionProvider: true,
		},
	}
}

func TestActivationSharesProcessPerRoot(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	env.installer.EXPECT().Available("gopls").Return(true).AnyTimes()
	env.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), []string{"go.mod"}).Return(_testRoot, nil).Times(2)

	conn, _ := newServerConn(t, env.gomockCtrl)
	conn.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(activeCapabilities(), nil).Times(2)
	conn.EXPECT().Initialized(gomock.Any()).Return(nil).Times(2)

	// Two documents under one root share one spawn.
	env.gateway.EXPECT().Start(gomock.Any(), gomock.Any(), _testRoot, gomock.Any()).Return(conn, nil).Times(1)

	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/a.go"), "go"))
	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/b.go"), "go"))

	assert.Eventually(t, func() bool {
		sessions, _ := env.sessions.GetAllFromRoot(ctx, "gopls", _testRoot)
		if len(sessions) != 2 {
			return false
		}
		for _, s := range sessions {
			if s.State != entity.StateActive {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	count, err := env.processes.ProcessCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, int64(1), env.counter("dispatcher.process_spawns"))
	assert.Equal(t, int64(1), env.counter("dispatcher.process_reuses"))

	// Bound features reflect the negotiated subset.
	sessions, _ := env.sessions.GetAllFromRoot(ctx, "gopls", _testRoot)
	for _, s := range sessions {
		bound := env.binder.Bound(ctx, s.UUID)
		assert.ElementsMatch(t, []entity.Feature{entity.FeatureRename, entity.FeatureDefinition}, bound)
	}
}

func TestCloseStopsServerAfterLastSession(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	env.installer.EXPECT().Available("gopls").Return(true).AnyTimes()
	env.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(_testRoot, nil).Times(2)

	conn, _ := newServerConn(t, env.gomockCtrl)
	conn.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(activeCapabilities(), nil).Times(2)
	conn.EXPECT().Initialized(gomock.Any()).Return(nil).Times(2)
	env.gateway.EXPECT().Start(gomock.Any(), gomock.Any(), _testRoot, gomock.Any()).Return(conn, nil)

	docA := uri.File("/workspace/project/a.go")
	docB := uri.File("/workspace/project/b.go")
	require.NoError(t, env.ctrl.DocumentOpened(ctx, docA, "go"))
	require.NoError(t, env.ctrl.DocumentOpened(ctx, docB, "go"))

	assert.Eventually(t, func() bool {
		sessions, _ := env.sessions.GetAllFromRoot(ctx, "gopls", _testRoot)
		return len(sessions) == 2 && sessions[0].State == entity.StateActive && sessions[1].State == entity.StateActive
	}, 2*time.Second, 10*time.Millisecond)

	// Closing the first document keeps the shared process alive.
	require.NoError(t, env.ctrl.DocumentClosed(ctx, docA))
	assert.Eventually(t, func() bool {
		sessions, _ := env.sessions.GetAllFromRoot(ctx, "gopls", _testRoot)
		return len(sessions) == 1
	}, 2*time.Second, 10*time.Millisecond)

	count, _ := env.processes.ProcessCount(ctx)
	assert.Equal(t, 1, count)

	// The last close shuts the server down.
	conn.EXPECT().Shutdown(gomock.Any()).Return(nil)
	conn.EXPECT().Exit().Return(nil)
	require.NoError(t, env.ctrl.DocumentClosed(ctx, docB))

	assert.Eventually(t, func() bool {
		count, _ := env.processes.ProcessCount(ctx)
		return count == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnavailableToolSkipsActivation(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	env.installer.EXPECT().Available("gopls").Return(false)

	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/a.go"), "go"))

	assert.Eventually(t, func() bool {
		return env.counter("dispatcher.skipped_unavailable") == 1
	}, 2*time.Second, 10*time.Millisecond)

	count, err := env.sessions.SessionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUnknownFiletypeIsIgnored(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	// No descriptor, no installer query, no spawn.
	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/notes.txt"), "text"))

	time.Sleep(50 * time.Millisecond)
	count, err := env.sessions.SessionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStaleNegotiationResponseDiscarded(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	env.installer.EXPECT().Available("gopls").Return(true)
	env.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(_testRoot, nil)

	started := make(chan struct{})
	release := make(chan struct{})

	conn, _ := newServerConn(t, env.gomockCtrl)
	conn.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
			close(started)
			<-release
			return activeCapabilities(), nil
		})
	env.gateway.EXPECT().Start(gomock.Any(), gomock.Any(), _testRoot, gomock.Any()).Return(conn, nil)
	conn.EXPECT().Shutdown(gomock.Any()).Return(nil)
	conn.EXPECT().Exit().Return(nil)

	doc := uri.File("/workspace/project/a.go")
	require.NoError(t, env.ctrl.DocumentOpened(ctx, doc, "go"))

	// Close the document while the initialize request is still in flight.
	<-started
	require.NoError(t, env.ctrl.DocumentClosed(ctx, doc))

	assert.Eventually(t, func() bool {
		count, _ := env.sessions.SessionCount(ctx)
		return count == 0
	}, 2*time.Second, 10*time.Millisecond)

	// The response lands after detach and is dropped, not applied.
	close(release)
	assert.Eventually(t, func() bool {
		return env.counter("dispatcher.stale_responses") == 1
	}, 2*time.Second, 10*time.Millisecond)

	count, _ := env.sessions.SessionCount(ctx)
	assert.Equal(t, 0, count)
}

func TestNegotiationTimeoutDetaches(t *testing.T) {
	env := newTestEnv(t, strings.Replace(_testConfig, "5s", "30ms", 1))
	ctx := context.Background()

	env.installer.EXPECT().Available("gopls").Return(true)
	env.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(_testRoot, nil)

	conn, _ := newServerConn(t, env.gomockCtrl)
	conn.EXPECT().Initialize(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	env.gateway.EXPECT().Start(gomock.Any(), gomock.Any(), _testRoot, gomock.Any()).Return(conn, nil)
	conn.EXPECT().Shutdown(gomock.Any()).Return(nil)
	conn.EXPECT().Exit().Return(nil)

	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/a.go"), "go"))

	assert.Eventually(t, func() bool {
		count, _ := env.sessions.SessionCount(ctx)
		return count == 0 && env.counter("dispatcher.negotiation_failures") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServerExitDetachesSessions(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	env.installer.EXPECT().Available("gopls").Return(true).AnyTimes()
	env.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(_testRoot, nil).Times(2)

	conn, closeDone := newServerConn(t, env.gomockCtrl)
	conn.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(activeCapabilities(), nil).Times(2)
	conn.EXPECT().Initialized(gomock.Any()).Return(nil).Times(2)
	conn.EXPECT().Err().Return(errors.New("signal: killed")).AnyTimes()
	env.gateway.EXPECT().Start(gomock.Any(), gomock.Any(), _testRoot, gomock.Any()).Return(conn, nil)

	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/a.go"), "go"))
	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/b.go"), "go"))

	assert.Eventually(t, func() bool {
		sessions, _ := env.sessions.GetAllFromRoot(ctx, "gopls", _testRoot)
		return len(sessions) == 2 && sessions[0].State == entity.StateActive && sessions[1].State == entity.StateActive
	}, 2*time.Second, 10*time.Millisecond)

	// The server crashes. Every session on it detaches, nothing restarts.
	closeDone()

	assert.Eventually(t, func() bool {
		sessionCount, _ := env.sessions.SessionCount(ctx)
		processCount, _ := env.processes.ProcessCount(ctx)
		return sessionCount == 0 && processCount == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), env.counter("dispatcher.process_exits"))
}

func TestSpawnFailureDetaches(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	env.installer.EXPECT().Available("gopls").Return(true)
	env.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(_testRoot, nil)
	env.gateway.EXPECT().Start(gomock.Any(), gomock.Any(), _testRoot, gomock.Any()).Return(nil, errors.New("executable not found"))

	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/a.go"), "go"))

	assert.Eventually(t, func() bool {
		return env.counter("dispatcher.spawn_failures") == 1
	}, 2*time.Second, 10*time.Millisecond)

	count, _ := env.sessions.SessionCount(ctx)
	assert.Equal(t, 0, count)
}

func TestCapabilityOverridesApplied(t *testing.T) {
	env := newTestEnv(t, _testConfig)
	ctx := context.Background()

	env.installer.EXPECT().Available("overridden").Return(true)
	env.resolver.EXPECT().Resolve(gomock.Any(), gomock.Any(), gomock.Any()).Return(_testRoot, nil)

	conn, _ := newServerConn(t, env.gomockCtrl)
	conn.EXPECT().Initialize(gomock.Any(), gomock.Any()).Return(activeCapabilities(), nil)
	conn.EXPECT().Initialized(gomock.Any()).Return(nil)
	env.gateway.EXPECT().Start(gomock.Any(), gomock.Any(), _testRoot, gomock.Any()).Return(conn, nil)

	require.NoError(t, env.ctrl.DocumentOpened(ctx, uri.File("/workspace/project/Cargo.toml"), "toml"))

	assert.Eventually(t, func() bool {
		sessions, _ := env.sessions.GetAllFromRoot(ctx, "overridden", _testRoot)
		return len(sessions) == 1 && sessions[0].State == entity.StateActive
	}, 2*time.Second, 10*time.Millisecond)

	sessions, _ := env.sessions.GetAllFromRoot(ctx, "overridden", _testRoot)
	bound := env.binder.Bound(ctx, sessions[0].UUID)
	// rename is forced off, inlay-hint forced on, definition negotiated.
	assert.ElementsMatch(t, []entity.Feature{entity.FeatureDefinition, entity.FeatureInlayHint}, bound)
}

func TestInvalidTimeoutRejected(t *testing.T) {
	gomockCtrl := gomock.NewController(t)
	provider, err := config.NewYAML(config.Source(strings.NewReader(`
servers:
  - id: gopls
    filetypes: [go]
dispatcher:
  negotiationTimeout: not-a-duration
`)))
	require.NoError(t, err)

	reg, err := registry.New(registry.Params{Config: provider})
	require.NoError(t, err)

	scope := tally.NewTestScope("testing", make(map[string]string, 0))
	_, err = New(Params{
		Registry:  reg,
		Sessions:  session.New(scope),
		Processes: process.New(scope),
		Gateway:   langservermock.NewMockGateway(gomockCtrl),
		Installer: installermock.NewMockController(gomockCtrl),
		Binder:    binder.New(binder.Params{Logger: zap.NewNop().Sugar(), Stats: scope}),
		Resolver:  rootdirmock.NewMockResolver(gomockCtrl),
		Clock:     clock.New(),
		Logger:    zap.NewNop().Sugar(),
		Stats:     scope,
		Config:    provider,
		Lifecycle: fxtest.NewLifecycle(t),
	})
	assert.Error(t, err)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
