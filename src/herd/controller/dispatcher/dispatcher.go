// Package dispatcher drives the lifecycle of document sessions: descriptor
// selection on open, server process reuse or spawn, capability negotiation,
// and teardown on close or crash. All transitions run on a single event loop
// goroutine; blocking work (the initialize request) happens off-loop and
// reports back as an event.
package dispatcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/controller/binder"
	"github.com/lspherd/lspherd/src/herd/controller/installer"
	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/gateway/langserver"
	"github.com/lspherd/lspherd/src/herd/internal/clock"
	"github.com/lspherd/lspherd/src/herd/internal/errors"
	"github.com/lspherd/lspherd/src/herd/internal/rootdir"
	"github.com/lspherd/lspherd/src/herd/repository/process"
	"github.com/lspherd/lspherd/src/herd/repository/registry"
	"github.com/lspherd/lspherd/src/herd/repository/session"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_nameKey   = "dispatcher"
	_configKey = "dispatcher"

	_defaultNegotiationTimeout = 15 * time.Second
	_eventBuffer               = 64
)

// Controller accepts document lifecycle events from editor connections.
type Controller interface {
	// DocumentOpened activates the applicable server descriptors for the
	// document. No matching descriptor means nothing happens.
	DocumentOpened(ctx context.Context, document uri.URI, filetype string) error
	// DocumentClosed detaches every session for the document. Closing before
	// negotiation completes discards the eventual response.
	DocumentClosed(ctx context.Context, document uri.URI) error
}

// dispatcherConfig is the "dispatcher" configuration block.
type dispatcherConfig struct {
	// NegotiationTimeout bounds the initialize request, e.g. "15s".
	NegotiationTimeout string `yaml:"negotiationTimeout"`
}

// Params are inbound parameters to construct the controller.
type Params struct {
	fx.In

	Registry  registry.Registry
	Sessions  session.Repository
	Processes process.Repository
	Gateway   langserver.Gateway
	Installer installer.Controller
	Binder    binder.Controller
	Resolver  rootdir.Resolver
	Clock     clock.Clock
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Config    config.Provider
	Lifecycle fx.Lifecycle
}

type controller struct {
	registry  registry.Registry
	sessions  session.Repository
	processes process.Repository
	gateway   langserver.Gateway
	installer installer.Controller
	binder    binder.Controller
	resolver  rootdir.Resolver
	clock     clock.Clock
	logger    *zap.SugaredLogger
	stats     tally.Scope

	negotiationTimeout time.Duration

	events     chan event
	loopCtx    context.Context
	loopCancel context.CancelFunc
	loopDone   chan struct{}
}

// New creates a new dispatcher controller and hooks its event loop into the
// application lifecycle.
func New(p Params) (Controller, error) {
	c := &controller{
		registry:           p.Registry,
		sessions:           p.Sessions,
		processes:          p.Processes,
		gateway:            p.Gateway,
		installer:          p.Installer,
		binder:             p.Binder,
		resolver:           p.Resolver,
		clock:              p.Clock,
		logger:             p.Logger.With("component", _nameKey),
		stats:              p.Stats.SubScope(_nameKey),
		negotiationTimeout: _defaultNegotiationTimeout,
		events:             make(chan event, _eventBuffer),
		loopDone:           make(chan struct{}),
	}
	c.loopCtx, c.loopCancel = context.WithCancel(context.Background())

	var cfg dispatcherConfig
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if cfg.NegotiationTimeout != "" {
		timeout, err := time.ParseDuration(cfg.NegotiationTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing negotiationTimeout: %w", err)
		}
		c.negotiationTimeout = timeout
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: c.start,
		OnStop:  c.stop,
	})

	return c, nil
}

func (c *controller) start(ctx context.Context) error {
	go c.loop()
	return nil
}

func (c *controller) stop(ctx context.Context) error {
	c.loopCancel()
	select {
	case <-c.loopDone:
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

func (c *controller) DocumentOpened(ctx context.Context, document uri.URI, filetype string) error {
	return c.post(documentOpened{Document: document, Filetype: filetype})
}

func (c *controller) DocumentClosed(ctx context.Context, document uri.URI) error {
	return c.post(documentClosed{Document: document})
}

func (c *controller) post(ev event) error {
	select {
	case c.events <- ev:
		return nil
	case <-c.loopCtx.Done():
		return errors.New("dispatcher is not running")
	}
}

func (c *controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case ev := <-c.events:
			c.handle(ev)
		case <-c.loopCtx.Done():
			return
		}
	}
}

func (c *controller) handle(ev event) {
	ctx := c.loopCtx
	switch t := ev.(type) {
	case documentOpened:
		c.handleOpened(ctx, t)
	case documentClosed:
		c.handleClosed(ctx, t)
	case negotiationDone:
		c.handleNegotiated(ctx, t)
	case processExited:
		c.handleExited(ctx, t)
	}
}

// handleOpened activates every descriptor matching the document's filetype.
func (c *controller) handleOpened(ctx context.Context, ev documentOpened) {
	descriptors := c.registry.Lookup(ev.Filetype)
	if len(descriptors) == 0 {
		c.logger.Debugw("no server descriptor for filetype", "filetype", ev.Filetype)
		return
	}

	for _, desc := range descriptors {
		if !c.installer.Available(desc.ToolID()) {
			c.logger.Warnw("server tool unavailable, skipping activation",
				"server", desc.ID, "tool", desc.ToolID())
			c.stats.Counter("skipped_unavailable").Inc(1)
			continue
		}
		c.activate(ctx, ev, desc)
	}
}

// activate attaches the document to one descriptor: resolve the root, reuse
// or spawn the process, then negotiate off-loop.
func (c *controller) activate(ctx context.Context, ev documentOpened, desc *entity.ServerDescriptor) {
	startDir := filepath.Dir(ev.Document.Filename())
	root, err := c.resolver.Resolve(ctx, startDir, desc.RootMarkers)
	if err != nil {
		c.logger.Warnw("root resolution failed", "server", desc.ID, "document", ev.Document, "error", err)
		return
	}

	s := &entity.DocumentSession{
		UUID:         uuid.Must(uuid.NewV4()),
		Document:     ev.Document,
		Filetype:     ev.Filetype,
		DescriptorID: desc.ID,
		Root:         root,
		State:        entity.StateStarting,
	}
	if err := c.sessions.Set(ctx, s); err != nil {
		c.logger.Errorw("storing session", "error", err)
		return
	}

	proc, err := c.acquireProcess(ctx, desc, root)
	if err != nil {
		c.logger.Warnw("server failed to start", "server", desc.ID, "root", root, "error", err)
		c.stats.Counter("spawn_failures").Inc(1)
		c.detach(ctx, s)
		return
	}

	s.State = entity.StateNegotiating
	if err := c.sessions.Set(ctx, s); err != nil {
		c.logger.Errorw("storing session", "error", err)
		return
	}

	go c.negotiate(s.UUID, desc, proc.Conn, root)
}

// acquireProcess returns the running process for the descriptor and root, or
// spawns one. Sessions sharing a key always share a process; exactly one
// spawn happens per key because acquisition runs on the loop goroutine.
func (c *controller) acquireProcess(ctx context.Context, desc *entity.ServerDescriptor, root string) (*entity.ServerProcess, error) {
	key := entity.ProcessKey{DescriptorID: desc.ID, Root: root}
	if proc, err := c.processes.Get(ctx, key); err == nil {
		c.stats.Counter("process_reuses").Inc(1)
		return proc, nil
	}

	conn, err := c.gateway.Start(ctx, desc, root, c.serverHandler(desc.ID))
	if err != nil {
		return nil, err
	}

	proc := &entity.ServerProcess{Key: key, Conn: conn}
	if err := c.processes.Set(ctx, proc); err != nil {
		return nil, err
	}
	c.stats.Counter("process_spawns").Inc(1)

	// Report the eventual exit back to the loop, whatever the cause.
	go func() {
		<-conn.Done()
		select {
		case c.events <- processExited{Key: key}:
		case <-c.loopCtx.Done():
		}
	}()

	return proc, nil
}

// negotiate issues the initialize request off-loop and reports the outcome as
// an event. The loop decides whether the response still has a session to land
// on.
func (c *controller) negotiate(id uuid.UUID, desc *entity.ServerDescriptor, conn entity.ServerConn, root string) {
	params := &protocol.InitializeParams{
		RootURI:               uri.File(root),
		Capabilities:          clientCapabilities(),
		InitializationOptions: desc.Settings,
	}

	type outcome struct {
		result *protocol.InitializeResult
		err    error
	}
	resultCh := make(chan outcome, 1)
	ctx, cancel := context.WithCancel(c.loopCtx)
	defer cancel()
	go func() {
		result, err := conn.Initialize(ctx, params)
		resultCh <- outcome{result: result, err: err}
	}()

	ev := negotiationDone{Session: id}
	select {
	case o := <-resultCh:
		ev.Result, ev.Err = o.result, o.err
	case <-c.clock.After(c.negotiationTimeout):
		ev.Err = errors.ErrNegotiationTimeout
	case <-c.loopCtx.Done():
		return
	}

	select {
	case c.events <- ev:
	case <-c.loopCtx.Done():
	}
}

// handleNegotiated applies a negotiation outcome, or drops it when the
// session detached while the request was in flight. Matching is strictly by
// session UUID so a response can never land on a newer session that happens
// to reuse the same server process.
func (c *controller) handleNegotiated(ctx context.Context, ev negotiationDone) {
	s, err := c.sessions.Get(ctx, ev.Session)
	if err != nil || s.State != entity.StateNegotiating {
		c.logger.Debugw("discarding stale negotiation response", "session", ev.Session)
		c.stats.Counter("stale_responses").Inc(1)
		return
	}

	if ev.Err != nil {
		c.logger.Warnw("negotiation failed", "session", ev.Session, "server", s.DescriptorID, "error", ev.Err)
		c.stats.Counter("negotiation_failures").Inc(1)
		c.detach(ctx, s)
		return
	}

	desc, err := c.registry.Get(s.DescriptorID)
	if err != nil {
		c.logger.Errorw("session refers to unknown descriptor", "session", ev.Session, "error", err)
		c.detach(ctx, s)
		return
	}

	caps, err := entity.NewCapabilitySet(ev.Result.Capabilities)
	if err != nil {
		c.logger.Warnw("unusable server capabilities", "session", ev.Session, "error", err)
		c.detach(ctx, s)
		return
	}

	s.Capabilities = caps.WithOverrides(desc.CapabilityOverrides)
	s.State = entity.StateActive
	if err := c.sessions.Set(ctx, s); err != nil {
		c.logger.Errorw("storing session", "error", err)
		return
	}

	key := entity.ProcessKey{DescriptorID: s.DescriptorID, Root: s.Root}
	if proc, err := c.processes.Get(ctx, key); err == nil {
		if err := proc.Conn.Initialized(ctx); err != nil {
			c.logger.Debugw("sending initialized notification", "session", ev.Session, "error", err)
		}
	}

	if err := c.binder.Bind(ctx, s); err != nil {
		c.logger.Errorw("binding features", "session", ev.Session, "error", err)
	}
	c.logger.Infow("session active", "session", ev.Session, "server", s.DescriptorID, "root", s.Root)
}

// handleClosed detaches every session attached to the document.
func (c *controller) handleClosed(ctx context.Context, ev documentClosed) {
	sessions, err := c.sessions.GetFromDocument(ctx, ev.Document)
	if err != nil {
		c.logger.Errorw("looking up sessions for document", "document", ev.Document, "error", err)
		return
	}
	for _, s := range sessions {
		c.detach(ctx, s)
	}
}

// handleExited tears down every session on a process that went away. The
// sessions transition straight to Detached; no restart is attempted.
func (c *controller) handleExited(ctx context.Context, ev processExited) {
	if proc, err := c.processes.Get(ctx, ev.Key); err == nil {
		if exitErr := proc.Conn.Err(); exitErr != nil {
			c.logger.Warnw("server process exited", "server", ev.Key.DescriptorID, "root", ev.Key.Root, "error", exitErr)
		}
		c.processes.Delete(ctx, ev.Key)
		c.stats.Counter("process_exits").Inc(1)
	}

	sessions, err := c.sessions.GetAllFromRoot(ctx, ev.Key.DescriptorID, ev.Key.Root)
	if err != nil {
		c.logger.Errorw("looking up sessions for process", "error", err)
		return
	}
	for _, s := range sessions {
		c.binder.Unbind(ctx, s.UUID)
		s.State = entity.StateDetached
		c.sessions.Delete(ctx, s.UUID)
		c.logger.Infow("session detached", "session", s.UUID, "reason", "server exited")
	}
}

// detach transitions one session to Detached and shuts the server process
// down once its last session is gone.
func (c *controller) detach(ctx context.Context, s *entity.DocumentSession) {
	c.binder.Unbind(ctx, s.UUID)
	s.State = entity.StateDetached
	c.sessions.Delete(ctx, s.UUID)

	remaining, err := c.sessions.GetAllFromRoot(ctx, s.DescriptorID, s.Root)
	if err != nil || len(remaining) > 0 {
		return
	}

	key := entity.ProcessKey{DescriptorID: s.DescriptorID, Root: s.Root}
	proc, err := c.processes.Get(ctx, key)
	if err != nil {
		return
	}
	if err := proc.Conn.Shutdown(ctx); err != nil {
		c.logger.Debugw("shutting down server", "server", s.DescriptorID, "error", err)
	}
	if err := proc.Conn.Exit(); err != nil {
		c.logger.Debugw("exiting server", "server", s.DescriptorID, "error", err)
	}
	c.processes.Delete(ctx, key)
	c.logger.Infow("server stopped", "server", s.DescriptorID, "root", s.Root)
}

// serverHandler handles server-initiated traffic. Diagnostics notifications
// are counted and dropped here; everything else gets a method-not-found
// reply.
func (c *controller) serverHandler(descriptorID string) jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		switch req.Method() {
		case protocol.MethodTextDocumentPublishDiagnostics:
			c.stats.Counter("diagnostics_received").Inc(1)
			return reply(ctx, nil, nil)
		case protocol.MethodWindowLogMessage, protocol.MethodWindowShowMessage:
			return reply(ctx, nil, nil)
		default:
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
	}
}
