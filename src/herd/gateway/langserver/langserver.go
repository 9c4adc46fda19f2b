// Package langserver is the outbound boundary to external language server
// processes. It spawns the process described by a descriptor, wires a
// JSON-RPC connection over its stdio, and exposes the lifecycle requests the
// orchestration layer needs.
package langserver

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/lspherd/lspherd/src/herd/entity"
	herderrors "github.com/lspherd/lspherd/src/herd/internal/errors"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Module provides a new Gateway.
var Module = fx.Provide(New)

// Gateway starts language server processes.
type Gateway interface {
	// Start spawns the descriptor's command rooted at root and returns a live
	// connection. The handler receives server-initiated requests and
	// notifications. Failure to start is a SpawnFailure.
	Start(ctx context.Context, desc *entity.ServerDescriptor, root string, handler jsonrpc2.Handler) (entity.ServerConn, error)
}

// Params are the parameters required to create a new Gateway.
type Params struct {
	fx.In

	Logger *zap.Logger
}

type gateway struct {
	logger *zap.Logger
}

// New returns a Gateway for spawning language servers.
func New(p Params) Gateway {
	return &gateway{
		logger: p.Logger,
	}
}

func (g *gateway) Start(ctx context.Context, desc *entity.ServerDescriptor, root string, handler jsonrpc2.Handler) (entity.ServerConn, error) {
	argv := desc.Argv()
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = root
	cmd.Env = os.Environ()

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &herderrors.SpawnFailure{DescriptorID: desc.ID, Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &herderrors.SpawnFailure{DescriptorID: desc.ID, Err: err}
	}

	if err := cmd.Start(); err != nil {
		return nil, &herderrors.SpawnFailure{DescriptorID: desc.ID, Err: err}
	}

	stream := jsonrpc2.NewStream(stdioPipe{ReadCloser: stdout, WriteCloser: stdin})
	conn := jsonrpc2.NewConn(stream)
	if handler == nil {
		handler = jsonrpc2.MethodNotFoundHandler
	}
	conn.Go(ctx, handler)

	sc := &serverConn{
		descriptorID: desc.ID,
		cmd:          cmd,
		conn:         conn,
		server:       protocol.ServerDispatcher(conn, g.logger.Named(desc.ID)),
		done:         make(chan struct{}),
	}

	go sc.wait()
	g.logger.Info("language server started", zap.String("server", desc.ID), zap.String("root", root))
	return sc, nil
}

type serverConn struct {
	descriptorID string
	cmd          *exec.Cmd
	conn         jsonrpc2.Conn
	server       protocol.Server

	done    chan struct{}
	exitErr error
	once    sync.Once
}

// wait reaps the process and signals Done once it exits, whether from a clean
// shutdown or a crash.
func (s *serverConn) wait() {
	err := s.cmd.Wait()
	s.once.Do(func() {
		s.exitErr = err
		close(s.done)
	})
}

func (s *serverConn) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	result, err := s.server.Initialize(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("initializing server %q: %w", s.descriptorID, err)
	}
	return result, nil
}

func (s *serverConn) Initialized(ctx context.Context) error {
	return s.server.Initialized(ctx, &protocol.InitializedParams{})
}

func (s *serverConn) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Exit tells the server to exit and closes the connection. The process itself
// is reaped by wait.
func (s *serverConn) Exit() error {
	return multierr.Append(
		s.server.Exit(context.Background()),
		s.conn.Close(),
	)
}

func (s *serverConn) Done() <-chan struct{} {
	return s.done
}

func (s *serverConn) Err() error {
	select {
	case <-s.done:
		return s.exitErr
	default:
		return nil
	}
}

// stdioPipe adapts a child process's stdout/stdin pipes into the single
// io.ReadWriteCloser the JSON-RPC stream expects.
type stdioPipe struct {
	io.ReadCloser
	io.WriteCloser
}

func (p stdioPipe) Close() error {
	return multierr.Append(p.ReadCloser.Close(), p.WriteCloser.Close())
}
