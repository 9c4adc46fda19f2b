package jsonrpcfx

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/internal/discovery"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _configKeyAddress = "jsonrpc.address"

// Module is an fx module to handle JSON-RPC requests.
var Module = fx.Provide(New)

// JSONRPCModule represents a module to manage inbound JSON-RPC connections
// from editors.
type JSONRPCModule interface {
	ServeStream(ctx context.Context, conn jsonrpc2.Conn) error
	RegisterConnectionManager(connectionManager ConnectionManager) error
}

// Router serves as the interface through which handling of requests will be implemented.
type Router interface {
	HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error
	UUID() uuid.UUID
}

// ConnectionManager manages each active connection and its corresponding
// Router throughout the lifecycle of a connection.
type ConnectionManager interface {
	NewConnection(ctx context.Context, conn *jsonrpc2.Conn) (router Router, err error)
	RemoveConnection(ctx context.Context, id uuid.UUID)
}

type module struct {
	address string

	connectionMgr ConnectionManager
	ln            *net.TCPListener
	logger        *zap.SugaredLogger
	discovery     discovery.Writer
}

// Params define values to be used by the JSON-RPC handler.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
	Discovery discovery.Writer
}

// New creates a new server to handle JSON-RPC requests on the configured address.
func New(p Params) (JSONRPCModule, error) {
	m := module{
		logger:    p.Logger,
		discovery: p.Discovery,
	}

	if err := p.Config.Get(_configKeyAddress).Populate(&m.address); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyAddress, err)
	}
	if m.address == "" {
		return nil, fmt.Errorf("missing field %q in config", _configKeyAddress)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: m.onStart,
		OnStop:  m.onStop,
	})

	return &m, nil
}

// onStart binds the listener and begins accepting editor connections.
func (m *module) onStart(ctx context.Context) error {
	addr, err := net.ResolveTCPAddr("tcp", m.address)
	if err != nil {
		return err
	}
	m.ln, err = net.ListenTCP("tcp", addr)
	if err != nil {
		return err
	}

	if err := m.discovery.Publish(discovery.Info{Address: m.ln.Addr().String()}); err != nil {
		return fmt.Errorf("publishing connection info: %w", err)
	}

	m.logger.Infow("started JSON-RPC inbound", zap.String("address", m.ln.Addr().String()))
	go func() {
		if err := jsonrpc2.Serve(context.Background(), m.ln, m, 0); err != nil && !errors.Is(err, net.ErrClosed) {
			m.logger.Errorw("JSON-RPC serve loop ended", "error", err)
		}
	}()
	return nil
}

func (m *module) onStop(ctx context.Context) error {
	if m.ln == nil {
		return nil
	}
	return m.ln.Close()
}

// ServeStream is called for each new editor connection. Requests received via
// the connection are routed to the connection's Router and answered via its
// replier.
func (m *module) ServeStream(ctx context.Context, conn jsonrpc2.Conn) error {
	if m.connectionMgr == nil {
		m.logger.Errorf("cannot serve connection, no connection manager set")
		return errors.New("cannot serve connection, no connection manager set")
	}

	handler, err := m.connectionMgr.NewConnection(ctx, &conn)
	if err != nil {
		return err
	}
	m.logger.Infow("editor connected", zap.Stringer("uuid", handler.UUID()))
	conn.Go(ctx, handler.HandleReq)

	// Block until the connection is closed, then clean up after it.
	<-conn.Done()
	m.connectionMgr.RemoveConnection(ctx, handler.UUID())
	m.logger.Infow("editor disconnected", zap.Stringer("uuid", handler.UUID()))

	return conn.Err()
}

// RegisterConnectionManager sets the connection manager, which keeps track of
// current active connections and provides a Router implementation.
func (m *module) RegisterConnectionManager(connectionMgr ConnectionManager) error {
	if m.connectionMgr != nil {
		return errors.New("cannot register a duplicate connection manager")
	}
	m.connectionMgr = connectionMgr
	return nil
}
