// Package discovery publishes the daemon's connection details to a
// well-known file so editors can locate the JSON-RPC endpoint without
// configuration. The file is removed on shutdown.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _configKeyFile = "discoveryFilePath"

// Module is the Fx module for this package.
var Module = fx.Provide(New)

// Info is the discovery document editors read.
type Info struct {
	// Address of the JSON-RPC listener, host:port.
	Address string `json:"address"`
	// PID of the daemon process.
	PID int `json:"pid"`
}

// Writer publishes the daemon's discovery document.
type Writer interface {
	Publish(info Info) error
}

// Params define values used by the Writer.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
}

type writer struct {
	path   string
	logger *zap.SugaredLogger
	mu     sync.Mutex
}

// New creates a Writer that manages the discovery file named in config.
func New(p Params) (Writer, error) {
	w := &writer{
		logger: p.Logger,
	}

	if err := p.Config.Get(_configKeyFile).Populate(&w.path); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKeyFile, err)
	}
	if w.path == "" {
		return nil, fmt.Errorf("missing field %q in config", _configKeyFile)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: w.remove,
	})

	return w, nil
}

func (w *writer) Publish(info Info) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if info.PID == 0 {
		info.PID = os.Getpid()
	}

	out, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding discovery info: %w", err)
	}
	if err := os.WriteFile(w.path, out, 0644); err != nil {
		return fmt.Errorf("writing discovery file: %w", err)
	}

	w.logger.Infow("connection info published", "file", w.path, "address", info.Address)
	return nil
}

func (w *writer) remove(ctx context.Context) error {
	if err := os.Remove(w.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
