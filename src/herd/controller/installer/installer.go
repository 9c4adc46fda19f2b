// Package installer derives the set of external tools the registry requires
// and delegates their acquisition to a configured package manager. A failed
// acquisition marks the tool unavailable until it shows up; it never takes
// the daemon down.
package installer

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/lspherd/lspherd/src/herd/internal/errors"
	"github.com/lspherd/lspherd/src/herd/internal/executor"
	"github.com/lspherd/lspherd/src/herd/internal/fs"
	"github.com/lspherd/lspherd/src/herd/repository/registry"
	tally "github.com/uber-go/tally"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	_nameKey      = "installer"
	_configKey    = "installer"
	_manifestName = "installed.yaml"
)

// Controller ensures the tools named by the registry are present locally.
type Controller interface {
	// EnsureInstalled derives the required tool set (registry tools plus any
	// configured auxiliary tools, sorted and deduplicated) and attempts to
	// acquire each missing one. The derivation is deterministic for a given
	// registry. The returned error aggregates per-tool failures and is
	// informational; the daemon keeps running regardless.
	EnsureInstalled(ctx context.Context) ([]string, error)
	// Available reports whether a tool is believed usable. Tools are assumed
	// usable unless an acquisition for them has failed and not yet recovered.
	Available(tool string) bool
}

// Config holds the installer configuration block.
type Config struct {
	// Command is the package manager argv; the tool identifier is appended.
	Command []string `yaml:"command"`
	// BinDir is where the package manager places binaries.
	BinDir string `yaml:"binDir"`
	// AuxiliaryTools are fixed tool identifiers needed beyond the registry
	// (e.g. a formatter).
	AuxiliaryTools []string `yaml:"auxiliaryTools"`
}

// Params are inbound parameters to construct the controller.
type Params struct {
	fx.In

	Registry  registry.Registry
	Executor  executor.Executor
	FS        fs.HerdFS
	Logger    *zap.SugaredLogger
	Stats     tally.Scope
	Config    config.Provider
	Lifecycle fx.Lifecycle
}

type controller struct {
	registry registry.Registry
	executor executor.Executor
	fs       fs.HerdFS
	logger   *zap.SugaredLogger
	stats    tally.Scope
	cfg      Config

	mu          sync.Mutex
	unavailable map[string]struct{}
	watcher     *fsnotify.Watcher
}

// New creates a new installer controller.
func New(p Params) (Controller, error) {
	c := &controller{
		registry:    p.Registry,
		executor:    p.Executor,
		fs:          p.FS,
		logger:      p.Logger.With("component", _nameKey),
		stats:       p.Stats.SubScope(_nameKey),
		unavailable: make(map[string]struct{}),
	}

	if err := p.Config.Get(_configKey).Populate(&c.cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}
	if len(c.cfg.Command) == 0 {
		return nil, errors.New("installer command is not configured")
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: c.onStart,
		OnStop:  c.stopWatcher,
	})

	return c, nil
}

// onStart begins watching the bin dir and kicks off the initial acquisition
// pass. Acquisition failures mark tools unavailable; they never block startup.
func (c *controller) onStart(ctx context.Context) error {
	if err := c.startWatcher(ctx); err != nil {
		return err
	}

	go func() {
		if _, err := c.EnsureInstalled(context.Background()); err != nil {
			c.logger.Warnw("initial tool acquisition incomplete", "error", err)
		}
	}()
	return nil
}

func (c *controller) EnsureInstalled(ctx context.Context) ([]string, error) {
	tools := c.requiredTools()

	var failures error
	for _, tool := range tools {
		if ok, err := c.fs.FileExists(filepath.Join(c.cfg.BinDir, tool)); err == nil && ok {
			c.markAvailable(tool)
			continue
		}

		if err := c.install(ctx, tool); err != nil {
			c.logger.Warnw("tool acquisition failed", "tool", tool, "error", err)
			c.stats.Counter("install_failures").Inc(1)
			c.markUnavailable(tool)
			failures = multierr.Append(failures, &errors.InstallFailure{Tool: tool, Err: err})
			continue
		}
		c.markAvailable(tool)
	}

	if err := c.writeManifest(tools); err != nil {
		c.logger.Warnw("writing tool manifest", "error", err)
	}

	return tools, failures
}

func (c *controller) Available(tool string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, failed := c.unavailable[tool]
	return !failed
}

// requiredTools is a pure derivation from the registry plus fixed auxiliary
// tools. Sorted and deduplicated so repeated calls yield identical output.
func (c *controller) requiredTools() []string {
	seen := make(map[string]struct{})
	tools := make([]string, 0)
	for _, tool := range append(c.registry.ToolIDs(), c.cfg.AuxiliaryTools...) {
		if _, ok := seen[tool]; ok {
			continue
		}
		seen[tool] = struct{}{}
		tools = append(tools, tool)
	}
	sort.Strings(tools)
	return tools
}

func (c *controller) install(ctx context.Context, tool string) error {
	argv := append(append([]string{}, c.cfg.Command...), tool)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	_, stderr, exitCode, err := c.executor.Run(cmd)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("installer exited with code %d: %s", exitCode, stderr)
	}
	return nil
}

// manifest records the outcome of the last EnsureInstalled run.
type manifest struct {
	Tools map[string]bool `yaml:"tools"`
}

func (c *controller) writeManifest(tools []string) error {
	if c.cfg.BinDir == "" {
		return nil
	}

	m := manifest{Tools: make(map[string]bool, len(tools))}
	for _, tool := range tools {
		m.Tools[tool] = c.Available(tool)
	}

	out, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("encoding tool manifest: %w", err)
	}

	if err := c.fs.MkdirAll(c.cfg.BinDir); err != nil {
		return err
	}
	return c.fs.WriteFile(filepath.Join(c.cfg.BinDir, _manifestName), out)
}

// startWatcher watches the bin dir so a tool that appears out of band clears
// its unavailable mark without a daemon restart.
func (c *controller) startWatcher(ctx context.Context) error {
	if c.cfg.BinDir == "" {
		return nil
	}
	if err := c.fs.MkdirAll(c.cfg.BinDir); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating bin dir watcher: %w", err)
	}
	if err := watcher.Add(c.cfg.BinDir); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %q: %w", c.cfg.BinDir, err)
	}

	c.mu.Lock()
	c.watcher = watcher
	c.mu.Unlock()

	go c.watch(watcher)
	return nil
}

func (c *controller) stopWatcher(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	c.watcher = nil
	return err
}

func (c *controller) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				c.recovered(filepath.Base(event.Name))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warnw("bin dir watcher error", "error", err)
		}
	}
}

func (c *controller) recovered(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, failed := c.unavailable[tool]; failed {
		delete(c.unavailable, tool)
		c.logger.Infow("tool became available", "tool", tool)
		c.stats.Counter("install_recoveries").Inc(1)
	}
}

func (c *controller) markAvailable(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.unavailable, tool)
}

func (c *controller) markUnavailable(tool string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unavailable[tool] = struct{}{}
}
