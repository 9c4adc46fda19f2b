// Package process tracks running language server processes. Sessions sharing
// a (descriptor, root) key share one process; the dispatcher checks here
// before asking the gateway to spawn, which keeps spawns to one per key.
package process

import (
	"context"
	"sync"

	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/internal/errors"
	tally "github.com/uber-go/tally"
)

// Repository is an entity-scoped repository for running server processes.
type Repository interface {
	Get(ctx context.Context, key entity.ProcessKey) (*entity.ServerProcess, error)
	Set(ctx context.Context, p *entity.ServerProcess) error
	Delete(ctx context.Context, key entity.ProcessKey) error
	ProcessCount(ctx context.Context) (int, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[entity.ProcessKey]*entity.ServerProcess
	stats    tally.Scope
}

// New returns a repository to a key-value ServerProcess data store.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[entity.ProcessKey]*entity.ServerProcess),
		stats:    stats,
	}
}

// Get returns the ServerProcess associated with the given key.
func (r *repository) Get(ctx context.Context, key entity.ProcessKey) (*entity.ServerProcess, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.memstore[key]
	if !ok {
		return nil, &errors.ProcessNotFoundError{DescriptorID: key.DescriptorID, Root: key.Root}
	}
	return p, nil
}

// Set stores the ServerProcess under its key.
func (r *repository) Set(ctx context.Context, p *entity.ServerProcess) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p == nil {
		return errors.New("can't save nil process")
	}
	r.memstore[p.Key] = p
	r.stats.Gauge("active_processes").Update(float64(len(r.memstore)))
	return nil
}

// Delete removes the ServerProcess associated with the given key.
func (r *repository) Delete(ctx context.Context, key entity.ProcessKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, key)
	r.stats.Gauge("active_processes").Update(float64(len(r.memstore)))
	return nil
}

// ProcessCount returns the total count of running processes.
func (r *repository) ProcessCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}
