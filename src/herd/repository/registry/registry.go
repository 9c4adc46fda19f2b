// Package registry holds the declarative table of language server descriptors.
// The table is built once at startup from configuration and is read-only
// afterward, so lookups need no locking.
package registry

import (
	"fmt"
	"sort"

	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/internal/errors"
	"go.uber.org/config"
	"go.uber.org/fx"
)

// Module provides a new Registry.
var Module = fx.Provide(New)

// Registry exposes lookups over the configured server descriptors.
type Registry interface {
	// Lookup returns every descriptor that applies to the given filetype,
	// sorted by ID. Multiple descriptors may match one filetype; avoiding
	// duplicate feature ownership is up to the configuration (scope one server
	// to a narrower filetype set).
	Lookup(filetype string) []*entity.ServerDescriptor
	// Get returns the descriptor with the given ID.
	Get(id string) (*entity.ServerDescriptor, error)
	// All returns every registered descriptor, sorted by ID.
	All() []*entity.ServerDescriptor
	// ToolIDs returns the sorted, deduplicated set of tool identifiers that
	// must be installed for the registered descriptors.
	ToolIDs() []string
}

// Params are the parameters required to create a new Registry.
type Params struct {
	fx.In

	Config config.Provider
}

type registry struct {
	byID       map[string]*entity.ServerDescriptor
	byFiletype map[string][]*entity.ServerDescriptor
}

// New builds a Registry from the "servers" config block.
func New(p Params) (Registry, error) {
	var descriptors []entity.ServerDescriptor
	if err := p.Config.Get(entity.ServersConfigKey).Populate(&descriptors); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", entity.ServersConfigKey, err)
	}

	r := &registry{
		byID:       make(map[string]*entity.ServerDescriptor, len(descriptors)),
		byFiletype: make(map[string][]*entity.ServerDescriptor),
	}

	for i := range descriptors {
		d := &descriptors[i]
		if d.ID == "" {
			return nil, errors.New("server descriptor is missing an id")
		}
		if _, ok := r.byID[d.ID]; ok {
			return nil, fmt.Errorf("duplicate server descriptor %q", d.ID)
		}
		if len(d.Filetypes) == 0 {
			return nil, fmt.Errorf("server descriptor %q has no filetypes", d.ID)
		}

		r.byID[d.ID] = d
		for _, ft := range d.Filetypes {
			r.byFiletype[ft] = append(r.byFiletype[ft], d)
		}
	}

	for _, matches := range r.byFiletype {
		sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	}

	return r, nil
}

func (r *registry) Lookup(filetype string) []*entity.ServerDescriptor {
	matches := r.byFiletype[filetype]
	out := make([]*entity.ServerDescriptor, len(matches))
	copy(out, matches)
	return out
}

func (r *registry) Get(id string) (*entity.ServerDescriptor, error) {
	d, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("no server descriptor %q", id)
	}
	return d, nil
}

func (r *registry) All() []*entity.ServerDescriptor {
	out := make([]*entity.ServerDescriptor, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *registry) ToolIDs() []string {
	seen := make(map[string]struct{}, len(r.byID))
	out := make([]string, 0, len(r.byID))
	for _, d := range r.byID {
		tool := d.ToolID()
		if _, ok := seen[tool]; ok {
			continue
		}
		seen[tool] = struct{}{}
		out = append(out, tool)
	}
	sort.Strings(out)
	return out
}
