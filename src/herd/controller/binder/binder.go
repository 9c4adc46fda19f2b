// Package binder attaches user-invocable features to active sessions, gated
// on what the server confirmed during negotiation. A feature that the server
// never claimed is never offered; invoking it is a no-op rather than an error.
package binder

import (
	"context"
	"sort"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/entity"
	tally "github.com/uber-go/tally"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _nameKey = "binder"

// Catalog is the fixed set of features the binder may attach. Document
// highlight is deliberately absent: it stays off until someone decides it
// should ship.
var Catalog = []entity.Feature{
	entity.FeatureRename,
	entity.FeatureCodeAction,
	entity.FeatureReferences,
	entity.FeatureDefinition,
	entity.FeatureDeclaration,
	entity.FeatureImplementation,
	entity.FeatureTypeDefinition,
	entity.FeatureDocumentSymbol,
	entity.FeatureWorkspaceSymbol,
	entity.FeatureInlayHint,
}

// Controller binds and invokes capability-gated features per session.
type Controller interface {
	// Bind evaluates the catalog against the session's negotiated capability
	// set and attaches the supported features. Runs once per session, at the
	// transition to Active; bindings are not re-evaluated afterward.
	Bind(ctx context.Context, session *entity.DocumentSession) error
	// Unbind drops all bindings for a session. Called on detach.
	Unbind(ctx context.Context, id uuid.UUID)
	// Bound returns the sorted features currently bound for a session.
	Bound(ctx context.Context, id uuid.UUID) []entity.Feature
	// Invoke triggers a feature for a session. Returns false without error
	// when the feature is not bound.
	Invoke(ctx context.Context, id uuid.UUID, feature entity.Feature) (bool, error)
}

// Params are inbound parameters to construct the controller.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
	Stats  tally.Scope
}

// checkFn decides whether a negotiated capability set covers a feature. The
// check shape differed across protocol client generations, so it is resolved
// into one strategy at construction instead of being re-branched per call.
type checkFn func(caps entity.CapabilitySet, feature entity.Feature) bool

type controller struct {
	logger *zap.SugaredLogger
	stats  tally.Scope
	check  checkFn

	mu    sync.Mutex
	bound map[uuid.UUID]map[entity.Feature]struct{}
}

// New creates a new binder controller.
func New(p Params) Controller {
	return &controller{
		logger: p.Logger.With("component", _nameKey),
		stats:  p.Stats.SubScope(_nameKey),
		check:  entity.CapabilitySet.Supports,
		bound:  make(map[uuid.UUID]map[entity.Feature]struct{}),
	}
}

func (c *controller) Bind(ctx context.Context, session *entity.DocumentSession) error {
	features := make(map[entity.Feature]struct{})
	for _, feature := range Catalog {
		if c.check(session.Capabilities, feature) {
			features[feature] = struct{}{}
		}
	}

	c.mu.Lock()
	c.bound[session.UUID] = features
	c.mu.Unlock()

	c.logger.Debugw("features bound", "session", session.UUID, "count", len(features))
	c.stats.Counter("binds").Inc(1)
	return nil
}

func (c *controller) Unbind(ctx context.Context, id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bound, id)
}

func (c *controller) Bound(ctx context.Context, id uuid.UUID) []entity.Feature {
	c.mu.Lock()
	defer c.mu.Unlock()

	features := make([]entity.Feature, 0, len(c.bound[id]))
	for feature := range c.bound[id] {
		features = append(features, feature)
	}
	sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })
	return features
}

func (c *controller) Invoke(ctx context.Context, id uuid.UUID, feature entity.Feature) (bool, error) {
	c.mu.Lock()
	_, ok := c.bound[id][feature]
	c.mu.Unlock()

	if !ok {
		// The session's server never claimed this capability. Stay silent.
		c.stats.Counter("invoke_unbound").Inc(1)
		return false, nil
	}

	c.logger.Debugw("feature invoked", "session", id, "feature", feature)
	c.stats.Counter("invocations").Inc(1)
	return true, nil
}
