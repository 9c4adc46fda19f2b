package session

import (
	"context"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/internal/errors"
	"github.com/lspherd/lspherd/src/herd/mapper"
	"github.com/lspherd/lspherd/src/herd/model"
	tally "github.com/uber-go/tally"
	"go.lsp.dev/uri"
)

// Repository is an entity-scoped repository for document sessions.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.DocumentSession, error)
	GetFromContext(ctx context.Context) (*entity.DocumentSession, error)
	GetFromDocument(ctx context.Context, document uri.URI) ([]*entity.DocumentSession, error)
	GetAllFromRoot(ctx context.Context, descriptorID string, root string) ([]*entity.DocumentSession, error)
	Set(ctx context.Context, s *entity.DocumentSession) error
	Delete(ctx context.Context, id uuid.UUID) error
	SessionCount(ctx context.Context) (int, error)
}

type repository struct {
	mu       sync.Mutex
	memstore map[uuid.UUID]*model.DocumentSession
	stats    tally.Scope
}

// New returns a repository to a key-value DocumentSession data store.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[uuid.UUID]*model.DocumentSession),
		stats:    stats,
	}
}

// Get returns the DocumentSession associated with the given id.
func (r *repository) Get(ctx context.Context, id uuid.UUID) (*entity.DocumentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.memstore[id]
	if !ok {
		return nil, &errors.UUIDNotFoundError{UUID: id}
	}
	return mapper.ModelToSession(s)
}

// GetFromContext returns the DocumentSession associated with the given context.
func (r *repository) GetFromContext(ctx context.Context) (*entity.DocumentSession, error) {
	id, err := mapper.ContextToSessionUUID(ctx)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// GetFromDocument returns all sessions attached to the given document.
func (r *repository) GetFromDocument(ctx context.Context, document uri.URI) ([]*entity.DocumentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := make([]*entity.DocumentSession, 0)
	for _, s := range r.memstore {
		if s.Document == document {
			sess, err := mapper.ModelToSession(s)
			if err == nil {
				found = append(found, sess)
			}
		}
	}
	return found, nil
}

// GetAllFromRoot returns all sessions for a specific descriptor and resolved root.
func (r *repository) GetAllFromRoot(ctx context.Context, descriptorID string, root string) ([]*entity.DocumentSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := make([]*entity.DocumentSession, 0)
	for _, s := range r.memstore {
		if s.DescriptorID == descriptorID && s.Root == root {
			sess, err := mapper.ModelToSession(s)
			if err == nil {
				found = append(found, sess)
			}
		}
	}
	return found, nil
}

// Set sets the DocumentSession to its associated uuid.
func (r *repository) Set(ctx context.Context, s *entity.DocumentSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s == nil {
		return errors.New("can't save nil session")
	}
	r.memstore[s.UUID] = mapper.SessionToModel(s)
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
	return nil
}

// Delete removes the DocumentSession associated with the given id.
func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.memstore, id)
	r.stats.Gauge("active_sessions").Update(float64(len(r.memstore)))
	return nil
}

// SessionCount returns the total count of active sessions.
func (r *repository) SessionCount(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore), nil
}
