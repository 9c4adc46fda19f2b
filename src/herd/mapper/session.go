package mapper

import (
	"context"

	"github.com/gofrs/uuid"
	"github.com/lspherd/lspherd/src/herd/entity"
	"github.com/lspherd/lspherd/src/herd/internal/errors"
	"github.com/lspherd/lspherd/src/herd/model"
)

// SessionToModel maps a DocumentSession entity to its model equivalent.
func SessionToModel(s *entity.DocumentSession) *model.DocumentSession {
	m := &model.DocumentSession{
		UUID:         s.UUID,
		Document:     s.Document,
		Filetype:     s.Filetype,
		DescriptorID: s.DescriptorID,
		Root:         s.Root,
		State:        int(s.State),
	}
	if s.Capabilities != nil {
		m.Capabilities = make(map[string]bool, len(s.Capabilities))
		for f, v := range s.Capabilities {
			m.Capabilities[string(f)] = v
		}
	}
	return m
}

// ModelToSession maps a model DocumentSession to its entity equivalent.
func ModelToSession(m *model.DocumentSession) (*entity.DocumentSession, error) {
	s := &entity.DocumentSession{
		UUID:         m.UUID,
		Document:     m.Document,
		Filetype:     m.Filetype,
		DescriptorID: m.DescriptorID,
		Root:         m.Root,
		State:        entity.SessionState(m.State),
	}
	if m.Capabilities != nil {
		s.Capabilities = make(entity.CapabilitySet, len(m.Capabilities))
		for f, v := range m.Capabilities {
			s.Capabilities[entity.Feature(f)] = v
		}
	}
	return s, nil
}

// ContextToSessionUUID extracts the UUID from a context.
func ContextToSessionUUID(c context.Context) (uuid.UUID, error) {
	s, ok := c.Value(entity.SessionContextKey).(uuid.UUID)
	if !ok {
		return uuid.Nil, &errors.NoSessionFoundError{}
	}
	return s, nil
}
