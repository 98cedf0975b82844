package ports

import (
	"context"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// SessionRepository persists sessions so they survive a restart. There is
// at most one record per client id; Save replaces it.
type SessionRepository interface {
	Save(ctx context.Context, session *domain.Session) error
	// Get returns domain.ErrSessionNotFound when the client has no session.
	Get(ctx context.Context, clientID string) (*domain.Session, error)
	Delete(ctx context.Context, clientID string) error
	// ClientsFor lists the client ids holding a session for identityID.
	ClientsFor(ctx context.Context, identityID string) ([]string, error)
}
