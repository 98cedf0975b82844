package ports

import (
	"context"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// SessionService binds client contexts to identities.
type SessionService interface {
	Login(ctx context.Context, clientID string, creds domain.Credentials) (*domain.Session, error)
	Logout(ctx context.Context, clientID string)
	CurrentIdentity(clientID string) (*domain.Identity, bool)
	OnChange(fn func(domain.SessionChange)) (unsubscribe func())
	Resume(ctx context.Context, token string) (*domain.Session, error)
}

// SessionSync is how the mutation gateway tells sessions about changes to
// the identities they are bound to.
type SessionSync interface {
	IdentityChanged(ctx context.Context, identity *domain.Identity)
	IdentityRemoved(ctx context.Context, identityID string)
}

// Directory lists identities for privileged actors.
type Directory interface {
	ListAll(ctx context.Context, actor *domain.Identity) ([]*domain.Identity, error)
	Invalidate()
}

// AuditLog is the accountability trail.
type AuditLog interface {
	Record(ctx context.Context, action, performedBy string) (domain.AuditEntry, error)
	Recent(ctx context.Context) ([]domain.AuditEntry, error)
}

// MutationGateway is the only write path for identities.
type MutationGateway interface {
	Register(ctx context.Context, in domain.RegisterInput) (*domain.Identity, error)
	ChangeRole(ctx context.Context, actor *domain.Identity, targetID string, newRole domain.Role) error
	Ban(ctx context.Context, actor *domain.Identity, targetID string) error
	Unban(ctx context.Context, actor *domain.Identity, targetID string) error
	DeleteIdentity(ctx context.Context, actor *domain.Identity, targetID string) error
	EditProfile(ctx context.Context, actor *domain.Identity, targetID, username, email string) error
	ResetPassword(ctx context.Context, actor *domain.Identity, targetID, newPassword string) error
	ChangeOwnPassword(ctx context.Context, actor *domain.Identity, current, next string) error
	UpdateAvatar(ctx context.Context, actor *domain.Identity, avatarURL string) error
}
