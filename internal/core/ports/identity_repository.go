package ports

import (
	"context"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// IdentityRepository is the identity backing store. Implementations map
// their driver errors onto domain.ErrNotFound, domain.ErrConflict and
// domain.ErrUnavailable.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	FindByUsername(ctx context.Context, username string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// List returns every identity ordered by created_at descending.
	List(ctx context.Context) ([]*domain.Identity, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)

	UpdateRole(ctx context.Context, id string, role domain.Role) error
	SetBanned(ctx context.Context, id string, banned bool) error
	UpdateProfile(ctx context.Context, id, username, email string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	Delete(ctx context.Context, id string) error
}
