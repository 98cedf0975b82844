package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/ports"
)

// SeedConfig describes the accounts that must exist at startup.
type SeedConfig struct {
	RootUsername string
	RootEmail    string
	RootPassword string
	// Owners maps username to password.
	Owners map[string]string
	// OwnerEmailDomain builds owner emails as <username>@<domain>.
	OwnerEmailDomain string
}

// Seed creates the root identity when none exists and every configured
// owner that is missing. It bypasses policy and writes no audit entries.
func Seed(ctx context.Context, repo ports.IdentityRepository, cfg SeedConfig, log zerolog.Logger) error {
	roots, err := repo.CountByRole(ctx, domain.RoleRoot)
	if err != nil {
		return fmt.Errorf("seed: count root: %w", err)
	}
	if roots == 0 {
		if len(cfg.RootPassword) < domain.MinPasswordLength {
			return fmt.Errorf("seed: root password must be at least %d characters", domain.MinPasswordLength)
		}
		// A conflict here means the root username or email belongs to
		// another identity; starting without a root is not allowed.
		if err := seedIdentity(ctx, repo, cfg.RootUsername, cfg.RootEmail, cfg.RootPassword, domain.RoleRoot); err != nil {
			return err
		}
		log.Info().Str("username", cfg.RootUsername).Msg("root identity seeded")
	}

	names := make([]string, 0, len(cfg.Owners))
	for name := range cfg.Owners {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := repo.FindByUsername(ctx, name); err == nil {
			continue
		} else if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("seed: find owner %s: %w", name, err)
		}

		password := cfg.Owners[name]
		if len(password) < domain.MinPasswordLength {
			log.Warn().Str("username", name).Msg("seed owner skipped: password too short")
			continue
		}
		email := fmt.Sprintf("%s@%s", strings.ToLower(name), cfg.OwnerEmailDomain)
		if err := seedIdentity(ctx, repo, name, email, password, domain.RoleOwner); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				log.Warn().Err(err).Str("username", name).Msg("seed owner skipped: email already taken")
				continue
			}
			return err
		}
		log.Info().Str("username", name).Msg("owner identity seeded")
	}
	return nil
}

func seedIdentity(ctx context.Context, repo ports.IdentityRepository, username, email, password string, role domain.Role) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = repo.Create(ctx, &domain.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        normalizeEmail(email),
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("seed %s %s (email %s): %w", role, username, email, err)
	}
	return nil
}
