package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/policy"
	"github.com/botforge/storefront-admin/internal/core/ports"
	"github.com/botforge/storefront-admin/internal/pkg/metrics"
)

// Gateway is the only write path for identities. Every operation checks
// policy against a freshly loaded actor and target, writes through to the
// repository, invalidates the directory, syncs live sessions and records
// one audit entry.
type Gateway struct {
	repo      ports.IdentityRepository
	sessions  ports.SessionSync
	directory ports.Directory
	audit     ports.AuditLog
	log       zerolog.Logger
	now       func() time.Time
}

func NewGateway(
	repo ports.IdentityRepository,
	sessions ports.SessionSync,
	directory ports.Directory,
	audit ports.AuditLog,
	log zerolog.Logger,
) *Gateway {
	return &Gateway{
		repo:      repo,
		sessions:  sessions,
		directory: directory,
		audit:     audit,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user-role identity. It is the only operation without
// an actor; its audit entry is attributed to the system.
func (g *Gateway) Register(ctx context.Context, in domain.RegisterInput) (_ *domain.Identity, err error) {
	const op = "register"
	defer func() { observe(op, err) }()

	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if username == "" || email == "" || strings.TrimSpace(in.DiscordID) == "" {
		return nil, fmt.Errorf("%w: username, email and discord id are required", domain.ErrInvalidInput)
	}
	if len(in.Password) < domain.MinPasswordLength {
		return nil, errPasswordTooShort
	}
	if err := g.ensureUnique(ctx, "", username, email); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := g.now()
	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Role:         domain.RoleUser,
		DiscordID:    strings.TrimSpace(in.DiscordID),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var created *domain.Identity
	if err := g.write(ctx, op, func() error {
		var werr error
		created, werr = g.repo.Create(ctx, identity)
		return werr
	}); err != nil {
		return nil, err
	}

	g.record(ctx, "New user registered: "+created.Username, domain.SystemActor)
	g.log.Info().Str("identity_id", created.ID).Str("operation", op).Msg("identity registered")
	return publicIdentity(created), nil
}

// ChangeRole sets target's role. The last remaining owner cannot be demoted.
func (g *Gateway) ChangeRole(ctx context.Context, actor *domain.Identity, targetID string, newRole domain.Role) (err error) {
	const op = "change_role"
	defer func() { observe(op, err) }()

	actor, target, err := g.resolve(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if !policy.CanMutateRole(actor, target, newRole) {
		return deny(op)
	}
	if target.Role == domain.RoleOwner && newRole != domain.RoleOwner {
		if err := g.guardLastOwner(ctx, op); err != nil {
			return err
		}
	}

	if err := g.write(ctx, op, func() error {
		return g.repo.UpdateRole(ctx, target.ID, newRole)
	}); err != nil {
		return err
	}

	oldRole := target.Role
	target.Role = newRole
	target.UpdatedAt = g.now()
	g.sessions.IdentityChanged(ctx, target)

	g.record(ctx, fmt.Sprintf("Role changed for %s: %s → %s", target.Username, oldRole, newRole), actor.Username)
	g.log.Info().
		Str("operation", op).
		Str("identity_id", target.ID).
		Str("actor_id", actor.ID).
		Str("from", string(oldRole)).
		Str("to", string(newRole)).
		Msg("role changed")
	return nil
}

// Ban marks target banned and drops every session it holds.
func (g *Gateway) Ban(ctx context.Context, actor *domain.Identity, targetID string) (err error) {
	const op = "ban"
	defer func() { observe(op, err) }()

	actor, target, err := g.resolve(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if !policy.CanBan(actor, target) {
		return deny(op)
	}

	if err := g.write(ctx, op, func() error {
		return g.repo.SetBanned(ctx, target.ID, true)
	}); err != nil {
		return err
	}

	target.Banned = true
	g.sessions.IdentityChanged(ctx, target)
	g.record(ctx, "User banned: "+target.Username, actor.Username)
	g.log.Info().Str("operation", op).Str("identity_id", target.ID).Str("actor_id", actor.ID).Msg("identity banned")
	return nil
}

func (g *Gateway) Unban(ctx context.Context, actor *domain.Identity, targetID string) (err error) {
	const op = "unban"
	defer func() { observe(op, err) }()

	actor, target, err := g.resolve(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if !policy.CanUnban(actor, target) {
		return deny(op)
	}

	if err := g.write(ctx, op, func() error {
		return g.repo.SetBanned(ctx, target.ID, false)
	}); err != nil {
		return err
	}

	target.Banned = false
	g.sessions.IdentityChanged(ctx, target)
	g.record(ctx, "User unbanned: "+target.Username, actor.Username)
	g.log.Info().Str("operation", op).Str("identity_id", target.ID).Str("actor_id", actor.ID).Msg("identity unbanned")
	return nil
}

// DeleteIdentity removes target. Root deleting itself is a silent no-op;
// anyone else targeting root is denied.
func (g *Gateway) DeleteIdentity(ctx context.Context, actor *domain.Identity, targetID string) (err error) {
	const op = "delete"
	defer func() { observe(op, err) }()

	actor, target, err := g.resolve(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if target.IsRoot() {
		if actor.Role != domain.RoleRoot {
			return deny(op)
		}
		g.log.Info().Str("operation", op).Str("actor_id", actor.ID).Msg("delete of root ignored")
		return nil
	}
	if !policy.CanDelete(actor, target) {
		return deny(op)
	}
	if target.Role == domain.RoleOwner {
		if err := g.guardLastOwner(ctx, op); err != nil {
			return err
		}
	}

	if err := g.write(ctx, op, func() error {
		return g.repo.Delete(ctx, target.ID)
	}); err != nil {
		return err
	}

	g.sessions.IdentityRemoved(ctx, target.ID)
	g.record(ctx, "User deleted: "+target.Username, actor.Username)
	g.log.Info().Str("operation", op).Str("identity_id", target.ID).Str("actor_id", actor.ID).Msg("identity deleted")
	return nil
}

// EditProfile changes username and/or email. Empty values keep the
// current ones.
func (g *Gateway) EditProfile(ctx context.Context, actor *domain.Identity, targetID, username, email string) (err error) {
	const op = "edit_profile"
	defer func() { observe(op, err) }()

	actor, target, err := g.resolve(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if !policy.CanEditProfile(actor, target) {
		return deny(op)
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = target.Username
	}
	email = normalizeEmail(email)
	if email == "" {
		email = target.Email
	}
	if username == target.Username && email == target.Email {
		return nil
	}
	if err := g.ensureUnique(ctx, target.ID, username, email); err != nil {
		return err
	}

	if err := g.write(ctx, op, func() error {
		return g.repo.UpdateProfile(ctx, target.ID, username, email)
	}); err != nil {
		return err
	}

	oldUsername := target.Username
	target.Username = username
	target.Email = email
	target.UpdatedAt = g.now()
	g.sessions.IdentityChanged(ctx, target)

	g.record(ctx, fmt.Sprintf("User info changed for %s → %s", oldUsername, username), actor.Username)
	g.log.Info().Str("operation", op).Str("identity_id", target.ID).Str("actor_id", actor.ID).Msg("profile changed")
	return nil
}

// ResetPassword sets target's password without knowing the current one.
func (g *Gateway) ResetPassword(ctx context.Context, actor *domain.Identity, targetID, newPassword string) (err error) {
	const op = "reset_password"
	defer func() { observe(op, err) }()

	actor, target, err := g.resolve(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if !policy.CanResetPassword(actor, target) {
		return deny(op)
	}
	if len(newPassword) < domain.MinPasswordLength {
		return errPasswordTooShort
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := g.write(ctx, op, func() error {
		return g.repo.UpdatePasswordHash(ctx, target.ID, hash)
	}); err != nil {
		return err
	}

	g.record(ctx, "Password reset for "+target.Username, actor.Username)
	g.log.Info().Str("operation", op).Str("identity_id", target.ID).Str("actor_id", actor.ID).Msg("password reset")
	return nil
}

// ChangeOwnPassword requires the current password. Root cannot use it.
func (g *Gateway) ChangeOwnPassword(ctx context.Context, actor *domain.Identity, current, next string) (err error) {
	const op = "change_password"
	defer func() { observe(op, err) }()

	actor, err = g.reload(ctx, actor)
	if err != nil {
		return err
	}
	if !policy.CanChangeOwnPassword(actor) {
		return deny(op)
	}
	if !checkPassword(actor.PasswordHash, current) {
		return domain.ErrInvalidCredentials
	}
	if len(next) < domain.MinPasswordLength {
		return errPasswordTooShort
	}

	hash, err := hashPassword(next)
	if err != nil {
		return err
	}
	if err := g.write(ctx, op, func() error {
		return g.repo.UpdatePasswordHash(ctx, actor.ID, hash)
	}); err != nil {
		return err
	}

	g.record(ctx, "Password changed for "+actor.Username, actor.Username)
	g.log.Info().Str("operation", op).Str("identity_id", actor.ID).Msg("password changed")
	return nil
}

// UpdateAvatar sets the actor's own avatar URL. An empty URL clears it.
func (g *Gateway) UpdateAvatar(ctx context.Context, actor *domain.Identity, avatarURL string) (err error) {
	const op = "update_avatar"
	defer func() { observe(op, err) }()

	actor, err = g.reload(ctx, actor)
	if err != nil {
		return err
	}
	if !policy.CanUpdateAvatar(actor) {
		return deny(op)
	}

	avatarURL = strings.TrimSpace(avatarURL)
	if err := g.write(ctx, op, func() error {
		return g.repo.UpdateAvatar(ctx, actor.ID, avatarURL)
	}); err != nil {
		return err
	}

	actor.AvatarURL = avatarURL
	actor.UpdatedAt = g.now()
	g.sessions.IdentityChanged(ctx, actor)

	g.record(ctx, "Avatar updated for "+actor.Username, actor.Username)
	return nil
}

var errPasswordTooShort = fmt.Errorf("%w: password must be at least %d characters", domain.ErrInvalidInput, domain.MinPasswordLength)

// reload replaces the caller-supplied actor with the stored one, so a
// stale session snapshot never grants more than the identity now has.
func (g *Gateway) reload(ctx context.Context, actor *domain.Identity) (*domain.Identity, error) {
	if actor == nil {
		return nil, domain.ErrForbidden
	}
	fresh, err := g.repo.FindByID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrForbidden
		}
		return nil, fmt.Errorf("load actor: %w", err)
	}
	if fresh.Banned {
		return nil, domain.ErrForbidden
	}
	return fresh, nil
}

func (g *Gateway) resolve(ctx context.Context, actor *domain.Identity, targetID string) (*domain.Identity, *domain.Identity, error) {
	actor, err := g.reload(ctx, actor)
	if err != nil {
		return nil, nil, err
	}
	target, err := g.repo.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("load target: %w", err)
	}
	return actor, target, nil
}

func (g *Gateway) guardLastOwner(ctx context.Context, op string) error {
	owners, err := g.repo.CountByRole(ctx, domain.RoleOwner)
	if err != nil {
		return fmt.Errorf("%s: count owners: %w", op, err)
	}
	if owners <= 1 {
		g.log.Info().Str("operation", op).Msg("last owner guard refused mutation")
		return deny(op)
	}
	return nil
}

// ensureUnique fails with ErrConflict when another identity than selfID
// already holds username or email.
func (g *Gateway) ensureUnique(ctx context.Context, selfID, username, email string) error {
	if existing, err := g.repo.FindByUsername(ctx, username); err == nil {
		if existing.ID != selfID {
			return fmt.Errorf("%w: username already taken", domain.ErrConflict)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check username: %w", err)
	}

	if existing, err := g.repo.FindByEmail(ctx, email); err == nil {
		if existing.ID != selfID {
			return fmt.Errorf("%w: email already registered", domain.ErrConflict)
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}

// write applies fn unless ctx is already done, then invalidates the
// directory. Writes are never retried.
func (g *Gateway) write(ctx context.Context, op string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	g.directory.Invalidate()
	return nil
}

// record appends an audit entry. A failed append is logged, not returned.
func (g *Gateway) record(ctx context.Context, action, performedBy string) {
	if _, err := g.audit.Record(ctx, action, performedBy); err != nil {
		g.log.Warn().Err(err).Str("action", action).Msg("failed to append audit entry")
	}
}

func deny(op string) error {
	metrics.PolicyDenialsTotal.WithLabelValues(op).Inc()
	return domain.ErrForbidden
}

func observe(op string, err error) {
	metrics.MutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid"
	default:
		return "error"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
