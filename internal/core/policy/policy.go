// Package policy holds every role rule of the admin core. Handlers,
// middleware and services ask these functions instead of comparing roles
// themselves.
//
// All functions are pure. A nil actor is never allowed anything, and a
// banned actor may not mutate anyone.
package policy

import "github.com/botforge/storefront-admin/internal/core/domain"

// Check is the shape accepted by the HTTP policy middleware.
type Check func(actor *domain.Identity) bool

func active(actor *domain.Identity) bool {
	return actor != nil && !actor.Banned
}

func self(actor, target *domain.Identity) bool {
	return actor.ID == target.ID
}

// CanMutateRole decides whether actor may set target's role to newRole.
func CanMutateRole(actor, target *domain.Identity, newRole domain.Role) bool {
	if !active(actor) || target == nil {
		return false
	}
	if target.IsRoot() {
		return false
	}
	if !newRole.Valid() || newRole == domain.RoleRoot {
		return false
	}
	// Only root may touch another owner.
	if actor.Role == domain.RoleOwner && target.Role == domain.RoleOwner && !self(actor, target) {
		return false
	}
	if newRole == domain.RoleOwner && actor.Role != domain.RoleRoot {
		return false
	}
	if self(actor, target) {
		return actor.Role.In(domain.RoleOwner, domain.RoleManager) && actor.Role.Outranks(newRole)
	}
	if !actor.Role.In(domain.RoleOwner, domain.RoleManager, domain.RoleRoot) {
		return false
	}
	return actor.Role.Outranks(target.Role) && actor.Role.Outranks(newRole)
}

// CanBan allows only root, never against root, never against itself.
func CanBan(actor, target *domain.Identity) bool {
	if !active(actor) || target == nil {
		return false
	}
	return actor.Role == domain.RoleRoot && !target.IsRoot() && !self(actor, target)
}

// CanUnban allows root and owners, never against root.
func CanUnban(actor, target *domain.Identity) bool {
	if !active(actor) || target == nil {
		return false
	}
	return actor.Role.In(domain.RoleRoot, domain.RoleOwner) && !target.IsRoot()
}

// CanDelete allows only root, never against root, never against itself.
func CanDelete(actor, target *domain.Identity) bool {
	if !active(actor) || target == nil {
		return false
	}
	return actor.Role == domain.RoleRoot && !target.IsRoot() && !self(actor, target)
}

// CanChangeOwnPassword is false for root: its credentials are fixed at seed time.
func CanChangeOwnPassword(actor *domain.Identity) bool {
	return active(actor) && actor.Role != domain.RoleRoot
}

// CanViewAdminPanel gates the admin surface as a whole.
func CanViewAdminPanel(actor *domain.Identity) bool {
	return active(actor) && actor.Role.In(domain.RoleDeveloper, domain.RoleManager, domain.RoleOwner, domain.RoleRoot)
}

// CanListDirectory gates the full identity listing.
func CanListDirectory(actor *domain.Identity) bool {
	return active(actor) && actor.Role.In(domain.RoleManager, domain.RoleOwner, domain.RoleRoot)
}

// CanEditProfile covers username/email edits.
func CanEditProfile(actor, target *domain.Identity) bool {
	if !active(actor) || target == nil {
		return false
	}
	if target.IsRoot() {
		return false
	}
	if self(actor, target) {
		return true
	}
	return actor.Role.In(domain.RoleOwner, domain.RoleRoot)
}

// CanResetPassword covers an administrator setting someone else's password.
func CanResetPassword(actor, target *domain.Identity) bool {
	if !active(actor) || target == nil {
		return false
	}
	if target.IsRoot() || !actor.Role.In(domain.RoleOwner, domain.RoleRoot) {
		return false
	}
	if actor.Role == domain.RoleOwner && target.Role == domain.RoleOwner && !self(actor, target) {
		return false
	}
	return true
}

// CanUpdateAvatar lets any signed-in, non-banned identity change its own avatar.
func CanUpdateAvatar(actor *domain.Identity) bool {
	return active(actor)
}

// CanReadAudit gates the audit trail. Only root reads it.
func CanReadAudit(actor *domain.Identity) bool {
	return active(actor) && actor.Role == domain.RoleRoot
}
