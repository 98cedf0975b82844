package handler

import (
	"time"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type registerRequest struct {
	Username  string `json:"username"   validate:"required,max=32"`
	Email     string `json:"email"      validate:"required,email"`
	Password  string `json:"password"   validate:"required,min=6"`
	DiscordID string `json:"discord_id" validate:"required"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	Token     string           `json:"token"`
	ClientID  string           `json:"client_id"`
	ExpiresAt time.Time        `json:"expires_at"`
	User      *domain.Identity `json:"user"`
}

func toSessionResponse(s *domain.Session) sessionResponse {
	return sessionResponse{
		Token:     s.Token,
		ClientID:  s.ClientID,
		ExpiresAt: s.ExpiresAt,
		User:      s.Identity,
	}
}

// --- Account (self-service) ---

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password"     validate:"required,min=6"`
}

type avatarRequest struct {
	AvatarURL string `json:"avatar_url" validate:"omitempty,url"`
}

// --- Admin ---

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,role"`
}

type editProfileRequest struct {
	Username string `json:"username" validate:"omitempty,max=32"`
	Email    string `json:"email"    validate:"omitempty,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=6"`
}

type listUsersResponse struct {
	Items []*domain.Identity `json:"items"`
	Total int                `json:"total"`
}

type auditResponse struct {
	Items []domain.AuditEntry `json:"items"`
}
