package domain

import "time"

// Session binds one client context to an authenticated identity.
type Session struct {
	ClientID  string    `json:"client_id"`
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Identity  *Identity `json:"identity"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Clone deep-copies the session including its identity snapshot.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Identity = s.Identity.Clone()
	return &c
}

// ChangeReason says why a client's bound identity changed.
type ChangeReason string

const (
	ChangeLogin   ChangeReason = "login"
	ChangeLogout  ChangeReason = "logout"
	ChangeUpdated ChangeReason = "updated"
	ChangeBanned  ChangeReason = "banned"
	ChangeDeleted ChangeReason = "deleted"
	ChangeExpired ChangeReason = "expired"
)

// SessionChange is delivered to OnChange subscribers. Identity is nil when
// the client no longer has a session.
type SessionChange struct {
	ClientID string
	Identity *Identity
	Reason   ChangeReason
	At       time.Time
}
