package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/ports"
	"github.com/botforge/storefront-admin/internal/pkg/metrics"
)

const defaultSessionTTL = 24 * time.Hour

// SessionStore is the single source of truth for which identity is using
// each client context. Bound sessions live in memory so CurrentIdentity
// never blocks; every session is also persisted so it survives a restart.
type SessionStore struct {
	identities ports.IdentityRepository
	repo       ports.SessionRepository
	notifier   ports.ChangeNotifier
	tokens     *TokenIssuer
	ttl        time.Duration
	log        zerolog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*domain.Session // by client id
}

func NewSessionStore(
	identities ports.IdentityRepository,
	repo ports.SessionRepository,
	notifier ports.ChangeNotifier,
	tokens *TokenIssuer,
	ttl time.Duration,
	log zerolog.Logger,
) *SessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionStore{
		identities: identities,
		repo:       repo,
		notifier:   notifier,
		tokens:     tokens,
		ttl:        ttl,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		sessions:   make(map[string]*domain.Session),
	}
}

// Login verifies creds and binds a fresh session to clientID, replacing any
// session the client already had. An empty clientID gets a generated one.
func (s *SessionStore) Login(ctx context.Context, clientID string, creds domain.Credentials) (*domain.Session, error) {
	username := strings.TrimSpace(creds.Username)
	if username == "" || creds.Password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	identity, err := s.identities.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domain.ErrInvalidCredentials
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if !checkPassword(identity.PasswordHash, creds.Password) {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if identity.Banned {
		metrics.LoginsTotal.WithLabelValues("banned").Inc()
		s.log.Info().Str("identity_id", identity.ID).Msg("banned identity attempted login")
		return nil, domain.ErrAccountBanned
	}

	if clientID == "" {
		clientID = uuid.NewString()
	}
	now := s.now()
	session := &domain.Session{
		ClientID:  clientID,
		ID:        uuid.NewString(),
		Identity:  publicIdentity(identity),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	token, err := s.tokens.Issue(session)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	session.Token = token

	if err := s.repo.Save(ctx, session); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: persist session: %w", err)
	}

	s.mu.Lock()
	s.sessions[clientID] = session
	s.mu.Unlock()
	s.updateGauge()

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	s.log.Info().Str("identity_id", identity.ID).Str("client_id", clientID).Msg("session bound")
	s.publish(clientID, session.Identity, domain.ChangeLogin)

	return session.Clone(), nil
}

// Logout clears the client's session. Revoking the persisted record is
// best-effort; the local binding is always gone afterwards.
func (s *SessionStore) Logout(ctx context.Context, clientID string) {
	s.mu.Lock()
	delete(s.sessions, clientID)
	s.mu.Unlock()
	s.updateGauge()

	if err := s.repo.Delete(ctx, clientID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.log.Warn().Err(err).Str("client_id", clientID).Msg("session revocation failed")
	}

	s.publish(clientID, nil, domain.ChangeLogout)
}

// CurrentIdentity reads the identity bound to clientID from memory.
func (s *SessionStore) CurrentIdentity(clientID string) (*domain.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[clientID]
	if !ok || session.Expired(s.now()) {
		return nil, false
	}
	return session.Identity.Clone(), true
}

// OnChange registers fn for every change to any client's bound identity.
func (s *SessionStore) OnChange(fn func(domain.SessionChange)) func() {
	return s.notifier.Subscribe(fn)
}

// Resume validates token and returns the live session it belongs to,
// restoring it from the persisted store after a restart.
func (s *SessionStore) Resume(ctx context.Context, token string) (*domain.Session, error) {
	now := s.now()
	claims, err := s.tokens.Parse(token, now)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	session := s.sessions[claims.ClientID]
	s.mu.RUnlock()

	restored := false
	if session == nil {
		stored, err := s.repo.Get(ctx, claims.ClientID)
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return nil, domain.ErrUnauthenticated
			}
			return nil, fmt.Errorf("resume session: %w", err)
		}
		session = stored
		restored = true
	}

	// A re-login on the same client replaced the session this token names.
	if session.ID != claims.ID {
		return nil, domain.ErrUnauthenticated
	}
	if session.Expired(now) {
		s.clear(ctx, claims.ClientID, domain.ChangeExpired)
		return nil, domain.ErrUnauthenticated
	}

	if restored {
		s.mu.Lock()
		if _, taken := s.sessions[claims.ClientID]; !taken {
			s.sessions[claims.ClientID] = session
		}
		s.mu.Unlock()
		s.updateGauge()
	}

	return session.Clone(), nil
}

// IdentityChanged pushes a mutated identity into every session bound to
// it. A banned identity loses its sessions.
func (s *SessionStore) IdentityChanged(ctx context.Context, identity *domain.Identity) {
	if identity == nil {
		return
	}
	for _, clientID := range s.clientsFor(ctx, identity.ID) {
		if identity.Banned {
			s.clear(ctx, clientID, domain.ChangeBanned)
			continue
		}
		s.refresh(ctx, clientID, identity)
	}
}

// IdentityRemoved drops every session bound to identityID.
func (s *SessionStore) IdentityRemoved(ctx context.Context, identityID string) {
	for _, clientID := range s.clientsFor(ctx, identityID) {
		s.clear(ctx, clientID, domain.ChangeDeleted)
	}
}

func (s *SessionStore) refresh(ctx context.Context, clientID string, identity *domain.Identity) {
	updated := publicIdentity(identity)

	s.mu.Lock()
	session, ok := s.sessions[clientID]
	if ok && session.Identity != nil && session.Identity.ID == identity.ID {
		session.Identity = updated
		session = session.Clone()
	} else {
		session = nil
	}
	s.mu.Unlock()

	if session == nil {
		stored, err := s.repo.Get(ctx, clientID)
		if err != nil {
			if !errors.Is(err, domain.ErrSessionNotFound) {
				s.log.Warn().Err(err).Str("client_id", clientID).Msg("load session for refresh failed")
			}
			return
		}
		if stored.Identity == nil || stored.Identity.ID != identity.ID {
			return
		}
		stored.Identity = updated
		session = stored
	}

	if err := s.repo.Save(ctx, session); err != nil {
		s.log.Warn().Err(err).Str("client_id", clientID).Msg("persist refreshed session failed")
	}
	s.publish(clientID, updated, domain.ChangeUpdated)
}

func (s *SessionStore) clear(ctx context.Context, clientID string, reason domain.ChangeReason) {
	s.mu.Lock()
	delete(s.sessions, clientID)
	s.mu.Unlock()
	s.updateGauge()

	if err := s.repo.Delete(ctx, clientID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		s.log.Warn().Err(err).Str("client_id", clientID).Str("reason", string(reason)).Msg("session revocation failed")
	}
	s.publish(clientID, nil, reason)
}

// clientsFor merges in-memory bindings with the persisted index.
func (s *SessionStore) clientsFor(ctx context.Context, identityID string) []string {
	seen := make(map[string]struct{})
	var out []string

	s.mu.RLock()
	for clientID, session := range s.sessions {
		if session.Identity != nil && session.Identity.ID == identityID {
			seen[clientID] = struct{}{}
			out = append(out, clientID)
		}
	}
	s.mu.RUnlock()

	persisted, err := s.repo.ClientsFor(ctx, identityID)
	if err != nil {
		s.log.Warn().Err(err).Str("identity_id", identityID).Msg("list persisted sessions failed")
	}
	for _, clientID := range persisted {
		if _, dup := seen[clientID]; dup {
			continue
		}
		seen[clientID] = struct{}{}
		out = append(out, clientID)
	}
	return out
}

func (s *SessionStore) publish(clientID string, identity *domain.Identity, reason domain.ChangeReason) {
	s.notifier.Publish(domain.SessionChange{
		ClientID: clientID,
		Identity: identity.Clone(),
		Reason:   reason,
		At:       s.now(),
	})
}

func (s *SessionStore) updateGauge() {
	s.mu.RLock()
	n := len(s.sessions)
	s.mu.RUnlock()
	metrics.ActiveSessions.Set(float64(n))
}

// publicIdentity copies identity without its password hash.
func publicIdentity(identity *domain.Identity) *domain.Identity {
	c := identity.Clone()
	if c != nil {
		c.PasswordHash = ""
	}
	return c
}
