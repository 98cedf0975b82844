package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// ── identity repository ───────────────────────────────────────────────────────

type stubIdentityRepo struct {
	mu        sync.Mutex
	byID      map[string]*domain.Identity
	listCalls int
	// listErrs is consumed one per List call before falling back to success.
	listErrs  []error
	writeErr  error
	writes    int
	listDelay time.Duration
}

func newStubIdentityRepo(identities ...*domain.Identity) *stubIdentityRepo {
	r := &stubIdentityRepo{byID: make(map[string]*domain.Identity)}
	for _, identity := range identities {
		r.byID[identity.ID] = identity.Clone()
	}
	return r
}

func (r *stubIdentityRepo) Create(_ context.Context, identity *domain.Identity) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Username == identity.Username || existing.Email == identity.Email {
			return nil, domain.ErrConflict
		}
	}
	if r.writeErr != nil {
		return nil, r.writeErr
	}
	r.writes++
	r.byID[identity.ID] = identity.Clone()
	return identity.Clone(), nil
}

func (r *stubIdentityRepo) FindByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if identity, ok := r.byID[id]; ok {
		return identity.Clone(), nil
	}
	return nil, domain.ErrNotFound
}

func (r *stubIdentityRepo) FindByUsername(_ context.Context, username string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.byID {
		if identity.Username == username {
			return identity.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubIdentityRepo) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, identity := range r.byID {
		if identity.Email == email {
			return identity.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubIdentityRepo) List(_ context.Context) ([]*domain.Identity, error) {
	if r.listDelay > 0 {
		time.Sleep(r.listDelay)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	if len(r.listErrs) > 0 {
		err := r.listErrs[0]
		r.listErrs = r.listErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([]*domain.Identity, 0, len(r.byID))
	for _, identity := range r.byID {
		out = append(out, identity.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *stubIdentityRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, identity := range r.byID {
		if identity.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *stubIdentityRepo) update(id string, fn func(*domain.Identity)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	identity, ok := r.byID[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.writes++
	fn(identity)
	return nil
}

func (r *stubIdentityRepo) UpdateRole(_ context.Context, id string, role domain.Role) error {
	return r.update(id, func(i *domain.Identity) { i.Role = role })
}

func (r *stubIdentityRepo) SetBanned(_ context.Context, id string, banned bool) error {
	return r.update(id, func(i *domain.Identity) { i.Banned = banned })
}

func (r *stubIdentityRepo) UpdateProfile(_ context.Context, id, username, email string) error {
	return r.update(id, func(i *domain.Identity) { i.Username, i.Email = username, email })
}

func (r *stubIdentityRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	return r.update(id, func(i *domain.Identity) { i.PasswordHash = hash })
}

func (r *stubIdentityRepo) UpdateAvatar(_ context.Context, id, avatarURL string) error {
	return r.update(id, func(i *domain.Identity) { i.AvatarURL = avatarURL })
}

func (r *stubIdentityRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	if _, ok := r.byID[id]; !ok {
		return domain.ErrNotFound
	}
	r.writes++
	delete(r.byID, id)
	return nil
}

func (r *stubIdentityRepo) get(id string) *domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Clone()
}

// ── session repository ────────────────────────────────────────────────────────

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	saveErr  error
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (r *stubSessionRepo) Save(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.sessions[session.ClientID] = session.Clone()
	return nil
}

func (r *stubSessionRepo) Get(_ context.Context, clientID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[clientID]; ok {
		return session.Clone(), nil
	}
	return nil, domain.ErrSessionNotFound
}

func (r *stubSessionRepo) Delete(_ context.Context, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, clientID)
	return nil
}

func (r *stubSessionRepo) ClientsFor(_ context.Context, identityID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for clientID, session := range r.sessions {
		if session.Identity != nil && session.Identity.ID == identityID {
			out = append(out, clientID)
		}
	}
	return out, nil
}

// ── notifier ──────────────────────────────────────────────────────────────────

// syncNotifier delivers changes inline and keeps a copy of each.
type syncNotifier struct {
	mu      sync.Mutex
	subs    map[int]func(domain.SessionChange)
	next    int
	changes []domain.SessionChange
}

func newSyncNotifier() *syncNotifier {
	return &syncNotifier{subs: make(map[int]func(domain.SessionChange))}
}

func (n *syncNotifier) Publish(change domain.SessionChange) {
	n.mu.Lock()
	n.changes = append(n.changes, change)
	subs := make([]func(domain.SessionChange), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()
	for _, fn := range subs {
		fn(change)
	}
}

func (n *syncNotifier) Subscribe(fn func(domain.SessionChange)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.next
	n.next++
	n.subs[id] = fn
	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

func (n *syncNotifier) reasons() []domain.ChangeReason {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.ChangeReason, len(n.changes))
	for i, c := range n.changes {
		out[i] = c.Reason
	}
	return out
}

// ── audit store ───────────────────────────────────────────────────────────────

type stubAuditStore struct {
	mu        sync.Mutex
	entries   []domain.AuditEntry // newest first
	appendErr error
}

func (s *stubAuditStore) Append(_ context.Context, entry domain.AuditEntry, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append([]domain.AuditEntry{entry}, s.entries...)
	if len(s.entries) > capacity {
		s.entries = s.entries[:capacity]
	}
	return nil
}

func (s *stubAuditStore) Recent(_ context.Context, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.entries)
	if n > limit {
		n = limit
	}
	out := make([]domain.AuditEntry, n)
	copy(out, s.entries[:n])
	return out, nil
}

// ── fixtures ──────────────────────────────────────────────────────────────────

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var (
	hashMu    sync.Mutex
	hashCache = map[string]string{}
)

// mustIdentity builds an identity whose password is "<id>-pass".
func mustIdentity(t *testing.T, id string, role domain.Role, age int) *domain.Identity {
	t.Helper()
	hashMu.Lock()
	hash, ok := hashCache[id]
	if !ok {
		var err error
		hash, err = hashPassword(id + "-pass")
		if err != nil {
			hashMu.Unlock()
			t.Fatalf("hash password: %v", err)
		}
		hashCache[id] = hash
	}
	hashMu.Unlock()
	return &domain.Identity{
		ID:           id,
		Username:     id,
		Email:        id + "@example.com",
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    baseTime.Add(time.Duration(age) * time.Minute),
		UpdatedAt:    baseTime,
	}
}
