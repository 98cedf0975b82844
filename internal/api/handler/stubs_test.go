package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/botforge/storefront-admin/internal/api/middleware"
	"github.com/botforge/storefront-admin/internal/core/domain"
)

type stubSessions struct {
	loginFn   func(ctx context.Context, clientID string, creds domain.Credentials) (*domain.Session, error)
	current   map[string]*domain.Identity
	loggedOut []string
}

func (s *stubSessions) Login(ctx context.Context, clientID string, creds domain.Credentials) (*domain.Session, error) {
	return s.loginFn(ctx, clientID, creds)
}

func (s *stubSessions) Logout(_ context.Context, clientID string) {
	s.loggedOut = append(s.loggedOut, clientID)
	delete(s.current, clientID)
}

func (s *stubSessions) CurrentIdentity(clientID string) (*domain.Identity, bool) {
	identity, ok := s.current[clientID]
	return identity, ok
}

func (s *stubSessions) OnChange(func(domain.SessionChange)) func() { return func() {} }

func (s *stubSessions) Resume(context.Context, string) (*domain.Session, error) {
	return nil, domain.ErrUnauthenticated
}

// stubGateway records the last call and returns err.
type stubGateway struct {
	err      error
	calls    []string
	targetID string
	role     domain.Role
	args     []string
	register domain.RegisterInput
}

func (g *stubGateway) Register(_ context.Context, in domain.RegisterInput) (*domain.Identity, error) {
	g.calls = append(g.calls, "register")
	g.register = in
	if g.err != nil {
		return nil, g.err
	}
	// Mirrors the gateway's normalization of the stored username.
	return &domain.Identity{ID: "new", Username: strings.TrimSpace(in.Username), Email: in.Email, Role: domain.RoleUser}, nil
}

func (g *stubGateway) ChangeRole(_ context.Context, _ *domain.Identity, targetID string, role domain.Role) error {
	g.calls = append(g.calls, "change_role")
	g.targetID, g.role = targetID, role
	return g.err
}

func (g *stubGateway) Ban(_ context.Context, _ *domain.Identity, targetID string) error {
	g.calls = append(g.calls, "ban")
	g.targetID = targetID
	return g.err
}

func (g *stubGateway) Unban(_ context.Context, _ *domain.Identity, targetID string) error {
	g.calls = append(g.calls, "unban")
	g.targetID = targetID
	return g.err
}

func (g *stubGateway) DeleteIdentity(_ context.Context, _ *domain.Identity, targetID string) error {
	g.calls = append(g.calls, "delete")
	g.targetID = targetID
	return g.err
}

func (g *stubGateway) EditProfile(_ context.Context, _ *domain.Identity, targetID, username, email string) error {
	g.calls = append(g.calls, "edit_profile")
	g.targetID, g.args = targetID, []string{username, email}
	return g.err
}

func (g *stubGateway) ResetPassword(_ context.Context, _ *domain.Identity, targetID, password string) error {
	g.calls = append(g.calls, "reset_password")
	g.targetID, g.args = targetID, []string{password}
	return g.err
}

func (g *stubGateway) ChangeOwnPassword(_ context.Context, _ *domain.Identity, current, next string) error {
	g.calls = append(g.calls, "change_password")
	g.args = []string{current, next}
	return g.err
}

func (g *stubGateway) UpdateAvatar(_ context.Context, _ *domain.Identity, url string) error {
	g.calls = append(g.calls, "update_avatar")
	g.args = []string{url}
	return g.err
}

type stubDirectory struct {
	users []*domain.Identity
	err   error
}

func (d *stubDirectory) ListAll(context.Context, *domain.Identity) ([]*domain.Identity, error) {
	return d.users, d.err
}

func (d *stubDirectory) Invalidate() {}

type stubAudit struct {
	entries []domain.AuditEntry
}

func (a *stubAudit) Record(_ context.Context, action, performedBy string) (domain.AuditEntry, error) {
	entry := domain.AuditEntry{Action: action, PerformedBy: performedBy}
	a.entries = append([]domain.AuditEntry{entry}, a.entries...)
	return entry, nil
}

func (a *stubAudit) Recent(context.Context) ([]domain.AuditEntry, error) {
	return a.entries, nil
}

// newContext builds an echo context with the validator installed and, when
// actor is non-nil, the values the Auth middleware would have set.
func newContext(t *testing.T, method, target string, body io.Reader, actor *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewValidator()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if actor != nil {
		c.Set(middleware.KeyIdentity, actor)
		c.Set(middleware.KeyClientID, "client-1")
	}
	return c, rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T (%v)", err, err)
	}
	return he.Code
}
