package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/pkg/logger"
)

type stubSessions struct {
	resumeFn func(ctx context.Context, token string) (*domain.Session, error)
}

func (s *stubSessions) Login(context.Context, string, domain.Credentials) (*domain.Session, error) {
	return nil, errors.New("not implemented")
}

func (s *stubSessions) Logout(context.Context, string) {}

func (s *stubSessions) CurrentIdentity(string) (*domain.Identity, bool) { return nil, false }

func (s *stubSessions) OnChange(func(domain.SessionChange)) func() { return func() {} }

func (s *stubSessions) Resume(ctx context.Context, token string) (*domain.Session, error) {
	return s.resumeFn(ctx, token)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	stub := &stubSessions{
		resumeFn: func(_ context.Context, token string) (*domain.Session, error) {
			if token != "good-token" {
				t.Fatalf("unexpected token %q", token)
			}
			return &domain.Session{
				ClientID: "client_1",
				ID:       "sid",
				Identity: &domain.Identity{ID: "u1", Username: "alice", Role: domain.RoleManager},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	mw := Auth(stub)
	handler := mw(func(c echo.Context) error {
		called = true
		identity, ok := c.Get(KeyIdentity).(*domain.Identity)
		if !ok || identity.Username != "alice" {
			t.Fatalf("identity not set")
		}
		if c.Get(KeyClientID) != "client_1" {
			t.Fatalf("client_id not set")
		}
		if _, ok := c.Get(KeySession).(*domain.Session); !ok {
			t.Fatalf("session not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	stub := &stubSessions{
		resumeFn: func(context.Context, string) (*domain.Session, error) {
			return nil, domain.ErrUnauthenticated
		},
	}

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Token abc",
		"no token":       "Bearer",
		"stale session":  "Bearer replaced-token",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			handler := Auth(stub)(func(c echo.Context) error {
				t.Fatalf("should not reach next")
				return nil
			})

			if err := handler(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestAuthMiddleware_BackendErrorPropagates(t *testing.T) {
	backendErr := errors.New("redis down")
	stub := &stubSessions{
		resumeFn: func(context.Context, string) (*domain.Session, error) {
			return nil, backendErr
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	c := e.NewContext(req, httptest.NewRecorder())

	err := Auth(stub)(func(echo.Context) error { return nil })(c)
	if !errors.Is(err, backendErr) {
		t.Fatalf("expected backend error to propagate, got %v", err)
	}
}

func TestOptionalAuth(t *testing.T) {
	stub := &stubSessions{
		resumeFn: func(_ context.Context, token string) (*domain.Session, error) {
			if token == "good-token" {
				return &domain.Session{
					ClientID: "client_1",
					ID:       "sid",
					Identity: &domain.Identity{ID: "u1", Username: "alice", Role: domain.RoleUser},
				}, nil
			}
			return nil, domain.ErrUnauthenticated
		},
	}

	cases := map[string]struct {
		header   string
		clientID any
	}{
		"anonymous":     {"", nil},
		"wrong scheme":  {"Token abc", nil},
		"stale token":   {"Bearer replaced-token", nil},
		"bound session": {"Bearer good-token", "client_1"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())

			called := false
			err := OptionalAuth(stub)(func(c echo.Context) error {
				called = true
				if got := c.Get(KeyClientID); got != tc.clientID {
					t.Fatalf("client id = %v, want %v", got, tc.clientID)
				}
				return nil
			})(c)
			if err != nil || !called {
				t.Fatalf("expected next to run, err=%v called=%v", err, called)
			}
		})
	}
}

func TestOptionalAuth_BackendErrorPropagates(t *testing.T) {
	backendErr := errors.New("redis down")
	stub := &stubSessions{
		resumeFn: func(context.Context, string) (*domain.Session, error) {
			return nil, backendErr
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Authorization", "Bearer t")
	c := echo.New().NewContext(req, httptest.NewRecorder())

	err := OptionalAuth(stub)(func(echo.Context) error {
		t.Fatal("should not reach next")
		return nil
	})(c)
	if !errors.Is(err, backendErr) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestAuthMiddleware_TagsRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	stub := &stubSessions{
		resumeFn: func(context.Context, string) (*domain.Session, error) {
			return &domain.Session{ClientID: "client_1", Identity: &domain.Identity{ID: "u1"}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer t")
	req = req.WithContext(logger.Into(req.Context(), zerolog.New(&buf)))
	c := echo.New().NewContext(req, httptest.NewRecorder())

	err := Auth(stub)(func(c echo.Context) error {
		l := logger.FromContext(c.Request().Context(), zerolog.Nop())
		l.Info().Msg("inside")
		return nil
	})(c)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `"client_id":"client_1"`) || !strings.Contains(out, `"identity_id":"u1"`) {
		t.Fatalf("request logger not tagged: %q", out)
	}
}
