package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/ports"
	"github.com/botforge/storefront-admin/pkg/logger"
)

// Context keys set by Auth and read by handlers.
const (
	KeySession  = "session"
	KeyIdentity = "identity"
	KeyClientID = "client_id"
)

var (
	errMissingHeader = echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
	errBadHeader     = echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	errStaleSession  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
)

// Auth resolves the bearer token to a live session and injects the session,
// its bound identity and its client id into the context.
func Auth(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if err := bind(c, sessions); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuth binds the session like Auth when the request carries a valid
// bearer token and lets anonymous or stale callers through unbound. Login
// uses it so a client id can only be reused by the client that holds it.
func OptionalAuth(sessions ports.SessionService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := bind(c, sessions)
			switch {
			case err == nil,
				errors.Is(err, errMissingHeader),
				errors.Is(err, errBadHeader),
				errors.Is(err, errStaleSession):
				return next(c)
			default:
				return err
			}
		}
	}
}

func bind(c echo.Context, sessions ports.SessionService) error {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return errMissingHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return errBadHeader
	}

	ctx := c.Request().Context()
	session, err := sessions.Resume(ctx, strings.TrimSpace(parts[1]))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return errStaleSession
		}
		return err
	}

	c.Set(KeySession, session)
	c.Set(KeyIdentity, session.Identity)
	c.Set(KeyClientID, session.ClientID)

	fields := map[string]string{"client_id": session.ClientID}
	if session.Identity != nil {
		fields["identity_id"] = session.Identity.ID
	}
	c.SetRequest(c.Request().WithContext(logger.WithFields(ctx, fields)))
	return nil
}
