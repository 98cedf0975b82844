package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/botforge/storefront-admin/internal/api/middleware"
	"github.com/botforge/storefront-admin/internal/core/domain"
)

// ctxActor extracts the identity injected by the Auth middleware. A missing
// identity means the route was mounted without Auth; reject with 401.
func ctxActor(c echo.Context) (*domain.Identity, error) {
	identity, _ := c.Get(middleware.KeyIdentity).(*domain.Identity)
	if identity == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return identity, nil
}

func ctxClientID(c echo.Context) (string, error) {
	clientID, _ := c.Get(middleware.KeyClientID).(string)
	if clientID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token missing client identity")
	}
	return clientID, nil
}

// callerClientID is the client id of an already bound caller, or "" so the
// session store generates a fresh one.
func callerClientID(c echo.Context) string {
	clientID, _ := c.Get(middleware.KeyClientID).(string)
	return clientID
}

// bindAndValidate decodes the body into req and runs the echo validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
