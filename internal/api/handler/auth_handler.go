package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/ports"
)

type AuthHandler struct {
	sessions ports.SessionService
	gateway  ports.MutationGateway
}

func NewAuthHandler(sessions ports.SessionService, gateway ports.MutationGateway) *AuthHandler {
	return &AuthHandler{sessions: sessions, gateway: gateway}
}

// Register creates a user account and signs it in on the calling client.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Account details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	created, err := h.gateway.Register(ctx, domain.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		DiscordID: req.DiscordID,
	})
	if err != nil {
		return err
	}

	// The stored username is normalized; sign in with it, not the raw input.
	session, err := h.sessions.Login(ctx, callerClientID(c), domain.Credentials{Username: created.Username, Password: req.Password})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSessionResponse(session))
}

// Login authenticates an account and binds it to the calling client,
// replacing any session that client already had.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  sessionResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.sessions.Login(c.Request().Context(), callerClientID(c), domain.Credentials{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSessionResponse(session))
}

// Logout clears the calling client's session.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401   {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	clientID, err := ctxClientID(c)
	if err != nil {
		return err
	}
	h.sessions.Logout(c.Request().Context(), clientID)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the identity currently bound to the calling client.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200   {object}  domain.Identity
// @Failure      401   {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	clientID, err := ctxClientID(c)
	if err != nil {
		return err
	}
	identity, ok := h.sessions.CurrentIdentity(clientID)
	if !ok {
		return domain.ErrUnauthenticated
	}
	return c.JSON(http.StatusOK, identity)
}
