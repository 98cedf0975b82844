package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/botforge/storefront-admin/internal/core/ports"
)

// AccountHandler serves the self-service settings of a signed-in identity.
type AccountHandler struct {
	gateway ports.MutationGateway
}

func NewAccountHandler(gateway ports.MutationGateway) *AccountHandler {
	return &AccountHandler{gateway: gateway}
}

// ChangePassword handles PUT /v1/me/password.
//
// @Summary      Change own password
// @Tags         account
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  changePasswordRequest  true  "Current and new password"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/me/password [put]
func (h *AccountHandler) ChangePassword(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.gateway.ChangeOwnPassword(c.Request().Context(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateAvatar handles PUT /v1/me/avatar. The image itself lives in object
// storage; only its URL is recorded.
//
// @Summary      Update own avatar URL
// @Tags         account
// @Accept       json
// @Security     BearerAuth
// @Param        body  body  avatarRequest  true  "Avatar URL, empty to clear"
// @Success      204
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/me/avatar [put]
func (h *AccountHandler) UpdateAvatar(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req avatarRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.gateway.UpdateAvatar(c.Request().Context(), actor, req.AvatarURL); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
