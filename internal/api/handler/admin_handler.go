package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/ports"
)

// AdminHandler exposes the directory, the mutation gateway and the audit
// trail to the admin panel. Authorization is decided by the services.
type AdminHandler struct {
	directory ports.Directory
	gateway   ports.MutationGateway
	audit     ports.AuditLog
}

func NewAdminHandler(directory ports.Directory, gateway ports.MutationGateway, audit ports.AuditLog) *AdminHandler {
	return &AdminHandler{directory: directory, gateway: gateway, audit: audit}
}

// ListUsers handles GET /v1/admin/users.
//
// @Summary      List all accounts, newest first
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listUsersResponse
// @Failure      403  {object}  errorResponse
// @Failure      503  {object}  errorResponse
// @Router       /v1/admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}

	users, err := h.directory.ListAll(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listUsersResponse{Items: users, Total: len(users)})
}

// ChangeRole handles PATCH /v1/admin/users/:id/role.
//
// @Summary      Change an account's role
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string             true  "Account id"
// @Param        body  body  changeRoleRequest  true  "New role"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/role [patch]
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, _ := domain.ParseRole(req.Role)

	if err := h.gateway.ChangeRole(c.Request().Context(), actor, c.Param("id"), role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Ban handles POST /v1/admin/users/:id/ban.
//
// @Summary      Ban an account
// @Tags         admin
// @Security     BearerAuth
// @Param        id  path  string  true  "Account id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/ban [post]
func (h *AdminHandler) Ban(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.gateway.Ban(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Unban handles DELETE /v1/admin/users/:id/ban.
//
// @Summary      Lift a ban
// @Tags         admin
// @Security     BearerAuth
// @Param        id  path  string  true  "Account id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/ban [delete]
func (h *AdminHandler) Unban(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.gateway.Unban(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// EditProfile handles PATCH /v1/admin/users/:id/profile.
//
// @Summary      Edit an account's username or email
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string              true  "Account id"
// @Param        body  body  editProfileRequest  true  "New username and/or email"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/admin/users/{id}/profile [patch]
func (h *AdminHandler) EditProfile(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req editProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.Username == "" && req.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username or email is required")
	}

	if err := h.gateway.EditProfile(c.Request().Context(), actor, c.Param("id"), req.Username, req.Email); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetPassword handles PUT /v1/admin/users/:id/password.
//
// @Summary      Set another account's password
// @Tags         admin
// @Accept       json
// @Security     BearerAuth
// @Param        id    path  string                true  "Account id"
// @Param        body  body  resetPasswordRequest  true  "New password"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id}/password [put]
func (h *AdminHandler) ResetPassword(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req resetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.gateway.ResetPassword(c.Request().Context(), actor, c.Param("id"), req.Password); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// DeleteUser handles DELETE /v1/admin/users/:id. Deleting root succeeds
// without doing anything.
//
// @Summary      Delete an account
// @Tags         admin
// @Security     BearerAuth
// @Param        id  path  string  true  "Account id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.gateway.DeleteIdentity(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Audit handles GET /v1/admin/audit. The route is mounted behind the
// audit-read policy.
//
// @Summary      Recent audit entries, newest first
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  auditResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/admin/audit [get]
func (h *AdminHandler) Audit(c echo.Context) error {
	entries, err := h.audit.Recent(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, auditResponse{Items: entries})
}
