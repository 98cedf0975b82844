package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/internal/core/policy"
)

// RequirePolicy lets the request through only when check allows the
// identity injected by Auth. Role rules stay in the policy package.
func RequirePolicy(check policy.Check) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, _ := c.Get(KeyIdentity).(*domain.Identity)
			if !check(identity) {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
