package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/botforge/storefront-admin/internal/core/domain"
	"github.com/botforge/storefront-admin/pkg/logger"
)

func TestHTTPErrorHandler_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"invalid input", fmt.Errorf("%w: password too short", domain.ErrInvalidInput), http.StatusBadRequest},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized},
		{"banned", domain.ErrAccountBanned, http.StatusForbidden},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("load target: %w", domain.ErrNotFound), http.StatusNotFound},
		{"conflict", fmt.Errorf("register: %w", domain.ErrConflict), http.StatusConflict},
		{"unavailable", fmt.Errorf("list: %w", domain.ErrUnavailable), http.StatusServiceUnavailable},
		{"echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid payload"), http.StatusBadRequest},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	e := echo.New()
	handler := NewHTTPErrorHandler(zerolog.Nop())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handler(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body errorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body.Error == "" {
				t.Fatal("expected an error message")
			}
			if tc.code == http.StatusInternalServerError && body.Error != "internal server error" {
				t.Fatalf("internal details leaked: %q", body.Error)
			}
		})
	}
}

func TestHTTPErrorHandler_LogsWithRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	scoped := zerolog.New(&buf).With().Str("client_id", "c1").Logger()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.Into(req.Context(), scoped))
	c := e.NewContext(req, httptest.NewRecorder())

	NewHTTPErrorHandler(zerolog.Nop())(errors.New("boom"), c)

	if !strings.Contains(buf.String(), `"client_id":"c1"`) || !strings.Contains(buf.String(), "unhandled error") {
		t.Fatalf("expected the request logger to record the failure, got %q", buf.String())
	}
}
