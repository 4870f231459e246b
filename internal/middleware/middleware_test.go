package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestAPIAuth(t *testing.T) {
	digest := sha256.Sum256([]byte("secret"))

	hash := hex.EncodeToString(digest[:])

	tests := []struct {
		name  string
		key   string
		hash  string
		token string
		code  int
	}{
		{"nothing configured rejects", "", "", "", http.StatusUnauthorized},
		{"nothing configured rejects any token", "", "", "anything", http.StatusUnauthorized},
		{"missing token", "secret", "", "", http.StatusUnauthorized},
		{"wrong token", "secret", "", "nope", http.StatusUnauthorized},
		{"plain key", "secret", "", "secret", http.StatusOK},
		{"digest is not a password", "secret", "", hash, http.StatusUnauthorized},
		{"token matching stored hash", "", hash, "secret", http.StatusOK},
		{"stored hash itself is rejected", "", hash, hash, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.Use(APIAuth(tt.key, tt.hash))
			e.GET("/api/payments", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
			if tt.token != "" {
				req.Header.Set("Token", tt.token)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.code {
				t.Fatalf("expected %d, got %d", tt.code, rec.Code)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	e.GET("/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if len(rec.Header().Get(echo.HeaderXRequestID)) != 36 {
		t.Fatalf("expected generated uuid, got %q", rec.Header().Get(echo.HeaderXRequestID))
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Header().Get(echo.HeaderXRequestID) != "abc" {
		t.Fatalf("expected caller id to be kept, got %q", rec.Header().Get(echo.HeaderXRequestID))
	}
}
