package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storefront/internal/config"
	"storefront/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func newTestAuthenticator(lookup UserLookup) *Authenticator {
	return NewAuthenticator(
		&config.AuthConfig{AccessTokenSecret: testSecret, CookieName: "accessToken"},
		lookup,
		logger.New(&config.LoggerConfig{Level: "error", Format: "json"}),
	)
}

func signToken(t *testing.T, secret string, userID string, role string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatalf("user missing in context")
		}
		_, _ = w.Write([]byte(user.ID.String() + ":" + user.Role))
	})
}

type stubLookup struct {
	user *User
	err  error
}

func (s *stubLookup) LookupUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.user, s.err
}

func TestMiddleware_BearerToken(t *testing.T) {
	a := newTestAuthenticator(nil)
	userID := uuid.New()
	token := signToken(t, testSecret, userID.String(), "customer", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	a.Middleware(echoUser(t)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || rr.Body.String() != userID.String()+":customer" {
		t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_CookieToken(t *testing.T) {
	a := newTestAuthenticator(nil)
	userID := uuid.New()
	token := signToken(t, testSecret, userID.String(), "", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: token})
	rr := httptest.NewRecorder()

	a.Middleware(echoUser(t)).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestMiddleware_Rejections(t *testing.T) {
	a := newTestAuthenticator(nil)
	userID := uuid.New().String()

	tests := []struct {
		name    string
		token   string
		message string
	}{
		{name: "missing", token: "", message: "No access token provided"},
		{name: "expired", token: signToken(t, testSecret, userID, "", time.Now().Add(-time.Minute)), message: "Access token expired"},
		{name: "bad signature", token: signToken(t, "other", userID, "", time.Now().Add(time.Hour)), message: "Invalid access token"},
		{name: "bad user id", token: signToken(t, testSecret, "not-a-uuid", "", time.Now().Add(time.Hour)), message: "Invalid access token"},
		{name: "garbage", token: "abc.def.ghi", message: "Invalid access token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()

			a.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("handler must not be called")
			})).ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), tt.message) {
				t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestMiddleware_LookupOverridesRole(t *testing.T) {
	userID := uuid.New()
	a := newTestAuthenticator(&stubLookup{user: &User{ID: userID, Role: RoleAdmin}})
	token := signToken(t, testSecret, userID.String(), "customer", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	a.Middleware(RequireAdmin(echoUser(t))).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK || !strings.HasSuffix(rr.Body.String(), ":admin") {
		t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_LookupMissingUser(t *testing.T) {
	a := newTestAuthenticator(&stubLookup{})
	token := signToken(t, testSecret, uuid.New().String(), "", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	a.Middleware(echoUser(t)).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized || !strings.Contains(rr.Body.String(), "User not found") {
		t.Fatalf("unexpected response %d %s", rr.Code, rr.Body.String())
	}
}

func TestMiddleware_LookupError(t *testing.T) {
	a := newTestAuthenticator(&stubLookup{err: errors.New("db down")})
	token := signToken(t, testSecret, uuid.New().String(), "", time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()

	a.Middleware(echoUser(t)).ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	rr := httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &User{ID: uuid.New(), Role: "customer"}))
	rr = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden || !strings.Contains(rr.Body.String(), "Admin only") {
		t.Fatalf("expected 403 for customer, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), &User{ID: uuid.New(), Role: RoleAdmin}))
	rr = httptest.NewRecorder()
	RequireAdmin(next).ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected admin passthrough, got %d", rr.Code)
	}
}
