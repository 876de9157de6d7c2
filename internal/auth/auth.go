// Package auth проверяет access-токены и кладёт пользователя в контекст запроса.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/config"
	"storefront/internal/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin открывает доступ к административным маршрутам
const RoleAdmin = "admin"

// User описывает аутентифицированного пользователя
type User struct {
	ID   uuid.UUID
	Role string
}

// IsAdmin сообщает, является ли пользователь администратором
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Claims содержит поля access-токена
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserLookup находит пользователя по id. Возвращает nil, nil, если пользователя нет.
type UserLookup interface {
	LookupUser(ctx context.Context, id uuid.UUID) (*User, error)
}

// Authenticator проверяет HMAC-токены из заголовка Authorization или cookie
type Authenticator struct {
	secret     []byte
	cookieName string
	lookup     UserLookup
	log        *logger.Logger
}

// NewAuthenticator создает проверку токенов. lookup может быть nil, тогда роль берётся из токена.
func NewAuthenticator(cfg *config.AuthConfig, lookup UserLookup, log *logger.Logger) *Authenticator {
	return &Authenticator{
		secret:     []byte(cfg.AccessTokenSecret),
		cookieName: cfg.CookieName,
		lookup:     lookup,
		log:        log,
	}
}

type contextKey struct{}

// WithUser возвращает контекст с пользователем
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// UserFromContext достает пользователя из контекста
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(contextKey{}).(*User)
	return user, ok && user != nil
}

// Middleware пропускает запрос только с валидным токеном
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := a.extractToken(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Unauthorized - No access token provided")
			return
		}

		user, err := a.Verify(raw)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeError(w, http.StatusUnauthorized, "Unauthorized - Access token expired")
				return
			}
			a.log.WithError(err).Debug("Access token rejected")
			writeError(w, http.StatusUnauthorized, "Unauthorized - Invalid access token")
			return
		}

		if a.lookup != nil {
			stored, err := a.lookup.LookupUser(r.Context(), user.ID)
			if err != nil {
				a.log.WithError(err).WithField("user_id", user.ID).Error("Failed to load user")
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			if stored == nil {
				writeError(w, http.StatusUnauthorized, "User not found")
				return
			}
			user = stored
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Verify проверяет подпись и срок токена и возвращает пользователя из claims
func (a *Authenticator) Verify(raw string) (*User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, errors.Join(jwt.ErrTokenInvalidClaims, err)
	}

	return &User{ID: id, Role: claims.Role}, nil
}

func (a *Authenticator) extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	if a.cookieName != "" {
		if c, err := r.Cookie(a.cookieName); err == nil {
			return c.Value
		}
	}
	return ""
}

// RequireAdmin пропускает только администраторов. Ставится после Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized - No access token provided")
			return
		}
		if !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Access Denied - Admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
