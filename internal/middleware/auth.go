// Package middleware содержит HTTP middleware сервиса учёта платежей.
package middleware

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
)

type contextKey string

const userKey contextKey = "user"

const (
	sessionCookieName = "session"
	loginPath         = "/login"
)

// ErrInvalidSession возвращается для отсутствующего, поддельного или просроченного токена сессии.
var ErrInvalidSession = errors.New("invalid session")

// UserLoader загружает пользователя сессии.
type UserLoader interface {
	UserByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthMiddleware выдаёт и проверяет сессионный JWT в HttpOnly cookie.
type AuthMiddleware struct {
	secretKey []byte
	ttl       time.Duration
	loader    UserLoader
	now       func() time.Time
}

// NewAuthMiddleware создаёт AuthMiddleware. Пустой секрет заменяется случайным ключом,
// так что сессии не переживают перезапуск процесса.
func NewAuthMiddleware(secret string, ttl time.Duration, loader UserLoader) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic(fmt.Sprintf("generate session key: %v", err))
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		ttl:       ttl,
		loader:    loader,
		now:       time.Now,
	}
}

// Middleware проверяет сессию, загружает пользователя и кладёт его в контекст запроса.
// Без действующей сессии запрос перенаправляется на страницу входа.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}

		userID, err := a.parseToken(cookie.Value)
		if err != nil {
			ClearSessionCookie(w)
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}

		u, err := a.loader.UserByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				ClearSessionCookie(w)
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		if u.IsDisabled() {
			ClearSessionCookie(w)
			http.Redirect(w, r, loginPath, http.StatusSeeOther)
			return
		}

		if meta := metaFromContext(r.Context()); meta != nil {
			meta.userID = u.ID
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// SetSessionCookie выдаёт сессию для указанного пользователя.
func (a *AuthMiddleware) SetSessionCookie(w http.ResponseWriter, userID int64) error {
	expires := a.now().Add(a.ttl)

	token, err := a.issueToken(userID, expires)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSessionCookie завершает сессию.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *AuthMiddleware) issueToken(userID int64, expires time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(a.now()),
		ExpiresAt: jwt.NewNumericDate(expires),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return token, nil
}

func (a *AuthMiddleware) parseToken(raw string) (int64, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return id, nil
}

// WithUser возвращает контекст с пользователем сессии.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext извлекает пользователя сессии из контекста запроса.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}
