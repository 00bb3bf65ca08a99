package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/paybook/internal/model"
	"github.com/mmeshcher/paybook/internal/repository"
)

type stubLoader struct {
	users map[int64]*model.User
	err   error
}

func (s *stubLoader) UserByID(_ context.Context, id int64) (*model.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("get user %d: %w", id, repository.ErrNotFound)
	}
	return u, nil
}

func newLoader(users ...*model.User) *stubLoader {
	l := &stubLoader{users: map[int64]*model.User{}}
	for _, u := range users {
		l.users[u.ID] = u
	}
	return l
}

func sessionCookie(t *testing.T, a *AuthMiddleware, userID int64) *http.Cookie {
	t.Helper()

	w := httptest.NewRecorder()
	require.NoError(t, a.SetSessionCookie(w, userID))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	return cookies[0]
}

func TestAuthMiddleware_WithValidCookie(t *testing.T) {
	alice := &model.User{ID: 42, Username: "alice", Role: model.RoleUser, Status: model.UserStatusActive}
	m := NewAuthMiddleware("test-secret", time.Hour, newLoader(alice))

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		u, ok := UserFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, int64(42), u.ID)
	})

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(sessionCookie(t, m, 42))

	w := httptest.NewRecorder()
	m.Middleware(next).ServeHTTP(w, r)

	assert.True(t, nextCalled)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	active := &model.User{ID: 1, Status: model.UserStatusActive}
	disabled := &model.User{ID: 2, Status: model.UserStatusDisabled}

	m := NewAuthMiddleware("test-secret", time.Hour, newLoader(active, disabled))
	other := NewAuthMiddleware("other-secret", time.Hour, newLoader(active))

	expired := NewAuthMiddleware("test-secret", time.Hour, newLoader(active))
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	tests := []struct {
		name   string
		cookie *http.Cookie
	}{
		{name: "no cookie"},
		{name: "garbage token", cookie: &http.Cookie{Name: sessionCookieName, Value: "not-a-jwt"}},
		{name: "foreign signature", cookie: sessionCookie(t, other, 1)},
		{name: "expired", cookie: sessionCookie(t, expired, 1)},
		{name: "unknown user", cookie: sessionCookie(t, m, 99)},
		{name: "disabled user", cookie: sessionCookie(t, m, 2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatalf("next handler should not be called")
			})

			r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}

			w := httptest.NewRecorder()
			m.Middleware(next).ServeHTTP(w, r)

			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))
		})
	}
}

func TestAuthMiddleware_LoaderError(t *testing.T) {
	m := NewAuthMiddleware("test-secret", time.Hour, &stubLoader{err: errors.New("db down")})

	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	r.AddCookie(sessionCookie(t, m, 1))

	w := httptest.NewRecorder()
	m.Middleware(http.NotFoundHandler()).ServeHTTP(w, r)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestClearSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	ClearSessionCookie(w)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookieName, cookies[0].Name)
	assert.Empty(t, cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(requestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(requestIDHeader, "fixed")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "fixed", seen)
}
