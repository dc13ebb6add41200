package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type denyLimiter struct{ retryAfter time.Duration }

func (d denyLimiter) Allow(ctx context.Context, subject string) (bool, time.Duration, error) {
	return false, d.retryAfter, nil
}

func adminLogin(t *testing.T, env *testEnv, username, password string) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_AdminLogin(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := adminLogin(t, env, testAdminUser, testAdminPassword)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, testAdminPassword, resp.Token)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	// The session cookie alone authorizes admin routes
	req := httptest.NewRequest(http.MethodGet, "/api/admin/tasks", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAuthHandler_AdminLoginInvalidCredentials(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := adminLogin(t, env, testAdminUser, "wrong")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = adminLogin(t, env, "someone", testAdminPassword)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = adminLogin(t, env, "", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_AdminLoginRateLimited(t *testing.T) {
	env := setupTestEnv(t, denyLimiter{retryAfter: 1500 * time.Millisecond})

	w := adminLogin(t, env, testAdminUser, testAdminPassword)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.Equal(t, "2", w.Header().Get("Retry-After"))
}

func TestAuthHandler_AdminLogout(t *testing.T) {
	env := setupTestEnv(t, nil)

	w := adminLogin(t, env, testAdminUser, testAdminPassword)
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	// The cleared session no longer carries the credential
	req = httptest.NewRequest(http.MethodGet, "/api/admin/tasks", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
