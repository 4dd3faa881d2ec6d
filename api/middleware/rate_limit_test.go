package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/giftledger-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/giftledger-backend/pkg/errors"
)

type fakeLimiter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: map[string]int64{}}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func loginRequest(email, ip string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"`+email+`","password":"secret1"}`))
	req.RemoteAddr = ip + ":5678"
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestRateLimitPassesBodyThrough(t *testing.T) {
	policy := LoginRateLimitPolicy(config.RateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 2, LoginEmailLimit: 2})
	handler := RateLimit(policy, newFakeLimiter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"email":"tester@example.com"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("tester@example.com", "1.2.3.4"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimitEmailCounterIgnoresCase(t *testing.T) {
	policy := LoginRateLimitPolicy(config.RateLimitConfig{LoginWindow: time.Minute, LoginEmailLimit: 2})
	handler := RateLimit(policy, newFakeLimiter(), nil)(okHandler())

	emails := []string{"Blocked@Example.com", "blocked@example.com", " BLOCKED@example.com"}
	for i, email := range emails {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(email, "10.0.0."+string(rune('1'+i))))
		if i < 2 {
			assert.Equal(t, http.StatusOK, rec.Code)
			continue
		}
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)
	}
}

func TestRateLimitIPCounter(t *testing.T) {
	policy := LoginRateLimitPolicy(config.RateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1})
	handler := RateLimit(policy, newFakeLimiter(), nil)(okHandler())

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, loginRequest("a@example.com", "5.6.7.8"))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	req := loginRequest("b@example.com", "9.9.9.9")
	req.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
	handler.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestRateLimitStoreFailureIsDependencyError(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	policy := LoginRateLimitPolicy(config.RateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1})
	rec := httptest.NewRecorder()
	RateLimit(policy, limiter, nil)(okHandler()).ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitDisabledPolicy(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("never called")
	rec := httptest.NewRecorder()
	RateLimit(LoginRateLimitPolicy(config.RateLimitConfig{}), limiter, nil)(okHandler()).ServeHTTP(rec, loginRequest("a@example.com", "1.1.1.1"))
	assert.Equal(t, http.StatusOK, rec.Code)
}
