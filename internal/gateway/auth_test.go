package gateway

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MichalKokolus/chatbot-advisor/internal/security"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func authTestHandler(cfg AuthConfig, limiter *security.RateLimiter) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return authMiddleware(cfg, limiter, testLogger())(ok)
}

func TestAuthMiddleware_Bearer(t *testing.T) {
	t.Parallel()
	h := authTestHandler(AuthConfig{BearerToken: "secret-token"}, nil)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer secret-token", http.StatusOK},
		{"wrong token", "Bearer wrong", http.StatusUnauthorized},
		{"wrong scheme", "Token secret-token", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"token as prefix", "Bearer secret-token-extended", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAuthMiddleware_Basic(t *testing.T) {
	t.Parallel()
	h := authTestHandler(AuthConfig{BasicUser: "admin", BasicPass: "hunter2"}, nil)

	cases := []struct {
		name       string
		user, pass string
		want       int
	}{
		{"valid credentials", "admin", "hunter2", http.StatusOK},
		{"wrong password", "admin", "wrong", http.StatusUnauthorized},
		{"wrong user", "root", "hunter2", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			req.SetBasicAuth(tc.user, tc.pass)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Errorf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestAuthMiddleware_BearerPreferredOverBasic(t *testing.T) {
	t.Parallel()
	h := authTestHandler(AuthConfig{
		BearerToken: "secret-token",
		BasicUser:   "admin",
		BasicPass:   "hunter2",
	}, nil)

	// A valid basic header still works when both methods are configured.
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.SetBasicAuth("admin", "hunter2")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("basic auth status = %d, want 200", rec.Code)
	}
}

func TestAuthMiddleware_RateLimited(t *testing.T) {
	t.Parallel()
	limiter := security.NewRateLimiter(security.RateLimitConfig{MessagesPerMin: 2})
	h := authTestHandler(AuthConfig{BearerToken: "secret-token"}, limiter)

	// Failed attempts consume the shared bucket too.
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/status", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status = %d, want 401", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after bucket exhaustion", rec.Code)
	}
}

func TestAuthConfig_IsConfigured(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  AuthConfig
		want bool
	}{
		{"empty", AuthConfig{}, false},
		{"bearer only", AuthConfig{BearerToken: "t"}, true},
		{"basic pair", AuthConfig{BasicUser: "u", BasicPass: "p"}, true},
		{"basic user without pass", AuthConfig{BasicUser: "u"}, false},
	}
	for _, tc := range cases {
		if got := tc.cfg.IsConfigured(); got != tc.want {
			t.Errorf("%s: IsConfigured() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestConstantTimeEqual(t *testing.T) {
	t.Parallel()
	if !constantTimeEqual("abc", "abc") {
		t.Error("equal strings compared unequal")
	}
	if constantTimeEqual("abc", "abd") || constantTimeEqual("abc", "abcd") || constantTimeEqual("abc", "") {
		t.Error("unequal strings compared equal")
	}
}
