package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/weatherdesk/internal/auth"
	"github.com/hitoshi/weatherdesk/internal/model"
)

const testBaseURL = "https://weather.example.com"

func newTestAuthHandler(provider auth.IdentityProvider, collector *recordingMetrics) *AuthHandler {
	return NewAuthHandler(provider, AuthHandlerConfig{
		BaseURL:      testBaseURL + "/",
		CookieSecure: true,
	}, collector)
}

// callbackRequest はPKCE Cookie付きのコールバックリクエストを組み立てる。
func callbackRequest(code, verifier string) *http.Request {
	target := "/auth/callback"
	if code != "" {
		target += "?code=" + code
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if verifier != "" {
		req.AddCookie(&http.Cookie{Name: auth.PKCECookieName, Value: verifier})
	}
	return req
}

func TestAuthHandler_Login_SetsVerifierAndRedirectsWithChallenge(t *testing.T) {
	var gotChallenge string
	provider := &mockProvider{
		authorizeURLFn: func(codeChallenge string) string {
			gotChallenge = codeChallenge
			return "https://auth.example.com/authorize?code_challenge=" + codeChallenge
		},
	}
	h := newTestAuthHandler(provider, nil)

	w := httptest.NewRecorder()
	h.Login(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); !strings.HasPrefix(loc, "https://auth.example.com/authorize") {
		t.Errorf("Location = %q, want provider authorize URL", loc)
	}

	cookie := findCookie(resp, auth.PKCECookieName)
	if cookie == nil {
		t.Fatal("pkce cookie should be set")
	}
	if !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("pkce cookie flags = HttpOnly:%v Secure:%v SameSite:%v", cookie.HttpOnly, cookie.Secure, cookie.SameSite)
	}
	if cookie.MaxAge != auth.PKCECookieMaxAge {
		t.Errorf("pkce cookie MaxAge = %d, want %d", cookie.MaxAge, auth.PKCECookieMaxAge)
	}
	if gotChallenge != auth.ChallengeS256(cookie.Value) {
		t.Error("authorize URL challenge should be derived from the stored verifier")
	}
}

func TestAuthHandler_Callback_Success_SetsSessionAndRedirectsHome(t *testing.T) {
	collector := &recordingMetrics{}
	provider := &mockProvider{
		exchangeCodeFn: func(ctx context.Context, code, verifier string) (*auth.TokenResult, error) {
			if code != "good-code" || verifier != "the-verifier" {
				t.Errorf("ExchangeCode(%q, %q)", code, verifier)
			}
			return &auth.TokenResult{
				AccessToken: "access-token",
				ExpiresIn:   3600,
				Identity:    model.Identity{ID: "u1", Email: "u1@example.com"},
			}, nil
		},
	}
	h := newTestAuthHandler(provider, collector)

	w := httptest.NewRecorder()
	h.Callback(w, callbackRequest("good-code", "the-verifier"))

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != testBaseURL+"/home" {
		t.Errorf("Location = %q, want %q", loc, testBaseURL+"/home")
	}

	session := findCookie(resp, auth.SessionCookieName)
	if session == nil {
		t.Fatal("session cookie should be set")
	}
	if session.Value != "access-token" || session.MaxAge != 3600 {
		t.Errorf("session cookie = %q MaxAge=%d", session.Value, session.MaxAge)
	}
	if !session.HttpOnly || !session.Secure || session.SameSite != http.SameSiteLaxMode {
		t.Error("session cookie must be HttpOnly, Secure and SameSite=Lax")
	}

	if pkce := findCookie(resp, auth.PKCECookieName); pkce == nil || pkce.MaxAge >= 0 {
		t.Error("pkce cookie should be cleared")
	}
	if len(collector.callbacks) != 1 || collector.callbacks[0] != callbackSuccess {
		t.Errorf("callbacks = %v, want [success]", collector.callbacks)
	}
}

func TestAuthHandler_Callback_Failures_RedirectToSignin(t *testing.T) {
	tests := []struct {
		name       string
		req        *http.Request
		exchangeFn func(ctx context.Context, code, verifier string) (*auth.TokenResult, error)
		wantResult string
	}{
		{
			name:       "missing code",
			req:        callbackRequest("", "v"),
			wantResult: callbackMissingCode,
		},
		{
			name:       "missing verifier",
			req:        callbackRequest("code", ""),
			wantResult: callbackMissingVerifier,
		},
		{
			name: "code already consumed",
			req:  callbackRequest("used-code", "v"),
			exchangeFn: func(ctx context.Context, code, verifier string) (*auth.TokenResult, error) {
				return nil, fmt.Errorf("%w: status 400", auth.ErrCodeRejected)
			},
			wantResult: callbackRejected,
		},
		{
			name: "provider unavailable",
			req:  callbackRequest("code", "v"),
			exchangeFn: func(ctx context.Context, code, verifier string) (*auth.TokenResult, error) {
				return nil, errors.New("dial tcp: connection refused")
			},
			wantResult: callbackError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &recordingMetrics{}
			h := newTestAuthHandler(&mockProvider{exchangeCodeFn: tt.exchangeFn}, collector)

			w := httptest.NewRecorder()
			h.Callback(w, tt.req)

			resp := w.Result()
			if resp.StatusCode != http.StatusFound {
				t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
			}
			if loc := resp.Header.Get("Location"); loc != testBaseURL+"/signin" {
				t.Errorf("Location = %q, want %q", loc, testBaseURL+"/signin")
			}
			if findCookie(resp, auth.SessionCookieName) != nil {
				t.Error("no session cookie should be issued on failure")
			}
			if len(collector.callbacks) != 1 || collector.callbacks[0] != tt.wantResult {
				t.Errorf("callbacks = %v, want [%s]", collector.callbacks, tt.wantResult)
			}
		})
	}
}

func TestAuthHandler_Logout_RevokesAndClearsCookie(t *testing.T) {
	var revoked string
	h := newTestAuthHandler(&mockProvider{
		logoutFn: func(ctx context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "access-token"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if loc := resp.Header.Get("Location"); loc != testBaseURL+"/signin" {
		t.Errorf("Location = %q", loc)
	}
	if revoked != "access-token" {
		t.Errorf("revoked token = %q, want access-token", revoked)
	}
	if c := findCookie(resp, auth.SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Error("session cookie should be cleared")
	}
}

// 認証サービスへの失効要求が失敗してもCookieは削除される
func TestAuthHandler_Logout_ProviderFailure_StillClearsCookie(t *testing.T) {
	h := newTestAuthHandler(&mockProvider{
		logoutFn: func(ctx context.Context, accessToken string) error {
			return errors.New("logout failed with status 500")
		},
	}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "access-token"})
	w := httptest.NewRecorder()
	h.Logout(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}
	if c := findCookie(resp, auth.SessionCookieName); c == nil || c.MaxAge >= 0 {
		t.Error("session cookie should be cleared")
	}
}

func TestAuthHandler_Logout_NoSession_SkipsProvider(t *testing.T) {
	called := false
	h := newTestAuthHandler(&mockProvider{
		logoutFn: func(ctx context.Context, accessToken string) error {
			called = true
			return nil
		},
	}, nil)

	w := httptest.NewRecorder()
	h.Logout(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	if called {
		t.Error("provider logout should not be called without a session cookie")
	}
	if w.Code != http.StatusFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusFound)
	}
}

func TestAuthHandler_Me_Authenticated_ReturnsIdentity(t *testing.T) {
	h := newTestAuthHandler(&mockProvider{}, nil)

	w := httptest.NewRecorder()
	h.Me(w, withIdentity(httptest.NewRequest(http.MethodGet, "/auth/me", nil), "u1"))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body["id"] != "u1" || body["email"] != "u1@example.com" {
		t.Errorf("body = %v", body)
	}
}

func TestAuthHandler_Me_Unauthenticated_Returns401(t *testing.T) {
	h := newTestAuthHandler(&mockProvider{}, nil)

	w := httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if body := parseErrorBody(t, w); body.Code != model.ErrCodeUnauthorized {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
	}
}
