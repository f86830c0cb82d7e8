// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/weatherdesk/internal/auth"
	"github.com/hitoshi/weatherdesk/internal/metrics"
	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/model"
)

// コールバック結果のメトリクスラベル
const (
	callbackSuccess         = "success"
	callbackMissingCode     = "missing_code"
	callbackMissingVerifier = "missing_verifier"
	callbackRejected        = "rejected"
	callbackError           = "error"
)

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL      string
	CookieDomain string
	CookieSecure bool
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
// セッションは認証サービスが発行したトークンをそのままCookieに保持し、アプリ側では発行しない。
type AuthHandler struct {
	provider auth.IdentityProvider
	config   AuthHandlerConfig
	metrics  metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。collectorはnilでもよい。
func NewAuthHandler(provider auth.IdentityProvider, config AuthHandlerConfig, collector metrics.MetricsCollector) *AuthHandler {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &AuthHandler{
		provider: provider,
		config:   config,
		metrics:  collector,
	}
}

// Login はPKCE付きのOAuthフローを開始する。
// GET /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	verifier, err := auth.GenerateVerifier()
	if err != nil {
		slog.Error("failed to generate pkce verifier", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w, "Failed to start sign-in")
		return
	}

	http.SetCookie(w, h.cookie(auth.PKCECookieName, verifier, auth.PKCECookieMaxAge))
	http.Redirect(w, r, h.provider.AuthorizeURL(auth.ChallengeS256(verifier)), http.StatusFound)
}

// Callback は認可コードをセッションに交換する。
// どの失敗もサインインへのリダイレクトで終わり、エラーページは出さない。
// GET /auth/callback?code=xxx
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	// verifierは1回限り。結果にかかわらず削除する
	http.SetCookie(w, h.cookie(auth.PKCECookieName, "", -1))

	code := r.URL.Query().Get("code")
	if code == "" {
		h.failCallback(w, r, callbackMissingCode)
		return
	}

	verifierCookie, err := r.Cookie(auth.PKCECookieName)
	if err != nil || verifierCookie.Value == "" {
		slog.Warn("oauth callback without pkce verifier")
		h.failCallback(w, r, callbackMissingVerifier)
		return
	}

	result, err := h.provider.ExchangeCode(r.Context(), code, verifierCookie.Value)
	if err != nil {
		if errors.Is(err, auth.ErrCodeRejected) {
			slog.Warn("authorization code rejected", slog.String("error", err.Error()))
			h.failCallback(w, r, callbackRejected)
			return
		}
		slog.Error("oauth code exchange failed", slog.String("error", err.Error()))
		h.failCallback(w, r, callbackError)
		return
	}

	http.SetCookie(w, h.cookie(auth.SessionCookieName, result.AccessToken, result.ExpiresIn))
	h.recordCallback(callbackSuccess)

	slog.Info("user signed in", slog.String("user_id", result.Identity.ID))
	http.Redirect(w, r, h.config.BaseURL+"/home", http.StatusFound)
}

// Logout は認証サービス側のセッションを無効化し、セッションCookieを削除する。
// 認証サービスへの失効要求が失敗してもCookieは削除する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(auth.SessionCookieName)
	if err == nil && cookie.Value != "" {
		if logoutErr := h.provider.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to revoke provider session", slog.String("error", logoutErr.Error()))
		}
	}

	http.SetCookie(w, h.cookie(auth.SessionCookieName, "", -1))
	http.Redirect(w, r, h.config.BaseURL+"/signin", http.StatusFound)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromContext(r.Context())
	if identity == nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":    identity.ID,
		"email": identity.Email,
	})
}

func (h *AuthHandler) failCallback(w http.ResponseWriter, r *http.Request, result string) {
	h.recordCallback(result)
	http.Redirect(w, r, h.config.BaseURL+"/signin", http.StatusFound)
}

func (h *AuthHandler) recordCallback(result string) {
	if h.metrics != nil {
		h.metrics.RecordAuthCallback(result)
	}
}

// cookie はHttpOnly・SameSite=Laxの認証用Cookieを組み立てる。maxAgeが負なら削除用。
func (h *AuthHandler) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
