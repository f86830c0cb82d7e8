// Package auth はホスト型認証サービス（GoTrue互換）とのOAuthフロー、
// およびセッションCookieからのIdentity解決を提供する。
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/weatherdesk/internal/model"
)

// SessionCookieName はプロバイダ発行のアクセストークンを保持するCookie名。
const SessionCookieName = "wd_session"

// SessionAudience は認証サービスが発行するアクセストークンのaudience。
const SessionAudience = "authenticated"

// Outcome はセッション解決の結果。Identityがnilなら未認証。
type Outcome struct {
	Identity *model.Identity
}

// Authenticated は有効なセッションが解決できたかを返す。
func (o Outcome) Authenticated() bool {
	return o.Identity != nil
}

// SessionResolver はリクエストのCookieからセッションを解決するインターフェース。
// 解決に失敗した場合はエラーではなく未認証のOutcomeを返す。
type SessionResolver interface {
	Resolve(r *http.Request) Outcome
}

// sessionClaims は認証サービスのアクセストークンのうち使用するクレーム。
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTResolver はHS256署名のアクセストークンをローカルで検証するSessionResolver。
type JWTResolver struct {
	secret []byte
	now    func() time.Time
}

// NewJWTResolver はJWTResolverを生成する。nowがnilの場合はtime.Nowを使用する。
func NewJWTResolver(secret string, now func() time.Time) *JWTResolver {
	if now == nil {
		now = time.Now
	}
	return &JWTResolver{secret: []byte(secret), now: now}
}

// Resolve はセッションCookieを検証してIdentityを返す。
// Cookieなし、署名不正、期限切れ、audience不一致、sub欠落はいずれも未認証になる。
// 検証中のpanicもログに残して未認証として扱う。
func (v *JWTResolver) Resolve(r *http.Request) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("session resolution panicked", slog.String("panic", fmt.Sprint(rec)))
			out = Outcome{}
		}
	}()

	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return Outcome{}
	}

	identity, err := v.verify(cookie.Value)
	if err != nil {
		slog.Debug("session token rejected", slog.String("error", err.Error()))
		return Outcome{}
	}
	return Outcome{Identity: identity}
}

func (v *JWTResolver) verify(token string) (*model.Identity, error) {
	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(SessionAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid session token: %w", err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid session token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("session token has no subject")
	}

	return &model.Identity{ID: claims.Subject, Email: claims.Email}, nil
}
