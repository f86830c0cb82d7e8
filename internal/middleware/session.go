// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"net/http"

	"github.com/hitoshi/weatherdesk/internal/auth"
	"github.com/hitoshi/weatherdesk/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	// identityContextKey はリクエストコンテキストに解決済みIdentityを格納するキー。
	identityContextKey = contextKey("identity")
	// identitySlotContextKey はロギングミドルウェアが後段で解決されたIdentityを受け取るためのキー。
	identitySlotContextKey = contextKey("identity_slot")
)

// identitySlot は内側のミドルウェアで解決されたIdentityを外側に伝えるための入れ物。
type identitySlot struct {
	identity *model.Identity
}

// NewSessionMiddleware はセッションCookieを解決し、認証済みならIdentityをコンテキストに注入する。
// 未認証でもリクエストは拒否しない。401にするかどうかはハンドラー側で判断する。
func NewSessionMiddleware(resolver auth.SessionResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			out := resolver.Resolve(r)
			if out.Authenticated() {
				r = r.WithContext(ContextWithIdentity(r.Context(), out.Identity))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IdentityFromContext はリクエストコンテキストからIdentityを取得する。未認証の場合はnil。
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, _ := ctx.Value(identityContextKey).(*model.Identity)
	return identity
}

// ContextWithIdentity はコンテキストにIdentityを注入する。
// テストやミドルウェア以外のコンテキスト生成でも使用する。
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	if slot, ok := ctx.Value(identitySlotContextKey).(*identitySlot); ok {
		slot.identity = identity
	}
	return context.WithValue(ctx, identityContextKey, identity)
}
