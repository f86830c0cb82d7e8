package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/weatherdesk/internal/auth"
	"github.com/hitoshi/weatherdesk/internal/metrics"
)

const (
	signinPath = "/signin"
	homePath   = "/home"
	authPrefix = "/auth/"
)

// IsGatedPath はアクセスゲートの対象となるパスかどうかを判定する。
// API、静的ファイル、favicon、メトリクス、ヘルスチェックは対象外。
func IsGatedPath(path string) bool {
	switch {
	case path == "/api" || strings.HasPrefix(path, "/api/"):
		return false
	case path == "/static" || strings.HasPrefix(path, "/static/"):
		return false
	case path == "/favicon.ico", path == "/metrics", path == "/health":
		return false
	default:
		return true
	}
}

// isAuthFlowPath は認証フロー（/auth/callback, /auth/login など）のパスかどうかを判定する。
// これらはセッションがない状態で到達できなければならない。
func isAuthFlowPath(path string) bool {
	return path == "/auth" || strings.HasPrefix(path, authPrefix)
}

// NewAccessGate はページリクエストをセッションの有無で振り分けるミドルウェアを返す。
// ルーティング前の全リクエストに適用し、未登録のページパスもゲートの対象になる。
//   - /auth/callback を含む /auth/* はそのまま通す
//   - /signin は認証済みなら BASE_URL/home へリダイレクト
//   - それ以外のページは未認証なら BASE_URL/signin へリダイレクト
//
// リダイレクト先はBASE_URLから組み立てた同一オリジンの絶対URLで、ステータスは302。
// 解決中にpanicが起きた場合もサインインへリダイレクトし、500は返さない。
// collectorはnilでもよい。
func NewAccessGate(resolver auth.SessionResolver, baseURL string, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	baseURL = strings.TrimRight(baseURL, "/")

	redirect := func(w http.ResponseWriter, r *http.Request, path, target string) {
		if collector != nil {
			collector.RecordGateRedirect(target)
		}
		http.Redirect(w, r, baseURL+path, http.StatusFound)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !IsGatedPath(path) || isAuthFlowPath(path) {
				next.ServeHTTP(w, r)
				return
			}

			out, err := safeResolve(resolver, r)
			if err != nil {
				slog.Error("access gate failed to resolve session",
					slog.String("path", path),
					slog.String("error", err.Error()),
				)
				redirect(w, r, signinPath, "signin")
				return
			}

			if path == signinPath {
				if out.Authenticated() {
					redirect(w, r, homePath, "home")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !out.Authenticated() {
				redirect(w, r, signinPath, "signin")
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), out.Identity)))
		})
	}
}

// safeResolve はresolver内のpanicをエラーに変換する。
func safeResolve(resolver auth.SessionResolver, r *http.Request) (out auth.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("session resolver panicked: %v", rec)
		}
	}()
	return resolver.Resolve(r), nil
}
