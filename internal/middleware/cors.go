package middleware

import "net/http"

// corsAllowedHeaders はブラウザのapp.jsが送るリクエストヘッダー。
const corsAllowedHeaders = "Content-Type, X-CSRF-Token"

// NewCORSMiddleware は/api/*向けのCORSミドルウェアを返す。
// APIはGETとPOSTのみ。Originが許可オリジンと一致するときだけAllow系ヘッダーを返し、
// credentials送信と共存するためワイルドカード(*)は使用しない。
// OPTIONSプリフライトは後段に渡さず204で応答する。
func NewCORSMiddleware(allowedOrigin string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Add("Vary", "Origin")

			if origin := r.Header.Get("Origin"); origin != "" && origin == allowedOrigin {
				h.Set("Access-Control-Allow-Origin", allowedOrigin)
				h.Set("Access-Control-Allow-Credentials", "true")
				if r.Method == http.MethodOptions {
					h.Set("Access-Control-Allow-Methods", "GET, POST")
					h.Set("Access-Control-Allow-Headers", corsAllowedHeaders)
					h.Set("Access-Control-Max-Age", "600")
				}
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
