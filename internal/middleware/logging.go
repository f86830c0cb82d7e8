package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// responseRecorder はステータスコードと書き込みバイト数を記録する。
type responseRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rr *responseRecorder) WriteHeader(code int) {
	if rr.status == 0 {
		rr.status = code
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// statusCode はハンドラーが何も書かなかった場合も200として扱う。
func (rr *responseRecorder) statusCode() int {
	if rr.status == 0 {
		return http.StatusOK
	}
	return rr.status
}

// isProbePath はヘルスチェック・メトリクス・静的ファイルのように高頻度で叩かれるパス。
func isProbePath(path string) bool {
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/static/")
}

// requestLogLevel はステータスとパスからログレベルを決める。
// 成功したプローブ系リクエストはDebugに落とす。
func requestLogLevel(path string, status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case isProbePath(path):
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// NewLoggingMiddleware はリクエストごとに1行のJSON構造化ログを出力するミドルウェアを返す。
// method、path、status、bytes、duration_ms に加え、request_id（chiのRequestIDがある場合）と
// user_id（後段のゲートやセッションで解決された場合）を含む。クエリ文字列は出力しない。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w}

			slot := &identitySlot{identity: IdentityFromContext(r.Context())}
			ctx := context.WithValue(r.Context(), identitySlotContextKey, slot)

			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Int("bytes", rec.bytes),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
			}
			if id := chimw.GetReqID(r.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}
			if slot.identity != nil {
				attrs = append(attrs, slog.String("user_id", slot.identity.ID))
			}

			logger.LogAttrs(r.Context(), requestLogLevel(r.URL.Path, status), "http_request", attrs...)
		})
	}
}
