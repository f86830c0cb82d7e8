package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// msgInternalServerError はpanic時にクライアントへ返す文言。
const msgInternalServerError = "Internal server error"

// NewRecoveryMiddleware はハンドラーのpanicを捕捉し、{error, code}形式の500を返すミドルウェアを生成する。
// http.ErrAbortHandlerは接続を切るためにnet/httpへそのまま再送出する。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				attrs := []any{
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				}
				if id := chimw.GetReqID(r.Context()); id != "" {
					attrs = append(attrs, slog.String("request_id", id))
				}
				slog.Error("panic recovered", attrs...)

				WriteInternalServerError(w, msgInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
