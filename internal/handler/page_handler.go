package handler

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/web"
)

// PageRenderer はページテンプレートを描画するインターフェース。
type PageRenderer interface {
	Render(w io.Writer, name string, data web.PageData) error
}

// PageHandler はHTMLページのハンドラー。
// 認証の判定はアクセスゲートが行い、ここではコンテキストのIdentityを表示に使うだけ。
type PageHandler struct {
	renderer PageRenderer
	baseURL  string
}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler(renderer PageRenderer, baseURL string) *PageHandler {
	return &PageHandler{renderer: renderer, baseURL: strings.TrimRight(baseURL, "/")}
}

// Root はホームへリダイレクトする。
// GET /
func (h *PageHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.baseURL+"/home", http.StatusFound)
}

// Signin はサインインページを表示する。
// GET /signin
func (h *PageHandler) Signin(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.PageSignin, "Sign in")
}

// Home は天気検索とチャットのページを表示する。
// GET /home
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.PageHome, "Weather")
}

// Audit は検索履歴ページを表示する。
// GET /audit
func (h *PageHandler) Audit(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.PageAudit, "Audit Logs")
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, page, title string) {
	data := web.PageData{
		Title:     title,
		Active:    page,
		CSRFToken: middleware.CSRFTokenFromContext(r.Context()),
	}
	if identity := middleware.IdentityFromContext(r.Context()); identity != nil {
		data.Email = identity.Email
	}

	// 途中まで書いたHTMLを返さないよう、バッファに描画してから送る
	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page, data); err != nil {
		slog.Error("failed to render page",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}
