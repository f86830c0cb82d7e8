// Package web は埋め込みHTMLテンプレートと静的ファイルを提供する。
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ページ名
const (
	PageSignin = "signin"
	PageHome   = "home"
	PageAudit  = "audit"
)

// PageData はテンプレートに渡す値。
type PageData struct {
	Title     string
	Active    string // ナビゲーションで強調するページ名
	Email     string // 未認証ページでは空
	CSRFToken string
}

// Renderer はページごとにlayoutと組み合わせたテンプレートを保持する。
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer は埋め込みテンプレートをすべてパースする。
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, name := range []string{PageSignin, PageHome, PageAudit} {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = tmpl
	}
	return r, nil
}

// Render は指定ページをwに書き込む。
func (r *Renderer) Render(w io.Writer, name string, data PageData) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page: %s", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// StaticHandler は/static/配下の埋め込みファイルを配信するハンドラーを返す。
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		// staticディレクトリは埋め込み済みのため到達しない
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
