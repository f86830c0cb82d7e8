package web

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer()
	if err != nil {
		t.Fatalf("NewRenderer() error: %v", err)
	}
	return r
}

func TestRenderer_SigninPage_HasLoginLinkAndNoHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := newTestRenderer(t).Render(&buf, PageSignin, PageData{Title: "Sign in", Active: PageSignin}); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	html := buf.String()
	if !strings.Contains(html, `href="/auth/login"`) {
		t.Error("signin page should link to /auth/login")
	}
	if strings.Contains(html, "/auth/logout") {
		t.Error("signin page should not render the logout form")
	}
}

func TestRenderer_HomePage_ShowsEmailAndCSRFToken(t *testing.T) {
	var buf bytes.Buffer
	data := PageData{Title: "Weather", Active: PageHome, Email: "user@example.com", CSRFToken: "tok123"}
	if err := newTestRenderer(t).Render(&buf, PageHome, data); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	html := buf.String()
	for _, want := range []string{"user@example.com", `name="csrf_token" value="tok123"`, `data-page="home"`, `id="chat-form"`} {
		if !strings.Contains(html, want) {
			t.Errorf("home page should contain %q", want)
		}
	}
}

func TestRenderer_EscapesEmail(t *testing.T) {
	var buf bytes.Buffer
	data := PageData{Title: "Audit", Active: PageAudit, Email: "<script>alert(1)</script>"}
	if err := newTestRenderer(t).Render(&buf, PageAudit, data); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if strings.Contains(buf.String(), "<script>alert(1)</script>") {
		t.Error("email must be HTML-escaped")
	}
}

func TestRenderer_UnknownPage(t *testing.T) {
	if err := newTestRenderer(t).Render(io.Discard, "nope", PageData{}); err == nil {
		t.Error("expected error for unknown page")
	}
}

func TestStaticHandler_ServesAssets(t *testing.T) {
	handler := StaticHandler()

	for _, path := range []string{"/static/app.js", "/static/style.css"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
			}
		})
	}
}

func TestStaticHandler_AppScriptUsesCardStorageKey(t *testing.T) {
	w := httptest.NewRecorder()
	StaticHandler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/static/app.js", nil))

	if !strings.Contains(w.Body.String(), "'weatherCards'") {
		t.Error("app.js should persist cards under the weatherCards key")
	}
}
