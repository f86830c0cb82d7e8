package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/weatherdesk/internal/auth"
	"github.com/hitoshi/weatherdesk/internal/metrics"
	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/weather"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Logger            *slog.Logger
	SessionResolver   auth.SessionResolver
	CORSAllowedOrigin string
	BaseURL           string
	CookieSecure      bool
	CookieDomain      string

	IdentityProvider auth.IdentityProvider
	WeatherFetcher   weather.Fetcher
	SearchService    SearchServiceInterface
	PageRenderer     PageRenderer
	StaticHandler    http.Handler

	HealthChecker  HealthChecker
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → Recovery → SecurityHeaders → Logging → GetHead → AccessGate
//	    → (API) CORS → Session
//	    → (ページ) CSRF
//
// AccessGateはルーティング前に全リクエストへ適用する。対象外のパス（/api, /static,
// /auth/* など）はゲート内で素通しになり、未登録のページパスは未認証ならサインインへ送る。
// /auth/* はlogoutのみCSRF検証を行う。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(chimw.GetHead)
	r.Use(middleware.NewAccessGate(deps.SessionResolver, deps.BaseURL, deps.Metrics))

	csrf := middleware.NewCSRFMiddleware(middleware.CSRFConfig{
		CookieSecure: deps.CookieSecure,
		CookieDomain: deps.CookieDomain,
	})
	session := middleware.NewSessionMiddleware(deps.SessionResolver)

	authHandler := NewAuthHandler(deps.IdentityProvider, AuthHandlerConfig{
		BaseURL:      deps.BaseURL,
		CookieDomain: deps.CookieDomain,
		CookieSecure: deps.CookieSecure,
	}, deps.Metrics)
	weatherHandler := NewWeatherHandler(deps.WeatherFetcher)
	searchHandler := NewSearchHandler(deps.SearchService, deps.Metrics)
	chatHandler := NewChatHandler(deps.WeatherFetcher)
	pageHandler := NewPageHandler(deps.PageRenderer, deps.BaseURL)

	// --- 運用系 ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	if deps.StaticHandler != nil {
		r.Handle("/static/*", deps.StaticHandler)
	}
	r.Get("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// --- 認証フロー ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", authHandler.Login)
		r.Get("/callback", authHandler.Callback)
		r.With(csrf).Post("/logout", authHandler.Logout)
		r.With(session).Get("/me", authHandler.Me)
	})

	// --- API ---
	// 認証の要否はハンドラーが判断する（weather, chatは不要、searchesは必須）
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
		r.Use(session)

		r.Get("/weather", weatherHandler.GetWeather)
		r.Post("/chat", chatHandler.PostMessage)
		r.Get("/searches", searchHandler.ListSearches)
		r.Post("/searches", searchHandler.CreateSearch)
	})

	// --- ページ ---
	r.Group(func(r chi.Router) {
		r.Use(csrf)

		r.Get("/", pageHandler.Root)
		r.Get("/signin", pageHandler.Signin)
		r.Get("/home", pageHandler.Home)
		r.Get("/audit", pageHandler.Audit)
	})

	return r
}
