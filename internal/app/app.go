// Package app はプロセス起動時の設定読み込み、依存関係のワイヤリング、サブコマンドの実行を行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/weatherdesk/internal/auth"
	"github.com/hitoshi/weatherdesk/internal/config"
	"github.com/hitoshi/weatherdesk/internal/database"
	"github.com/hitoshi/weatherdesk/internal/handler"
	"github.com/hitoshi/weatherdesk/internal/logger"
	"github.com/hitoshi/weatherdesk/internal/metrics"
	"github.com/hitoshi/weatherdesk/internal/repository"
	"github.com/hitoshi/weatherdesk/internal/search"
	"github.com/hitoshi/weatherdesk/internal/security"
	"github.com/hitoshi/weatherdesk/internal/weather"
	"github.com/hitoshi/weatherdesk/internal/web"
)

const (
	dbConnectTimeout = 5 * time.Second
	shutdownTimeout  = 30 * time.Second
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、LOG_LEVELを反映したJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再設定
	logger.SetupDefaultWithLevel(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandRollback:
		return runRollback(cfg)
	default:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx, cfg)
	}
}

// runServe はWebサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. 上流URLの検証（内部ネットワーク宛ての設定ミスを起動時に検出する）
	for name, raw := range map[string]string{
		"WEATHER_API_BASE_URL": cfg.WeatherAPIBaseURL,
		"AUTH_URL":             cfg.AuthURL,
	} {
		if err := security.ValidateUpstreamURL(raw); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}

	// 2. DB接続
	db, err := database.Connect(ctx, cfg.DatabaseURL, dbConnectTimeout)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	// 3. ルーターの構築
	router, err := newRouter(cfg, db, prometheus.NewRegistry())
	if err != nil {
		return err
	}

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second + cfg.UpstreamTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("web server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down web server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("web server stopped gracefully")
	return nil
}

// newRouter は設定とDB接続から全コンポーネントを組み立て、ルーターを返す。
// regには業務メトリクスに加えてGo/プロセスのメトリクスを登録する。
func newRouter(cfg *config.Config, db *sql.DB, reg *prometheus.Registry) (http.Handler, error) {
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	// 天気プロバイダと認証サービスへの通信はSSRF対策済みクライアントで行う
	outbound := security.NewOutboundClient(cfg.UpstreamTimeout)

	searchService := search.NewService(
		repository.NewPostgresSearchRepo(db),
		security.NewTextSanitizer(),
		nil,
	)

	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionResolver:   auth.NewJWTResolver(cfg.AuthJWTSecret, nil),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		BaseURL:           cfg.BaseURL,
		CookieSecure:      cfg.CookieSecure,
		CookieDomain:      cfg.CookieDomain,

		IdentityProvider: auth.NewProviderClient(outbound, auth.ProviderConfig{
			AuthURL:       cfg.AuthURL,
			AnonKey:       cfg.AuthAnonKey,
			OAuthProvider: cfg.AuthOAuthProvider,
			RedirectURL:   cfg.BaseURL + "/auth/callback",
		}),
		WeatherFetcher: weather.NewClient(outbound, cfg.WeatherAPIKey, cfg.WeatherAPIBaseURL, collector),
		SearchService:  searchService,
		PageRenderer:   renderer,
		StaticHandler:  web.StaticHandler(),

		HealthChecker:  db,
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
	}), nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runRollback は直近のマイグレーションを1つ戻す。
func runRollback(cfg *config.Config) error {
	slog.Info("rolling back last database migration",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RollbackMigration(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}

	slog.Info("database rollback completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
// 解析できないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("***")
	}
	u.RawQuery = ""
	return u.String()
}
