package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Weather provider
	WeatherAPIKey     string
	WeatherAPIBaseURL string
	UpstreamTimeout   time.Duration

	// Identity provider (hosted auth service)
	AuthURL           string
	AuthAnonKey       string
	AuthJWTSecret     string
	AuthOAuthProvider string

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// dotenvPath はローカル開発用に読み込む.envファイルのパス。
var dotenvPath = ".env"

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込むが、既存の環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", dotenvPath, err)
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.WeatherAPIKey = os.Getenv("WEATHER_API_KEY")
	if cfg.WeatherAPIKey == "" {
		missing = append(missing, "WEATHER_API_KEY")
	}

	cfg.AuthURL = strings.TrimRight(os.Getenv("AUTH_URL"), "/")
	if cfg.AuthURL == "" {
		missing = append(missing, "AUTH_URL")
	}

	cfg.AuthAnonKey = os.Getenv("AUTH_ANON_KEY")
	if cfg.AuthAnonKey == "" {
		missing = append(missing, "AUTH_ANON_KEY")
	}

	cfg.AuthJWTSecret = os.Getenv("AUTH_JWT_SECRET")
	if cfg.AuthJWTSecret == "" {
		missing = append(missing, "AUTH_JWT_SECRET")
	}

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.WeatherAPIBaseURL = strings.TrimRight(getEnvString("WEATHER_API_BASE_URL", "https://api.weatherapi.com/v1"), "/")
	cfg.UpstreamTimeout = getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second)
	cfg.AuthOAuthProvider = getEnvString("AUTH_OAUTH_PROVIDER", "github")
	cfg.LogLevel = getEnvLogLevel("LOG_LEVEL", slog.LevelInfo)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvLogLevel は "debug" / "info" / "warn" / "error" を slog.Level に変換する。
// 解釈できない値はデフォルトにフォールバックする。
func getEnvLogLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
