package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/weatherdesk/internal/auth"
	"github.com/hitoshi/weatherdesk/internal/middleware"
	"github.com/hitoshi/weatherdesk/internal/model"
	"github.com/hitoshi/weatherdesk/internal/weather"
)

// --- モック定義 ---

// mockProvider はauth.IdentityProviderのモック実装。
type mockProvider struct {
	authorizeURLFn func(codeChallenge string) string
	exchangeCodeFn func(ctx context.Context, code, verifier string) (*auth.TokenResult, error)
	logoutFn       func(ctx context.Context, accessToken string) error
}

func (m *mockProvider) AuthorizeURL(codeChallenge string) string {
	if m.authorizeURLFn != nil {
		return m.authorizeURLFn(codeChallenge)
	}
	return "https://auth.example.com/authorize?code_challenge=" + codeChallenge
}

func (m *mockProvider) ExchangeCode(ctx context.Context, code, verifier string) (*auth.TokenResult, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code, verifier)
	}
	return nil, auth.ErrCodeRejected
}

func (m *mockProvider) Logout(ctx context.Context, accessToken string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, accessToken)
	}
	return nil
}

// mockFetcher はweather.Fetcherのモック実装。呼び出し回数を記録する。
type mockFetcher struct {
	fetchFn func(ctx context.Context, city string) (*weather.NormalizedWeather, error)
	calls   int
}

func (m *mockFetcher) FetchCurrent(ctx context.Context, city string) (*weather.NormalizedWeather, error) {
	m.calls++
	if m.fetchFn != nil {
		return m.fetchFn(ctx, city)
	}
	return londonWeather(), nil
}

// mockSearchService はSearchServiceInterfaceのモック実装。
type mockSearchService struct {
	listRecentFn func(ctx context.Context, identity *model.Identity) ([]model.SearchRecord, error)
	createFn     func(ctx context.Context, identity *model.Identity, city string) (*model.SearchRecord, error)
	createCalls  int
}

func (m *mockSearchService) ListRecent(ctx context.Context, identity *model.Identity) ([]model.SearchRecord, error) {
	if m.listRecentFn != nil {
		return m.listRecentFn(ctx, identity)
	}
	return []model.SearchRecord{}, nil
}

func (m *mockSearchService) Create(ctx context.Context, identity *model.Identity, city string) (*model.SearchRecord, error) {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, identity, city)
	}
	return &model.SearchRecord{ID: "rec-1", City: city, OwnerID: identity.ID, CreatedAt: time.Now().UTC()}, nil
}

// mockResolver はauth.SessionResolverのモック実装。
type mockResolver struct {
	identity *model.Identity
}

func (m *mockResolver) Resolve(r *http.Request) auth.Outcome {
	return auth.Outcome{Identity: m.identity}
}

// recordingMetrics はMetricsCollectorの呼び出しを記録する。
type recordingMetrics struct {
	searchesCreated int
	callbacks       []string
	gateRedirects   []string
}

func (m *recordingMetrics) RecordUpstreamRequest(string) {}
func (m *recordingMetrics) RecordUpstreamLatency(time.Duration) {}
func (m *recordingMetrics) RecordSearchCreated() { m.searchesCreated++ }
func (m *recordingMetrics) RecordAuthCallback(result string) { m.callbacks = append(m.callbacks, result) }
func (m *recordingMetrics) RecordGateRedirect(target string) {
	m.gateRedirects = append(m.gateRedirects, target)
}

// --- テストヘルパー ---

func londonWeather() *weather.NormalizedWeather {
	return &weather.NormalizedWeather{
		City:          "London",
		Country:       "United Kingdom",
		Condition:     "Partly cloudy",
		IsDay:         true,
		Temperature:   14,
		FeelsLike:     12.5,
		Humidity:      72,
		WindSpeed:     11.2,
		WindDirection: "WSW",
	}
}

// withIdentity はテスト用にリクエストコンテキストにIdentityを注入するヘルパー。
func withIdentity(r *http.Request, id string) *http.Request {
	ctx := middleware.ContextWithIdentity(r.Context(), &model.Identity{ID: id, Email: id + "@example.com"})
	return r.WithContext(ctx)
}

// findCookie はレスポンスから指定名のCookieを探す。
func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
