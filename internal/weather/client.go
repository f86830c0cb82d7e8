// Package weather は天気プロバイダ（WeatherAPI.com）のクライアントを提供する。
//
// 上流レスポンスは画面とチャットで使う NormalizedWeather に変換して返す。
// キャッシュやリトライは行わない。
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hitoshi/weatherdesk/internal/metrics"
	"github.com/hitoshi/weatherdesk/internal/model"
)

// maxResponseSize は上流レスポンスボディの読み取り上限。
const maxResponseSize = 1 << 20

// NormalizedWeather は天気プロバイダのレスポンスから必要な項目だけを取り出した形。
type NormalizedWeather struct {
	City          string  `json:"city"`
	Country       string  `json:"country"`
	Condition     string  `json:"condition"`
	IsDay         bool    `json:"isDay"`
	Temperature   float64 `json:"temperature"`
	FeelsLike     float64 `json:"feelsLike"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"windSpeed"`
	WindDirection string  `json:"windDirection"`
}

// UpstreamError は天気プロバイダが非2xxを返したことを表す。
// StatusとMessageはそのままクライアントに返される。
type UpstreamError struct {
	Status  int
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("weather provider returned %d: %s", e.Status, e.Message)
}

// Fetcher は現在の天気を取得するインターフェース。ハンドラーはこれに依存する。
type Fetcher interface {
	FetchCurrent(ctx context.Context, city string) (*NormalizedWeather, error)
}

// Client はWeatherAPI.comのcurrent.jsonを呼び出すクライアント。
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	metrics    metrics.MetricsCollector
}

// NewClient はClientを生成する。
// baseURLは "https://api.weatherapi.com/v1" のように末尾スラッシュなしで渡す。
// collectorはnilでもよい。
func NewClient(httpClient *http.Client, apiKey, baseURL string, collector metrics.MetricsCollector) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    collector,
	}
}

// upstreamPayload はcurrent.jsonの成功レスポンスのうち使用する部分。
type upstreamPayload struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		TempC      float64 `json:"temp_c"`
		FeelsLikeC float64 `json:"feelslike_c"`
		IsDay      int     `json:"is_day"`
		Humidity   float64 `json:"humidity"`
		WindKph    float64 `json:"wind_kph"`
		WindDir    string  `json:"wind_dir"`
		Condition  struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

// upstreamErrorPayload はエラーレスポンスの形。
type upstreamErrorPayload struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// FetchCurrent は指定都市の現在の天気を1回だけ取得する。
// 空白のみの都市名は上流を呼ばずにCITY_REQUIREDエラーを返す。
func (c *Client) FetchCurrent(ctx context.Context, city string) (*NormalizedWeather, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, model.NewCityRequiredError()
	}

	values := url.Values{}
	values.Set("key", c.apiKey)
	values.Set("q", city)
	values.Set("aqi", "no")
	endpoint := c.baseURL + "/current.json?" + values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.observeLatency(time.Since(start))
	if err != nil {
		c.recordOutcome(metrics.OutcomeFailure)
		return nil, fmt.Errorf("weather request failed: %w", redactURLError(err))
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseSize)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.recordOutcome(metrics.OutcomeUpstreamError)
		upErr := &UpstreamError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload upstreamErrorPayload
		if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Error.Message != "" {
			upErr.Message = payload.Error.Message
		}
		slog.Warn("weather provider returned error",
			slog.String("city", city),
			slog.Int("status", upErr.Status),
			slog.String("message", upErr.Message),
		)
		return nil, upErr
	}

	var payload upstreamPayload
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		c.recordOutcome(metrics.OutcomeFailure)
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	c.recordOutcome(metrics.OutcomeSuccess)
	return normalize(&payload), nil
}

func normalize(p *upstreamPayload) *NormalizedWeather {
	return &NormalizedWeather{
		City:          p.Location.Name,
		Country:       p.Location.Country,
		Condition:     p.Current.Condition.Text,
		IsDay:         p.Current.IsDay == 1,
		Temperature:   p.Current.TempC,
		FeelsLike:     p.Current.FeelsLikeC,
		Humidity:      p.Current.Humidity,
		WindSpeed:     p.Current.WindKph,
		WindDirection: p.Current.WindDir,
	}
}

// redactURLError はurl.ErrorからURL（APIキーを含む）を取り除いた内側のエラーを返す。
func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

func (c *Client) recordOutcome(outcome string) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamRequest(outcome)
	}
}

func (c *Client) observeLatency(d time.Duration) {
	if c.metrics != nil {
		c.metrics.RecordUpstreamLatency(d)
	}
}
