// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 上流リクエストの結果ラベル
const (
	OutcomeSuccess       = "success"
	OutcomeUpstreamError = "upstream_error"
	OutcomeFailure       = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 天気クライアント、ハンドラー、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordUpstreamRequest(outcome string)
	RecordUpstreamLatency(duration time.Duration)
	RecordSearchCreated()
	RecordAuthCallback(result string)
	RecordGateRedirect(target string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  prometheus.Histogram
	searchesCreated  prometheus.Counter
	authCallbacks    *prometheus.CounterVec
	gateRedirects    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherdesk_upstream_requests_total",
			Help: "天気プロバイダへのリクエスト数（結果別）",
		}, []string{"outcome"}),
		upstreamLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "weatherdesk_upstream_latency_seconds",
			Help:    "天気プロバイダへのリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		searchesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "weatherdesk_searches_created_total",
			Help: "作成された検索履歴の合計数",
		}),
		authCallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherdesk_auth_callbacks_total",
			Help: "OAuthコールバックの処理数（結果別）",
		}, []string{"result"}),
		gateRedirects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "weatherdesk_gate_redirects_total",
			Help: "アクセスゲートによるリダイレクト数（遷移先別）",
		}, []string{"target"}),
	}

	reg.MustRegister(
		c.upstreamRequests,
		c.upstreamLatency,
		c.searchesCreated,
		c.authCallbacks,
		c.gateRedirects,
	)

	return c
}

// RecordUpstreamRequest は天気プロバイダへのリクエスト結果を記録する。
func (c *Collector) RecordUpstreamRequest(outcome string) {
	c.upstreamRequests.WithLabelValues(outcome).Inc()
}

// RecordUpstreamLatency は天気プロバイダへのリクエストのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(duration time.Duration) {
	c.upstreamLatency.Observe(duration.Seconds())
}

// RecordSearchCreated は検索履歴の作成を記録する。
func (c *Collector) RecordSearchCreated() {
	c.searchesCreated.Inc()
}

// RecordAuthCallback はOAuthコールバックの結果（success / missing_code / missing_verifier / rejected / error）を記録する。
func (c *Collector) RecordAuthCallback(result string) {
	c.authCallbacks.WithLabelValues(result).Inc()
}

// RecordGateRedirect はアクセスゲートのリダイレクト先（signin / home）を記録する。
func (c *Collector) RecordGateRedirect(target string) {
	c.gateRedirects.WithLabelValues(target).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
