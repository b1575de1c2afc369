// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hitoshi/peerview/internal/model"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアントとSessionStoreから利用する。
type MetricsCollector interface {
	// RecordRequest はAPI呼び出し1回分（リトライは別カウント）を記録する。
	// レスポンスを受け取れなかった場合のstatusCodeは0。
	RecordRequest(operation string, statusCode int, duration time.Duration)
	RecordRetry(operation string)
	RecordSessionTransition(from, to model.SessionState)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerview_api_requests_total",
			Help: "API呼び出しの合計数（操作・HTTPステータス別）",
		}, []string{"operation", "status_code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "peerview_api_request_latency_seconds",
			Help:    "API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerview_api_retries_total",
			Help: "自動リトライの合計数",
		}, []string{"operation"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "peerview_session_transitions_total",
			Help: "セッション状態遷移の合計数",
		}, []string{"from", "to"}),
	}

	reg.MustRegister(
		c.requests,
		c.latency,
		c.retries,
		c.transitions,
	)

	return c
}

// RecordRequest はAPI呼び出しを記録する。
func (c *Collector) RecordRequest(operation string, statusCode int, duration time.Duration) {
	c.requests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
	c.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRetry は自動リトライを記録する。
func (c *Collector) RecordRetry(operation string) {
	c.retries.WithLabelValues(operation).Inc()
}

// RecordSessionTransition はセッション状態の遷移を記録する。
func (c *Collector) RecordSessionTransition(from, to model.SessionState) {
	c.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// NopCollector は何も記録しないMetricsCollector。メトリクス未設定時のデフォルト。
type NopCollector struct{}

func (NopCollector) RecordRequest(string, int, time.Duration)         {}
func (NopCollector) RecordRetry(string)                               {}
func (NopCollector) RecordSessionTransition(_, _ model.SessionState) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsと/healthを提供するHTTPハンドラーを返す。
// watchコマンド実行中のスクレイプに対応する。middlewaresは全ルートに先頭から順に適用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer, middlewares ...func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middlewares...)
	r.Method(http.MethodGet, "/metrics", Handler(gatherer))
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	return r
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = NopCollector{}
)
