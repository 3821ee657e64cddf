// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 検索アグリゲータ・サービス層・ワーカーから利用する。
type MetricsCollector interface {
	RecordLookup(source string, success bool, seconds float64)
	RecordSearch()
	RecordLogCreated(mediaType string)
	RecordCoverEnriched()
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	lookupSuccess  *prometheus.CounterVec
	lookupFail     *prometheus.CounterVec
	lookupLatency  prometheus.Histogram
	searches       prometheus.Counter
	logsCreated    *prometheus.CounterVec
	coversEnriched prometheus.Counter
	httpStatus     *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		lookupSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediashelf_lookup_success_total",
			Help: "外部カタログ検索成功のソース別合計数",
		}, []string{"source"}),
		lookupFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediashelf_lookup_fail_total",
			Help: "外部カタログ検索失敗のソース別合計数",
		}, []string{"source"}),
		lookupLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mediashelf_lookup_latency_seconds",
			Help:    "外部カタログ検索のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		searches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediashelf_searches_total",
			Help: "横断検索リクエストの合計数",
		}),
		logsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediashelf_logs_created_total",
			Help: "作成されたメディアログのメディア種別ごとの合計数",
		}, []string{"media_type"}),
		coversEnriched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mediashelf_covers_enriched_total",
			Help: "バックフィルで補完されたカバー画像の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mediashelf_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.lookupSuccess,
		c.lookupFail,
		c.lookupLatency,
		c.searches,
		c.logsCreated,
		c.coversEnriched,
		c.httpStatus,
	)

	return c
}

// RecordLookup は外部カタログ検索の結果とレイテンシを記録する。
func (c *Collector) RecordLookup(source string, success bool, seconds float64) {
	if success {
		c.lookupSuccess.WithLabelValues(source).Inc()
	} else {
		c.lookupFail.WithLabelValues(source).Inc()
	}
	c.lookupLatency.Observe(seconds)
}

// RecordSearch は横断検索リクエストを記録する。
func (c *Collector) RecordSearch() {
	c.searches.Inc()
}

// RecordLogCreated はメディアログ作成を記録する。
func (c *Collector) RecordLogCreated(mediaType string) {
	c.logsCreated.WithLabelValues(mediaType).Inc()
}

// RecordCoverEnriched はカバー画像の補完を記録する。
func (c *Collector) RecordCoverEnriched() {
	c.coversEnriched.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
