// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とHTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordSignup(activityName string)
	RecordUnregister(activityName string)
	RecordFailure(operation, code string)
	RecordEventWriteFailure()
	SetParticipants(activityName string, count int)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
}

var _ MetricsCollector = (*Collector)(nil)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signups        *prometheus.CounterVec
	unregisters    *prometheus.CounterVec
	failures       *prometheus.CounterVec
	eventWriteFail prometheus.Counter
	participants   *prometheus.GaugeVec
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mergington_signups_total",
			Help: "活動への登録成功の合計数",
		}, []string{"activity"}),
		unregisters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mergington_unregistrations_total",
			Help: "活動からの登録解除成功の合計数",
		}, []string{"activity"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mergington_registration_failures_total",
			Help: "操作・エラーコード別の登録操作失敗数",
		}, []string{"operation", "code"}),
		eventWriteFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mergington_event_write_failures_total",
			Help: "監査ログ書き込み失敗の合計数",
		}),
		participants: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mergington_participants",
			Help: "活動ごとの現在の参加者数",
		}, []string{"activity"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mergington_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mergington_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.signups,
		c.unregisters,
		c.failures,
		c.eventWriteFail,
		c.participants,
		c.httpStatus,
		c.requestLatency,
	)

	return c
}

// RecordSignup は登録成功を記録する。
func (c *Collector) RecordSignup(activityName string) {
	c.signups.WithLabelValues(activityName).Inc()
}

// RecordUnregister は登録解除成功を記録する。
func (c *Collector) RecordUnregister(activityName string) {
	c.unregisters.WithLabelValues(activityName).Inc()
}

// RecordFailure は登録操作の失敗を記録する。
func (c *Collector) RecordFailure(operation, code string) {
	c.failures.WithLabelValues(operation, code).Inc()
}

// RecordEventWriteFailure は監査ログ書き込み失敗を記録する。
func (c *Collector) RecordEventWriteFailure() {
	c.eventWriteFail.Inc()
}

// SetParticipants は活動の現在の参加者数を設定する。
func (c *Collector) SetParticipants(activityName string, count int) {
	c.participants.WithLabelValues(activityName).Set(float64(count))
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はHTTPリクエストの処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
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
