// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// 認証サービスとチャットサービスのMetricsRecorderインターフェースを満たす。
type Collector struct {
	signupSuccess     prometheus.Counter
	signupFail        *prometheus.CounterVec
	signupRollback    prometheus.Counter
	messagesPersisted *prometheus.CounterVec
	completionLatency prometheus.Histogram
	completionFail    prometheus.Counter
	httpRequests      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signupSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hanashi_signup_success_total",
			Help: "サインアップ成功の合計数",
		}),
		signupFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hanashi_signup_fail_total",
			Help: "サインアップ失敗の理由別合計数",
		}, []string{"reason"}),
		signupRollback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hanashi_signup_rollback_total",
			Help: "プロフィール作成失敗によるアイデンティティ削除の合計数",
		}),
		messagesPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hanashi_messages_persisted_total",
			Help: "保存されたメッセージのロール別合計数",
		}, []string{"role"}),
		completionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "hanashi_completion_latency_seconds",
			Help:    "補完APIのレイテンシ（秒）",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		completionFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hanashi_completion_fail_total",
			Help: "補完API失敗の合計数",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hanashi_http_requests_total",
			Help: "HTTPリクエストのメソッド・パス・ステータスコード別合計数",
		}, []string{"method", "path", "status_code"}),
	}

	reg.MustRegister(
		c.signupSuccess,
		c.signupFail,
		c.signupRollback,
		c.messagesPersisted,
		c.completionLatency,
		c.completionFail,
		c.httpRequests,
	)

	return c
}

// RecordSignUpSuccess はサインアップ成功を記録する。
func (c *Collector) RecordSignUpSuccess() {
	c.signupSuccess.Inc()
}

// RecordSignUpFailure はサインアップ失敗を理由別に記録する。
func (c *Collector) RecordSignUpFailure(reason string) {
	c.signupFail.WithLabelValues(reason).Inc()
}

// RecordSignUpRollback はアイデンティティのロールバック削除を記録する。
func (c *Collector) RecordSignUpRollback() {
	c.signupRollback.Inc()
}

// RecordMessagePersisted はメッセージ保存成功をロール別に記録する。
func (c *Collector) RecordMessagePersisted(role string) {
	c.messagesPersisted.WithLabelValues(role).Inc()
}

// RecordCompletionDuration は補完APIの処理時間（秒）を記録する。
func (c *Collector) RecordCompletionDuration(seconds float64) {
	c.completionLatency.Observe(seconds)
}

// RecordCompletionFailure は補完APIの失敗を記録する。
func (c *Collector) RecordCompletionFailure() {
	c.completionFail.Inc()
}

// RecordHTTPRequest はHTTPリクエストの結果を記録する。
func (c *Collector) RecordHTTPRequest(method, path string, statusCode int) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
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
