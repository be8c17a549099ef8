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
// ミドルウェア、サービス層、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordSignup(method string)
	RecordLogin(method string, success bool)
	RecordDPECreated()
	RecordReviewCreated(checkrideType string)
	RecordSaveToggled(saved bool)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests   *prometheus.CounterVec
	httpLatency    *prometheus.HistogramVec
	signups        *prometheus.CounterVec
	logins         *prometheus.CounterVec
	dpesCreated    prometheus.Counter
	reviewsCreated *prometheus.CounterVec
	saveToggles    *prometheus.CounterVec
	sessionsPurged prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratemydpe_http_requests_total",
			Help: "HTTPリクエスト数（メソッド・ルート・ステータス別）",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ratemydpe_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratemydpe_signups_total",
			Help: "ユーザー登録数（登録方法別）",
		}, []string{"method"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratemydpe_logins_total",
			Help: "ログイン試行数（方法・結果別）",
		}, []string{"method", "result"}),
		dpesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratemydpe_dpes_created_total",
			Help: "登録されたDPEの合計数",
		}),
		reviewsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratemydpe_reviews_created_total",
			Help: "投稿されたレビュー数（試験種別別）",
		}, []string{"checkride_type"}),
		saveToggles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ratemydpe_save_toggles_total",
			Help: "DPE保存の切り替え数（結果別）",
		}, []string{"state"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratemydpe_sessions_purged_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.signups,
		c.logins,
		c.dpesCreated,
		c.reviewsCreated,
		c.saveToggles,
		c.sessionsPurged,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの件数と処理時間を記録する。
// routeにはchiのルートパターンを渡し、IDごとに系列が増えないようにする。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordSignup はユーザー登録を記録する。
func (c *Collector) RecordSignup(method string) {
	c.signups.WithLabelValues(method).Inc()
}

// RecordLogin はログイン試行を記録する。
func (c *Collector) RecordLogin(method string, success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(method, result).Inc()
}

// RecordDPECreated はDPE登録を記録する。
func (c *Collector) RecordDPECreated() {
	c.dpesCreated.Inc()
}

// RecordReviewCreated はレビュー投稿を記録する。
func (c *Collector) RecordReviewCreated(checkrideType string) {
	c.reviewsCreated.WithLabelValues(checkrideType).Inc()
}

// RecordSaveToggled は保存切り替えの結果を記録する。
func (c *Collector) RecordSaveToggled(saved bool) {
	state := "unsaved"
	if saved {
		state = "saved"
	}
	c.saveToggles.WithLabelValues(state).Inc()
}

// RecordSessionsPurged は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使用する。
type Nop struct{}

func (Nop) RecordHTTPRequest(string, string, int, time.Duration) {}
func (Nop) RecordSignup(string) {}
func (Nop) RecordLogin(string, bool) {}
func (Nop) RecordDPECreated() {}
func (Nop) RecordReviewCreated(string) {}
func (Nop) RecordSaveToggled(bool) {}
func (Nop) RecordSessionsPurged(int64) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
