// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// サインイン・サインアップの結果ラベル。
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeUnauthorized       = "unauthorized"
	OutcomeExternalError      = "external_error"
	OutcomeValidationError    = "validation_error"
	OutcomePendingApproval    = "pending_approval"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証ゲート、ロール解決、ダッシュボード、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordSignIn(outcome string)
	RecordSignUp(outcome string)
	RecordCompensatingSignOut(succeeded bool)
	RecordProfileInsertFailure()
	RecordRoleMismatch()
	RecordViewSelected(view string)
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordSessionsPurged(count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	signIn              *prometheus.CounterVec
	signUp              *prometheus.CounterVec
	compensatingSignOut *prometheus.CounterVec
	profileInsertFail   prometheus.Counter
	roleMismatch        prometheus.Counter
	viewSelected        *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
	requestLatency      prometheus.Histogram
	sessionsPurged      prometheus.Counter
}

var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		signIn: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudhms_signin_total",
			Help: "結果別のサインイン試行数",
		}, []string{"outcome"}),
		signUp: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudhms_signup_total",
			Help: "結果別のサインアップ試行数",
		}, []string{"outcome"}),
		compensatingSignOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudhms_compensating_signout_total",
			Help: "ロール拒否時に実行した補償サインアウトの数",
		}, []string{"result"}),
		profileInsertFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloudhms_profile_insert_fail_total",
			Help: "サインアップ時のプロフィール作成失敗数",
		}),
		roleMismatch: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloudhms_role_source_mismatch_total",
			Help: "profiles.roleとuser_roles.roleが一致しなかった回数",
		}),
		viewSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudhms_dashboard_view_total",
			Help: "選択されたダッシュボード画面別の表示数",
		}, []string{"view"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudhms_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cloudhms_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cloudhms_sessions_purged_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.signIn,
		c.signUp,
		c.compensatingSignOut,
		c.profileInsertFail,
		c.roleMismatch,
		c.viewSelected,
		c.httpStatus,
		c.requestLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordSignIn はサインインの結果を記録する。
func (c *Collector) RecordSignIn(outcome string) {
	c.signIn.WithLabelValues(outcome).Inc()
}

// RecordSignUp はサインアップの結果を記録する。
func (c *Collector) RecordSignUp(outcome string) {
	c.signUp.WithLabelValues(outcome).Inc()
}

// RecordCompensatingSignOut は補償サインアウトの実行結果を記録する。
func (c *Collector) RecordCompensatingSignOut(succeeded bool) {
	result := "ok"
	if !succeeded {
		result = "failed"
	}
	c.compensatingSignOut.WithLabelValues(result).Inc()
}

// RecordProfileInsertFailure はプロフィール作成失敗を記録する。
func (c *Collector) RecordProfileInsertFailure() {
	c.profileInsertFail.Inc()
}

// RecordRoleMismatch はロール情報源の不一致を記録する。
func (c *Collector) RecordRoleMismatch() {
	c.roleMismatch.Inc()
}

// RecordViewSelected はダッシュボード画面の選択を記録する。
func (c *Collector) RecordViewSelected(view string) {
	c.viewSelected.WithLabelValues(view).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエスト処理時間を記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordSessionsPurged は削除されたセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop は何も記録しないMetricsCollector。メトリクス未設定時やテストで使用する。
type Nop struct{}

var _ MetricsCollector = Nop{}

func (Nop) RecordSignIn(string) {}
func (Nop) RecordSignUp(string) {}
func (Nop) RecordCompensatingSignOut(bool) {}
func (Nop) RecordProfileInsertFailure() {}
func (Nop) RecordRoleMismatch() {}
func (Nop) RecordViewSelected(string) {}
func (Nop) RecordHTTPStatus(int) {}
func (Nop) RecordRequestLatency(time.Duration) {}
func (Nop) RecordSessionsPurged(int) {}
