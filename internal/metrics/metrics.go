// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 生成ジョブ、キャッシュ、ボット、ワーカーから利用する。
type MetricsCollector interface {
	RecordCacheHit(mode string)
	RecordCacheMiss(mode string)
	RecordGeneration(mode string, ok bool, duration time.Duration)
	RecordSignFailure(mode string, sign string)
	RecordHoroscopeServed(mode string, sign string)
	RecordReminder(ok bool)
	RecordIntakeCompleted(scenario string)
	RecordOperatorFailure()
	RecordUpdatePanic()
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	generations       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	signFailures      *prometheus.CounterVec
	horoscopesServed  *prometheus.CounterVec
	reminders         *prometheus.CounterVec
	intakeCompleted   *prometheus.CounterVec
	operatorFailures  prometheus.Counter
	updatePanics      prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horobot_cache_hits_total",
			Help: "当日キャッシュから返した回数",
		}, []string{"mode"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horobot_cache_misses_total",
			Help: "キャッシュが無効で再生成が必要になった回数",
		}, []string{"mode"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horobot_generations_total",
			Help: "全星座の再生成バッチの実行回数",
		}, []string{"mode", "result"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "horobot_generation_duration_seconds",
			Help:    "再生成バッチの所要時間（秒）",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),
		signFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horobot_sign_failures_total",
			Help: "星座ごとの生成失敗数",
		}, []string{"mode", "sign"}),
		horoscopesServed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horobot_horoscopes_served_total",
			Help: "ユーザーに配信した占いの数",
		}, []string{"mode", "sign"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horobot_reminders_total",
			Help: "リマインダー送信数",
		}, []string{"result"}),
		intakeCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horobot_intake_completed_total",
			Help: "最後まで完了したインテーク会話の数",
		}, []string{"scenario"}),
		operatorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "horobot_operator_notify_failures_total",
			Help: "オペレーターへの通知失敗数",
		}),
		updatePanics: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "horobot_update_panics_total",
			Help: "アップデート処理中に回復したpanicの数",
		}),
	}

	reg.MustRegister(
		c.cacheHits,
		c.cacheMisses,
		c.generations,
		c.generationLatency,
		c.signFailures,
		c.horoscopesServed,
		c.reminders,
		c.intakeCompleted,
		c.operatorFailures,
		c.updatePanics,
	)

	return c
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit(mode string) {
	c.cacheHits.WithLabelValues(mode).Inc()
}

// RecordCacheMiss はキャッシュミスを記録する。
func (c *Collector) RecordCacheMiss(mode string) {
	c.cacheMisses.WithLabelValues(mode).Inc()
}

// RecordGeneration は再生成バッチの結果と所要時間を記録する。
func (c *Collector) RecordGeneration(mode string, ok bool, duration time.Duration) {
	result := "ok"
	if !ok {
		result = "partial"
	}
	c.generations.WithLabelValues(mode, result).Inc()
	c.generationLatency.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordSignFailure は星座単位の生成失敗を記録する。
func (c *Collector) RecordSignFailure(mode string, sign string) {
	c.signFailures.WithLabelValues(mode, sign).Inc()
}

// RecordHoroscopeServed は配信を記録する。
func (c *Collector) RecordHoroscopeServed(mode string, sign string) {
	c.horoscopesServed.WithLabelValues(mode, sign).Inc()
}

// RecordReminder はリマインダー送信結果を記録する。
func (c *Collector) RecordReminder(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	c.reminders.WithLabelValues(result).Inc()
}

// RecordIntakeCompleted はインテーク会話の完了を記録する。
func (c *Collector) RecordIntakeCompleted(scenario string) {
	c.intakeCompleted.WithLabelValues(scenario).Inc()
}

// RecordOperatorFailure はオペレーター通知の失敗を記録する。
func (c *Collector) RecordOperatorFailure() {
	c.operatorFailures.Inc()
}

// RecordUpdatePanic はアップデート処理中のpanicを記録する。
func (c *Collector) RecordUpdatePanic() {
	c.updatePanics.Inc()
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordCacheHit(string)                        {}
func (Nop) RecordCacheMiss(string)                       {}
func (Nop) RecordGeneration(string, bool, time.Duration) {}
func (Nop) RecordSignFailure(string, string)             {}
func (Nop) RecordHoroscopeServed(string, string)         {}
func (Nop) RecordReminder(bool)                          {}
func (Nop) RecordIntakeCompleted(string)                 {}
func (Nop) RecordOperatorFailure()                       {}
func (Nop) RecordUpdatePanic()                           {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
