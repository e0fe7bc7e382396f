// Package metrics 定义响应生成链路的 Prometheus 指标
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "next_assistant"

// 模型调用结果
const (
	OutcomeSuccess      = "success"
	OutcomeError        = "error"
	OutcomeUnconfigured = "unconfigured"
	OutcomeEmpty        = "empty"
)

// Metrics 指标集合，nil 时所有方法为空操作
type Metrics struct {
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	turns           *prometheus.CounterVec
	satisfaction    *prometheus.CounterVec
	postProcess     *prometheus.CounterVec
}

// New 在 reg 上注册指标，reg 为 nil 时使用默认注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		providerCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Total number of chat completion attempts per provider.",
		}, []string{"tier", "provider", "outcome"}),
		providerLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_call_seconds",
			Help:      "Latency distribution for chat completion attempts.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"tier", "provider"}),
		turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of generated turns by the tier that served them.",
		}, []string{"tier"}),
		satisfaction: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_satisfaction_total",
			Help:      "Total number of turns by estimated satisfaction.",
		}, []string{"satisfaction"}),
		postProcess: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_process_total",
			Help:      "Total number of post-processing steps by result.",
		}, []string{"step", "result"}),
	}
}

// ObserveProviderCall 记录一次模型调用
func (m *Metrics) ObserveProviderCall(tier, provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(tier, provider, outcome).Inc()
	if outcome != OutcomeUnconfigured {
		m.providerLatency.WithLabelValues(tier, provider).Observe(elapsed.Seconds())
	}
}

// ObserveTurn 记录一次完成的对话
func (m *Metrics) ObserveTurn(tier string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(tier).Inc()
}

// ObserveSatisfaction 记录满意度分类
func (m *Metrics) ObserveSatisfaction(satisfaction string) {
	if m == nil {
		return
	}
	m.satisfaction.WithLabelValues(satisfaction).Inc()
}

// ObservePostProcess 记录后处理步骤（memory / analytics）
func (m *Metrics) ObservePostProcess(step string, err error) {
	if m == nil {
		return
	}
	result := OutcomeSuccess
	if err != nil {
		result = OutcomeError
	}
	m.postProcess.WithLabelValues(step, result).Inc()
}
