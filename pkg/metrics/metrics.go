package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "transport_requests"

// WorkflowMetrics - счётчики процесса согласования заявок.
// Методы безопасно вызывать на nil.
type WorkflowMetrics struct {
	transitions *prometheus.CounterVec
	created     prometheus.Counter
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	cache       *prometheus.CounterVec
}

// NewWorkflowMetrics регистрирует метрики в reg. Для тестов удобен prometheus.NewRegistry().
func NewWorkflowMetrics(reg prometheus.Registerer) *WorkflowMetrics {
	factory := promauto.With(reg)
	return &WorkflowMetrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Status transitions applied to applications, labeled by source and target status",
		}, []string{"from", "to"}),
		created: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "applications_created_total",
			Help:      "Applications created",
		}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "operation_errors_total",
			Help:      "Failed workflow operations, labeled by operation and error kind",
		}, []string{"operation", "kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "operation_duration_seconds",
			Help:      "Duration of workflow operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dashboard",
			Name:      "cache_requests_total",
			Help:      "Dashboard cache lookups, labeled by result",
		}, []string{"result"}),
	}
}

func (m *WorkflowMetrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *WorkflowMetrics) Created() {
	if m == nil {
		return
	}
	m.created.Inc()
}

func (m *WorkflowMetrics) Failure(operation, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(operation, kind).Inc()
}

// Observe возвращает функцию, которую нужно вызвать по завершении операции.
func (m *WorkflowMetrics) Observe(operation string) func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func (m *WorkflowMetrics) CacheHit() {
	if m == nil {
		return
	}
	m.cache.WithLabelValues("hit").Inc()
}

func (m *WorkflowMetrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cache.WithLabelValues("miss").Inc()
}
