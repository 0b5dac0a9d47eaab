// internal/metrics/collector.go
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rovshanmuradov/solana-txcore/internal/blockchain/solbc/rpc"
	"github.com/rovshanmuradov/solana-txcore/internal/types"
)

const namespace = "solana_txcore"

// Collector держит все метрики сервиса в собственном реестре, поэтому
// несколько коллекторов (например, в тестах) не конфликтуют.
type Collector struct {
	registry *prometheus.Registry

	sessionsActive   *prometheus.GaugeVec
	sessionsTotal    *prometheus.CounterVec
	sessionOutcome   *prometheus.CounterVec
	confirmDuration  *prometheus.HistogramVec
	submitFailures   *prometheus.CounterVec
	transientPolls   prometheus.Counter
	rpcLatency       *prometheus.HistogramVec
	rpcErrors        *prometheus.CounterVec
	reportsGenerated *prometheus.CounterVec
}

// NewCollector создает новый экземпляр коллектора метрик
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		sessionsActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_sessions_active",
			Help:      "Number of open status stream sessions",
		}, []string{"transport"}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_sessions_total",
			Help:      "Total number of status stream sessions opened",
		}, []string{"transport"}),
		sessionOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Tracked transactions by terminal status",
		}, []string{"status"}),
		confirmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_duration_seconds",
			Help:      "Time from send to terminal status",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"status"}),
		submitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_failures_total",
			Help:      "Submissions that never produced a signature",
		}, []string{"reason"}),
		transientPolls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_poll_errors_total",
			Help:      "Transient signature status lookup failures",
		}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_latency_seconds",
			Help:      "RPC request latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"method"}),
		rpcErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_errors_total",
			Help:      "RPC request errors by method and kind",
		}, []string{"method", "kind"}),
		reportsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pnl_reports_total",
			Help:      "P&L reports generated",
		}, []string{"status"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.sessionsActive,
		c.sessionsTotal,
		c.sessionOutcome,
		c.confirmDuration,
		c.submitFailures,
		c.transientPolls,
		c.rpcLatency,
		c.rpcErrors,
		c.reportsGenerated,
	)
	return c
}

// Handler отдает метрики в формате Prometheus.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry нужен тестам и встраиванию в чужой /metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) SessionOpened(transport string) {
	c.sessionsTotal.WithLabelValues(transport).Inc()
	c.sessionsActive.WithLabelValues(transport).Inc()
}

func (c *Collector) SessionClosed(transport string) {
	c.sessionsActive.WithLabelValues(transport).Dec()
}

func (c *Collector) SessionFinished(status types.TxStatus, elapsed time.Duration) {
	c.sessionOutcome.WithLabelValues(string(status)).Inc()
	c.confirmDuration.WithLabelValues(string(status)).Observe(elapsed.Seconds())
}

func (c *Collector) SubmissionFailed(reason string) {
	c.submitFailures.WithLabelValues(reason).Inc()
}

func (c *Collector) TransientPollError() {
	c.transientPolls.Inc()
}

// ObserveRPC записывает метрики RPC-запроса
func (c *Collector) ObserveRPC(method string, d time.Duration, err error) {
	c.rpcLatency.WithLabelValues(method).Observe(d.Seconds())
	if err != nil {
		c.rpcErrors.WithLabelValues(method, errorKind(err)).Inc()
	}
}

func (c *Collector) ReportGenerated(err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	c.reportsGenerated.WithLabelValues(status).Inc()
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, rpc.ErrRateLimit):
		return "rate_limit"
	case errors.Is(err, rpc.ErrTimeout):
		return "timeout"
	case rpc.IsNodeRejection(err):
		return "rejected"
	default:
		return "transport"
	}
}
