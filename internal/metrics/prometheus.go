package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vistachat"

var modelBuckets = []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60, 120}

// PrometheusRecorder exports metrics through its own registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	chatRequests         *prometheus.CounterVec
	imageUploadsAbsorbed prometheus.Counter
	recordWritesFailed   prometheus.Counter
	historyReadsFailed   prometheus.Counter
	modelDuration        prometheus.Histogram
	signups              prometheus.Counter
	logins               *prometheus.CounterVec
	rateLimited          prometheus.Counter
}

// NewPrometheus builds a recorder with Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	p := &PrometheusRecorder{
		registry: prometheus.NewRegistry(),
		chatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat requests by outcome",
		}, []string{"outcome"}),
		imageUploadsAbsorbed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "image_uploads_absorbed_total",
			Help:      "Image upload failures that fell back to a text-only model call",
		}),
		recordWritesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "record_writes_failed_total",
			Help:      "Interaction record writes that failed and were swallowed",
		}),
		historyReadsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "history_reads_failed_total",
			Help:      "History reads on the chat path that failed and were absorbed",
		}),
		modelDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "model",
			Name:      "call_duration_seconds",
			Help:      "Latency of model invocations",
			Buckets:   modelBuckets,
		}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Accounts created",
		}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter",
		}),
	}

	p.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.chatRequests,
		p.imageUploadsAbsorbed,
		p.recordWritesFailed,
		p.historyReadsFailed,
		p.modelDuration,
		p.signups,
		p.logins,
		p.rateLimited,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncChatRequest(outcome string) {
	p.chatRequests.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) IncImageUploadAbsorbed() { p.imageUploadsAbsorbed.Inc() }
func (p *PrometheusRecorder) IncRecordWriteFailed() { p.recordWritesFailed.Inc() }
func (p *PrometheusRecorder) IncHistoryReadFailed() { p.historyReadsFailed.Inc() }
func (p *PrometheusRecorder) IncSignup() { p.signups.Inc() }
func (p *PrometheusRecorder) IncRateLimited() { p.rateLimited.Inc() }

func (p *PrometheusRecorder) ObserveModelDuration(duration time.Duration) {
	p.modelDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncLogin(outcome string) {
	p.logins.WithLabelValues(outcome).Inc()
}
