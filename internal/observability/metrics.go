package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danmuck/invokereader/internal/reader"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invokereader",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "invokereader",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	packets = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invokereader",
			Subsystem: "reader",
			Name:      "packets_total",
			Help:      "Packets seen by the reader, by outcome.",
		},
		[]string{"outcome"},
	)
	invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "invokereader",
			Subsystem: "reader",
			Name:      "invocations_total",
			Help:      "Invocations printed, by command name.",
		},
		[]string{"command"},
	)
	nodesBuilt = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "invokereader",
			Subsystem: "reader",
			Name:      "nodes_built_total",
			Help:      "Property nodes built across all printed invocations.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, packets, invocations, nodesBuilt)
	})
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}

// ReaderMetrics feeds packet loop outcomes into the process registry.
type ReaderMetrics struct{}

var _ reader.Metrics = ReaderMetrics{}

func NewReaderMetrics() ReaderMetrics {
	RegisterMetrics()
	return ReaderMetrics{}
}

func (ReaderMetrics) Packet(outcome reader.Outcome) {
	packets.WithLabelValues(string(outcome)).Inc()
}

func (ReaderMetrics) Invocation(command string, nodes int) {
	invocations.WithLabelValues(command).Inc()
	nodesBuilt.Add(float64(nodes))
}
