package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ricirt/pulse/internal/broadcast"
	"github.com/ricirt/pulse/internal/domain"
	"github.com/ricirt/pulse/internal/stream"
	"github.com/ricirt/pulse/internal/worker"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	Enqueued        prometheus.Counter
	Completed       *prometheus.CounterVec
	ProcessingTime  prometheus.Histogram
	QueueWait       prometheus.Histogram
	QueueDepth      prometheus.Gauge
	InFlight        prometheus.Gauge
	Subscribers     prometheus.Gauge
	Dropped         prometheus.Counter
	StreamsActive   prometheus.Gauge
	StreamChunks    prometheus.Counter
	StreamsFinished *prometheus.CounterVec
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Enqueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "analysis_enqueued_total",
			Help: "Total number of analysis requests accepted into the queue.",
		}),

		Completed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "analysis_completed_total",
			Help: "Total number of analysis results published, by status.",
		}, []string{"status"}),

		ProcessingTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysis_processing_seconds",
			Help:    "Time from dequeue to result publication.",
			Buckets: prometheus.DefBuckets,
		}),

		QueueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "analysis_queue_wait_seconds",
			Help:    "Time an item spent waiting in the queue before processing started.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),

		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analysis_queue_depth",
			Help: "Current number of pending analysis requests.",
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "analysis_in_flight",
			Help: "Current number of analysis requests being processed.",
		}),

		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "broadcast_subscribers",
			Help: "Current number of connected result subscribers.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "broadcast_dropped_total",
			Help: "Results dropped because a subscriber's buffer was full.",
		}),

		StreamsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stream_active",
			Help: "Current number of open activity streams.",
		}),
		StreamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_chunks_total",
			Help: "Total number of text chunks emitted across all streams.",
		}),
		StreamsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stream_finished_total",
			Help: "Total number of closed activity streams, by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.Enqueued,
		m.Completed,
		m.ProcessingTime,
		m.QueueWait,
		m.QueueDepth,
		m.InFlight,
		m.Subscribers,
		m.Dropped,
		m.StreamsActive,
		m.StreamChunks,
		m.StreamsFinished,
	)

	return m
}

// SchedulerHooks returns the callbacks expected by worker.MetricHooks.
// Centralises the prometheus observation calls so the worker package stays import-free.
func (m *Metrics) SchedulerHooks() worker.MetricHooks {
	return worker.MetricHooks{
		OnStarted: func(wait time.Duration) {
			m.QueueWait.Observe(wait.Seconds())
		},
		OnFinished: func(status domain.Status, latency time.Duration) {
			m.Completed.WithLabelValues(string(status)).Inc()
			m.ProcessingTime.Observe(latency.Seconds())
		},
		OnInFlight: func(n int) {
			m.InFlight.Set(float64(n))
		},
	}
}

func (m *Metrics) HubHooks() broadcast.Hooks {
	return broadcast.Hooks{
		OnDropped:     m.Dropped.Inc,
		OnSubscribers: func(n int) { m.Subscribers.Set(float64(n)) },
	}
}

func (m *Metrics) StreamHooks() stream.Hooks {
	return stream.Hooks{
		OnOpen:  m.StreamsActive.Inc,
		OnChunk: m.StreamChunks.Inc,
		OnFinish: func(outcome string) {
			m.StreamsActive.Dec()
			m.StreamsFinished.WithLabelValues(outcome).Inc()
		},
	}
}

// OnEnqueued counts an accepted request and refreshes the depth gauge.
func (m *Metrics) OnEnqueued(depth int) {
	m.Enqueued.Inc()
	m.QueueDepth.Set(float64(depth))
}

func (m *Metrics) SetQueueDepth(n int) {
	m.QueueDepth.Set(float64(n))
}

// OnCancelled counts a withdrawn request as a cancelled result.
func (m *Metrics) OnCancelled(depth int) {
	m.Completed.WithLabelValues(string(domain.StatusCancelled)).Inc()
	m.QueueDepth.Set(float64(depth))
}
