package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_chat"

// Metrics holds the Prometheus counters, histograms, and gauges for the chat service.
type Metrics struct {
	// Dialogue metrics.
	Turns              *prometheus.CounterVec // labels: intent, kind
	TurnDuration       prometheus.Histogram
	SlotClarifications *prometheus.CounterVec // labels: slot={city,days}
	TopicChanges       prometheus.Counter

	// Collaborator metrics.
	ProviderRequests *prometheus.CounterVec   // labels: provider={forecast,report,phrase}, outcome={success,error,unauthorized}
	ProviderDuration *prometheus.HistogramVec // labels: provider
	ForecastCache    *prometheus.CounterVec   // labels: result={hit,miss,bypass}

	// Session metrics.
	ActiveContexts  prometheus.Gauge
	ExpiredContexts prometheus.Counter

	// Kafka pipeline metrics.
	MessagesConsumed        prometheus.Counter
	MessagesProduced        prometheus.Counter
	InvalidRequests         prometheus.Counter
	PipelineRunning         prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns handled, by detected intent and reply kind.",
		}, []string{"intent", "kind"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time to answer one message, including provider calls.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SlotClarifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_clarifications_total",
			Help:      "Clarifying questions asked because a slot was missing.",
		}, []string{"slot"}),
		TopicChanges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "topic_changes_total",
			Help:      "Turns whose intent moved the conversation to a new subject.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "External provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_duration_seconds",
			Help:      "External provider call duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"provider"}),
		ForecastCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecast_cache_total",
			Help:      "Forecast cache lookups by result.",
		}, []string{"result"}),
		ActiveContexts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_contexts",
			Help:      "Conversation contexts currently held in memory.",
		}),
		ExpiredContexts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expired_contexts_total",
			Help:      "Conversation contexts removed after their TTL elapsed.",
		}),
		MessagesConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Chat requests read from the request topic.",
		}),
		MessagesProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_produced_total",
			Help:      "Replies written to the reply topic.",
		}),
		InvalidRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_requests_total",
			Help:      "Chat requests skipped because they could not be parsed.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the Kafka pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of chat requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-answer-load cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.Turns,
		m.TurnDuration,
		m.SlotClarifications,
		m.TopicChanges,
		m.ProviderRequests,
		m.ProviderDuration,
		m.ForecastCache,
		m.ActiveContexts,
		m.ExpiredContexts,
		m.MessagesConsumed,
		m.MessagesProduced,
		m.InvalidRequests,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	}
}
