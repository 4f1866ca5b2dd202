package vnrag

import (
	"github.com/hqta1110/vnrag/distance"
	"github.com/hqta1110/vnrag/knowledge"
)

const (
	// DefaultK is the number of passages returned when WithK is not given.
	DefaultK = 5
	// DefaultToolK is the number of passages a Tool returns per call.
	DefaultToolK = 10
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	k                int
	metric           distance.Metric
}

// Option configures a Retriever.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithDefaultK changes the k used when a call does not pass WithK.
func WithDefaultK(k int) Option {
	return func(o *options) {
		o.k = k
	}
}

// WithDefaultMetric changes the metric used when a call does not pass WithMetric.
func WithDefaultMetric(m distance.Metric) Option {
	return func(o *options) {
		o.metric = m
	}
}

type retrieveOptions struct {
	k           int
	metric      distance.Metric
	topics []knowledge.Topic
}

// RetrieveOption configures a single Retrieve call.
type RetrieveOption func(*retrieveOptions)

// WithK sets the maximum number of results.
func WithK(k int) RetrieveOption {
	return func(o *retrieveOptions) {
		o.k = k
	}
}

// WithMetric selects cosine similarity or euclidean distance.
func WithMetric(m distance.Metric) RetrieveOption {
	return func(o *retrieveOptions) {
		o.metric = m
	}
}

// WithTopics restricts the search to passages tagged with any of topics.
// An empty list means no restriction.
func WithTopics(topics ...knowledge.Topic) RetrieveOption {
	return func(o *retrieveOptions) {
		o.topics = append(o.topics, topics...)
	}
}

// WithTopicNames is WithTopics for raw tag strings. Unknown tags are dropped,
// so a list of only unknown tags searches the whole corpus.
func WithTopicNames(names ...string) RetrieveOption {
	return func(o *retrieveOptions) {
		o.topics = append(o.topics, knowledge.ParseTopics(names)...)
	}
}
