package metrics

import (
	"fmt"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"

	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

// Metric names, relative to the configured namespace
const (
	MetricRequests          = "requests"
	MetricRequestDuration   = "request.duration"
	MetricSynthesisDuration = "synthesis.duration"
	MetricAnalysisDuration  = "analysis.duration"
	MetricEstimatedVelocity = "estimate.velocity_mps"
	MetricSourceFrequency   = "estimate.f_source_hz"
	MetricJobsRejected      = "jobs.rejected"
)

// Config holds the statsd settings
type Config struct {
	Enabled    bool
	Address    string
	Namespace  string
	Tags       []string
	SampleRate float64
}

// Recorder collects service metrics
type Recorder interface {
	Count(name string, tags ...string)
	Timing(name string, d time.Duration, tags ...string)
	Gauge(name string, value float64, tags ...string)
	Close() error
}

// client is the part of statsd.ClientInterface the recorder uses
type client interface {
	Incr(name string, tags []string, rate float64) error
	Timing(name string, value time.Duration, tags []string, rate float64) error
	Gauge(name string, value float64, tags []string, rate float64) error
	Close() error
}

// New returns a statsd recorder, or a no-op recorder when metrics are disabled
func New(cfg Config, logger logging.Logger) (Recorder, error) {
	if !cfg.Enabled {
		return NoopRecorder{}, nil
	}

	opts := []statsd.Option{statsd.WithTags(cfg.Tags)}
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}

	c, err := statsd.New(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create statsd client for %s: %w", cfg.Address, err)
	}

	logger.Debug("Metrics enabled", logging.Fields{
		"address":   cfg.Address,
		"namespace": cfg.Namespace,
	})
	return NewStatsdRecorder(c, cfg.SampleRate, logger), nil
}

// StatsdRecorder sends metrics through a DogStatsD client
type StatsdRecorder struct {
	client client
	rate   float64
	logger logging.Logger
}

// NewStatsdRecorder wraps an existing client
func NewStatsdRecorder(c client, rate float64, logger logging.Logger) *StatsdRecorder {
	if rate <= 0 || rate > 1 {
		rate = 1
	}
	return &StatsdRecorder{
		client: c,
		rate:   rate,
		logger: logger.WithFields(logging.Fields{"component": "metrics"}),
	}
}

func (r *StatsdRecorder) Count(name string, tags ...string) {
	r.report(name, r.client.Incr(name, tags, r.rate))
}

func (r *StatsdRecorder) Timing(name string, d time.Duration, tags ...string) {
	r.report(name, r.client.Timing(name, d, tags, r.rate))
}

func (r *StatsdRecorder) Gauge(name string, value float64, tags ...string) {
	r.report(name, r.client.Gauge(name, value, tags, r.rate))
}

func (r *StatsdRecorder) Close() error {
	return r.client.Close()
}

// report logs send failures; metrics never fail a request
func (r *StatsdRecorder) report(name string, err error) {
	if err != nil {
		r.logger.Warn("Failed to send metric", logging.Fields{
			"metric": name,
			"error":  err.Error(),
		})
	}
}

// NoopRecorder discards everything
type NoopRecorder struct{}

func (NoopRecorder) Count(string, ...string)                 {}
func (NoopRecorder) Timing(string, time.Duration, ...string) {}
func (NoopRecorder) Gauge(string, float64, ...string)        {}
func (NoopRecorder) Close() error                            { return nil }
