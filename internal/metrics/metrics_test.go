package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
	rate  float64
}

type fakeClient struct {
	mu     sync.Mutex
	calls  []call
	err    error
	closed bool
}

func (f *fakeClient) record(c call) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeClient) Incr(name string, tags []string, rate float64) error {
	return f.record(call{kind: "incr", name: name, value: 1, tags: tags, rate: rate})
}

func (f *fakeClient) Timing(name string, value time.Duration, tags []string, rate float64) error {
	return f.record(call{kind: "timing", name: name, value: float64(value.Milliseconds()), tags: tags, rate: rate})
}

func (f *fakeClient) Gauge(name string, value float64, tags []string, rate float64) error {
	return f.record(call{kind: "gauge", name: name, value: value, tags: tags, rate: rate})
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestStatsdRecorder(t *testing.T) {
	fake := &fakeClient{}
	r := NewStatsdRecorder(fake, 0, logging.NewDefaultLogger())

	r.Count(MetricRequests, "endpoint:simulate", "status:200")
	r.Timing(MetricAnalysisDuration, 250*time.Millisecond)
	r.Gauge(MetricEstimatedVelocity, 28.5, "kind:upload")
	require.NoError(t, r.Close())

	require.Len(t, fake.calls, 3)
	assert.Equal(t, call{kind: "incr", name: MetricRequests, value: 1, tags: []string{"endpoint:simulate", "status:200"}, rate: 1}, fake.calls[0])
	assert.Equal(t, 250.0, fake.calls[1].value)
	assert.Equal(t, 28.5, fake.calls[2].value)
	assert.True(t, fake.closed)
}

func TestStatsdRecorderSwallowsErrors(t *testing.T) {
	fake := &fakeClient{err: errors.New("socket closed")}
	r := NewStatsdRecorder(fake, 0.5, logging.NewDefaultLogger())

	assert.NotPanics(t, func() { r.Count(MetricRequests) })
	assert.Equal(t, 0.5, fake.calls[0].rate)
}

func TestNewDisabled(t *testing.T) {
	r, err := New(Config{Enabled: false}, logging.NewDefaultLogger())
	require.NoError(t, err)
	assert.IsType(t, NoopRecorder{}, r)
	assert.NoError(t, r.Close())
}

func TestNewEnabled(t *testing.T) {
	r, err := New(Config{
		Enabled:   true,
		Address:   "127.0.0.1:8125",
		Namespace: "doppler.",
		Tags:      []string{"env:test"},
	}, logging.NewDefaultLogger())
	require.NoError(t, err)
	assert.IsType(t, &StatsdRecorder{}, r)

	r.Count(MetricRequests)
	assert.NoError(t, r.Close())
}
