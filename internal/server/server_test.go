package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/RyanBlaney/doppler-analysis/configs"
	"github.com/RyanBlaney/doppler-analysis/internal/metrics"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/codec"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
)

type recordedMetric struct {
	name string
	tags []string
}

type fakeRecorder struct {
	mu     sync.Mutex
	counts []recordedMetric
	gauges map[string]float64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{gauges: map[string]float64{}}
}

func (r *fakeRecorder) Count(name string, tags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = append(r.counts, recordedMetric{name: name, tags: tags})
}

func (r *fakeRecorder) Timing(string, time.Duration, ...string) {}

func (r *fakeRecorder) Gauge(name string, value float64, _ ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

func (r *fakeRecorder) Close() error { return nil }

func (r *fakeRecorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.counts {
		if m.name == name {
			n++
		}
	}
	return n
}

func testConfig() *configs.Config {
	cfg := configs.GetDefaultConfig()
	cfg.Server.Mode = gin.TestMode
	return cfg
}

func newTestServer(t *testing.T, cfg *configs.Config, rec metrics.Recorder) *Server {
	t.Helper()
	s, err := New(cfg, rec, nil)
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func uploadRequest(t *testing.T, target, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	assert.Contains(t, body, "timestamp")
	assert.Len(t, body["supported_formats"], 4)

	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestRequestIDPassthrough(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	id := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, id)
	w := serve(s, req)
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	w = serve(s, req)
	assert.NotEqual(t, "not-a-uuid", w.Header().Get(RequestIDHeader))
}

func TestAccessLogCountsRequests(t *testing.T) {
	rec := newFakeRecorder()
	s := newTestServer(t, testConfig(), rec)

	serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	serve(s, httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Equal(t, 2, rec.count(metrics.MetricRequests))
	assert.Contains(t, rec.counts[0].tags, "route:/api/health")
	assert.Contains(t, rec.counts[1].tags, "status:404")
}

func TestSimulate(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := serve(s, jsonRequest(t, "/simulate", map[string]any{
		"type": 0, "freq": 500, "speed": 100, "dist": 20,
	}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/wav", w.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", w.Body.String()[:4])

	audio, err := codec.DecodeFile("sim.wav", bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, doppler.SampleRate, audio.SampleRate)
	assert.Len(t, audio.PCM, 176400)
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed body", "not json", http.StatusBadRequest},
		{"missing speed", map[string]any{"type": 1, "freq": 500, "dist": 20}, http.StatusBadRequest},
		{"negative distance", map[string]any{"type": 1, "freq": 500, "speed": 30, "dist": -5}, http.StatusBadRequest},
		{"negative frequency", map[string]any{"type": 2, "freq": -1, "speed": 30, "dist": 5}, http.StatusBadRequest},
		{"pass too long", map[string]any{"type": 0, "freq": 500, "speed": 1, "dist": 5}, http.StatusBadRequest},
	}

	s := newTestServer(t, testConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, jsonRequest(t, "/simulate", tt.body))
			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, errorBody(t, w))
		})
	}
}

func TestJobLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxConcurrentJobs = 1
	cfg.Server.JobTimeout = 10 * time.Millisecond
	rec := newFakeRecorder()
	s := newTestServer(t, cfg, rec)

	require.NoError(t, s.jobs.Acquire(context.Background(), 1))
	defer s.jobs.Release(1)

	w := serve(s, jsonRequest(t, "/simulate", map[string]any{
		"type": 0, "freq": 500, "speed": 100, "dist": 20,
	}))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 1, rec.count(metrics.MetricJobsRejected))
}

func TestUploadValidation(t *testing.T) {
	short, err := codec.EncodeWAVBytes(make([]float64, 1000), doppler.SampleRate)
	require.NoError(t, err)

	tests := []struct {
		name     string
		filename string
		data     []byte
		status   int
		errMsg   string
	}{
		{"no file", "", nil, http.StatusBadRequest, "No file uploaded"},
		{"bad extension", "car.txt", []byte("hello"), http.StatusBadRequest, "files are supported"},
		{"undecodable", "car.wav", []byte("definitely not a wav file"), http.StatusUnprocessableEntity, "Error processing file"},
		{"too short", "car.wav", short, http.StatusBadRequest, "fewer than one"},
	}

	s := newTestServer(t, testConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, uploadRequest(t, "/upload_car", tt.filename, tt.data))
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, errorBody(t, w), tt.errMsg)
		})
	}
}

func TestUploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Server.MaxUploadBytes = 1024
	s := newTestServer(t, cfg, nil)

	w := serve(s, uploadRequest(t, "/upload_car", "car.wav", make([]byte, 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestUploadInvalidQuery(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	w := serve(s, uploadRequest(t, "/upload_car?spectrogram=maybe", "car.wav", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(s, uploadRequest(t, "/upload_car/spectrogram?theme=neon", "car.wav", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errBusy, http.StatusServiceUnavailable},
		{errTooLarge, http.StatusRequestEntityTooLarge},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{&doppler.DopplerError{Code: doppler.ErrCodeInvalidParameter, Cause: doppler.ErrInvalidParameter}, http.StatusBadRequest},
		{&doppler.DopplerError{Code: doppler.ErrCodeEmptySignal, Cause: doppler.ErrEmptySignal}, http.StatusBadRequest},
		{&doppler.DopplerError{Code: doppler.ErrCodeSignalTooLong, Cause: doppler.ErrSignalTooLong}, http.StatusRequestEntityTooLarge},
		{&doppler.DopplerError{Code: doppler.ErrCodeDegenerateSignal, Cause: doppler.ErrDegenerateSignal}, http.StatusUnprocessableEntity},
		{codec.NewCodecError("wav", codec.ErrCodeTooLong, "long", nil), http.StatusRequestEntityTooLarge},
		{codec.NewCodecError("xyz", codec.ErrCodeUnsupported, "nope", nil), http.StatusBadRequest},
		{codec.NewCodecError("mp3", codec.ErrCodeDecoding, "broken", nil), http.StatusUnprocessableEntity},
		{codec.NewCodecError("wav", codec.ErrCodeEncoding, "broken", nil), http.StatusInternalServerError},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

// UploadSuite runs the full pipeline against a synthesized pass
type UploadSuite struct {
	suite.Suite
	server   *Server
	recorder *fakeRecorder
	wav      []byte
}

func (s *UploadSuite) SetupSuite() {
	signal, err := doppler.Synthesize(doppler.SimulationRequest{
		Kind:               doppler.WaveformSine,
		SourceFreqHz:       500,
		SpeedMps:           30,
		PerpendicularDistM: 50,
	})
	s.Require().NoError(err)

	s.wav, err = codec.EncodeWAVBytes(signal.Samples, signal.SampleRate)
	s.Require().NoError(err)

	s.recorder = newFakeRecorder()
	srv, err := New(testConfig(), s.recorder, nil)
	s.Require().NoError(err)
	s.server = srv
}

func (s *UploadSuite) TestUploadCar() {
	w := serve(s.server, uploadRequest(s.T(), "/upload_car", "pass.wav", s.wav))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var resp AnalysisResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))

	s.Equal(AnalysisMessage, resp.Message)
	s.InEpsilon(30.0, resp.EstimatedVelocity, 0.1)
	s.InDelta(500.0, resp.FSource, 5)
	s.Greater(resp.FApproach, resp.FRecede)

	frames := len(resp.Times)
	s.Len(resp.Frequencies, frames)
	s.Len(resp.RawFrequencies, frames)
	s.Len(resp.Velocities, frames)
	s.Len(resp.Spectrogram, frames)
	s.Len(resp.Spectrogram[0], len(resp.FreqAxis))

	s.InDelta(resp.EstimatedVelocity, s.recorder.gauges[metrics.MetricEstimatedVelocity], 1e-9)
}

func (s *UploadSuite) TestUploadCarWithoutSpectrogram() {
	w := serve(s.server, uploadRequest(s.T(), "/upload_car?spectrogram=false", "pass.wav", s.wav))
	s.Require().Equal(http.StatusOK, w.Code)

	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.NotContains(body, "spectrogram")
	s.Contains(body, "raw_frequencies")
}

func (s *UploadSuite) TestUploadCarSpectrogram() {
	w := serve(s.server, uploadRequest(s.T(), "/upload_car/spectrogram?theme=thermal", "pass.wav", s.wav))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("image/png", w.Header().Get("Content-Type"))
	s.Equal("\x89PNG", w.Body.String()[:4])
}

func TestUploadSuite(t *testing.T) {
	suite.Run(t, new(UploadSuite))
}
