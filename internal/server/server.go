package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	"github.com/RyanBlaney/doppler-analysis/configs"
	"github.com/RyanBlaney/doppler-analysis/internal/metrics"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/codec"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/render"
	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

// Version is reported by the health endpoint
var Version = "dev"

// Server exposes the synthesizer and the estimator over HTTP
type Server struct {
	config    configs.ServerConfig
	synth     *doppler.Synthesizer
	estimator *doppler.Estimator
	decoder   *codec.Decoder
	renderer  *render.SpectrogramRenderer
	jobs      *semaphore.Weighted
	recorder  metrics.Recorder
	logger    logging.Logger
	engine    *gin.Engine
	startedAt time.Time
}

// New builds a server and its routes from cfg
func New(cfg *configs.Config, recorder metrics.Recorder, logger logging.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	estimator, err := doppler.NewEstimator(cfg.EstimatorConfig())
	if err != nil {
		return nil, err
	}

	renderer, err := render.NewSpectrogramRenderer(cfg.RendererConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create spectrogram renderer: %w", err)
	}

	jobs := cfg.Server.MaxConcurrentJobs
	if jobs <= 0 {
		jobs = 1
	}

	s := &Server{
		config:    cfg.Server,
		synth:     doppler.NewSynthesizer(cfg.SynthesizerConfig()),
		estimator: estimator,
		decoder:   codec.NewDecoder(cfg.DecoderConfig()),
		renderer:  renderer,
		jobs:      semaphore.NewWeighted(int64(jobs)),
		recorder:  recorder,
		logger:    logger.WithFields(logging.Fields{"component": "http_server"}),
		startedAt: time.Now(),
	}
	s.engine = s.setupRoutes()

	return s, nil
}

// Handler returns the routed gin engine
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() *gin.Engine {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestID())
	r.Use(s.accessLog())

	r.POST("/simulate", s.Simulate)

	upload := r.Group("/upload_car")
	{
		upload.POST("", s.UploadCar)
		upload.POST("/spectrogram", s.UploadCarSpectrogram)
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.HealthCheck)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.engine,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", logging.Fields{
			"address":  s.config.Address,
			"max_jobs": s.config.MaxConcurrentJobs,
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server gracefully stopped")
	return nil
}

// acquireJob reserves a DSP slot, waiting at most the job timeout
func (s *Server) acquireJob(c *gin.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), s.config.JobTimeout)
	defer cancel()

	if err := s.jobs.Acquire(ctx, 1); err != nil {
		s.recorder.Count(metrics.MetricJobsRejected, "route:"+c.FullPath())
		return nil, errBusy
	}
	if ctx.Err() != nil {
		s.jobs.Release(1)
		s.recorder.Count(metrics.MetricJobsRejected, "route:"+c.FullPath())
		return nil, errBusy
	}
	return func() { s.jobs.Release(1) }, nil
}
