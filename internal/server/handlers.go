package server

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/RyanBlaney/doppler-analysis/internal/metrics"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/codec"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/render"
	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

// AnalysisMessage is returned with every successful analysis
const AnalysisMessage = "Analysis completed successfully"

// SimulateRequest is the body of POST /simulate
type SimulateRequest struct {
	Type  int     `json:"type"`
	Freq  float64 `json:"freq" binding:"required"`
	Speed float64 `json:"speed" binding:"required"`
	Dist  float64 `json:"dist" binding:"required"`
}

// SimulationRequest converts the wire form into a synthesizer request
func (r SimulateRequest) SimulationRequest() doppler.SimulationRequest {
	return doppler.SimulationRequest{
		Kind:               doppler.WaveformKindFromCode(r.Type),
		SourceFreqHz:       r.Freq,
		SpeedMps:           r.Speed,
		PerpendicularDistM: r.Dist,
	}
}

// AnalysisResponse is the body returned by POST /upload_car
type AnalysisResponse struct {
	Times             []float64   `json:"times"`
	Frequencies       []float64   `json:"frequencies"`
	RawFrequencies    []float64   `json:"raw_frequencies"`
	Velocities        []float64   `json:"velocities"`
	Spectrogram       [][]float64 `json:"spectrogram,omitempty"`
	FreqAxis          []float64   `json:"freq_axis"`
	EstimatedVelocity float64     `json:"estimated_velocity"`
	FApproach         float64     `json:"f_approach"`
	FRecede           float64     `json:"f_recede"`
	FSource           float64     `json:"f_source"`
	Message           string      `json:"message"`
}

// NewAnalysisResponse flattens an analysis into the response body
func NewAnalysisResponse(a *doppler.Analysis, includeSpectrogram bool) *AnalysisResponse {
	resp := &AnalysisResponse{
		Times:             a.Track.Times,
		Frequencies:       a.Track.Frequencies,
		RawFrequencies:    a.RawFrequencies,
		Velocities:        a.Estimate.PerFrameVelocities,
		FreqAxis:          a.FreqAxis,
		EstimatedVelocity: a.Estimate.EstimatedVelocityMps,
		FApproach:         a.Estimate.FApproachHz,
		FRecede:           a.Estimate.FRecedeHz,
		FSource:           a.Estimate.FSourceHz,
		Message:           AnalysisMessage,
	}
	if includeSpectrogram {
		resp.Spectrogram = a.Spectrogram
	}
	return resp
}

// Simulate renders a pass and returns it as a WAV file
func (s *Server) Simulate(c *gin.Context) {
	var req SimulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request: "+err.Error())
		return
	}

	release, err := s.acquireJob(c)
	if err != nil {
		s.abortWithError(c, err, "Simulation rejected")
		return
	}
	defer release()

	simReq := req.SimulationRequest()
	start := time.Now()
	signal, err := s.synth.Synthesize(simReq)
	if err != nil {
		s.abortWithError(c, err, "Simulation failed")
		return
	}
	s.recorder.Timing(metrics.MetricSynthesisDuration, time.Since(start), "kind:"+string(simReq.Kind))

	wav, err := codec.EncodeWAVBytes(signal.Samples, signal.SampleRate)
	if err != nil {
		s.abortWithError(c, err, "Failed to encode simulation")
		return
	}

	requestLogger(c, s.logger).Debug("Simulation rendered", logging.Fields{
		"kind":       simReq.Kind,
		"samples":    len(signal.Samples),
		"duration_s": signal.Duration(),
		"size":       humanize.Bytes(uint64(len(wav))),
	})

	c.Header("Content-Disposition", `attachment; filename="doppler_simulation.wav"`)
	c.Data(http.StatusOK, "audio/wav", wav)
}

// UploadCar estimates source frequency and velocity from an uploaded recording
func (s *Server) UploadCar(c *gin.Context) {
	includeSpectrogram := true
	if v := c.Query("spectrogram"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "spectrogram must be a boolean")
			return
		}
		includeSpectrogram = b
	}

	analysis, ok := s.analyzeUpload(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, NewAnalysisResponse(analysis, includeSpectrogram))
}

// UploadCarSpectrogram analyses an uploaded recording and returns the
// annotated spectrogram as PNG
func (s *Server) UploadCarSpectrogram(c *gin.Context) {
	renderer := s.renderer
	if theme := c.Query("theme"); theme != "" {
		if !validTheme(theme) {
			badRequest(c, "unknown theme "+strconv.Quote(theme))
			return
		}
		cfg := renderer.Config()
		cfg.ColorTheme = render.ColorTheme(theme)
		r, err := render.NewSpectrogramRenderer(cfg)
		if err != nil {
			s.abortWithError(c, err, "Failed to create renderer")
			return
		}
		renderer = r
	}

	analysis, ok := s.analyzeUpload(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := renderer.RenderPNG(&buf, render.NewSpectrogram(analysis)); err != nil {
		s.abortWithError(c, err, "Failed to render spectrogram")
		return
	}

	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

// HealthCheck reports service status
func (s *Server) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Doppler analysis API is running",
		"status":  "healthy",
		"version": Version,
		"started": humanize.Time(s.startedAt),
		"supported_applications": []string{
			"Doppler Simulation",
			"Doppler Velocity Estimation",
			"Spectrogram Rendering",
		},
		"supported_formats": codec.SupportedFormats(),
		"timestamp":         time.Now().Format(time.RFC3339),
	})
}

// analyzeUpload runs the decode and estimate pipeline on the "file" form
// field. It writes the error response itself and reports false on failure.
func (s *Server) analyzeUpload(c *gin.Context) (*doppler.Analysis, bool) {
	if c.Request.ContentLength > s.config.MaxUploadBytes {
		s.abortWithError(c, errTooLarge, "Upload rejected")
		return nil, false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxUploadBytes)

	file, err := c.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.abortWithError(c, errTooLarge, "Upload rejected")
			return nil, false
		}
		badRequest(c, "No file uploaded")
		return nil, false
	}
	if file.Filename == "" {
		badRequest(c, "No file selected")
		return nil, false
	}
	if !codec.IsSupported(file.Filename) {
		badRequest(c, "Only ."+strings.Join(codec.SupportedFormats(), ", .")+" files are supported")
		return nil, false
	}

	logger := requestLogger(c, s.logger).WithFields(logging.Fields{"filename": file.Filename})
	logger.Info("Received upload", logging.Fields{"size": humanize.Bytes(uint64(file.Size))})

	release, err := s.acquireJob(c)
	if err != nil {
		s.abortWithError(c, err, "Analysis rejected")
		return nil, false
	}
	defer release()

	f, err := file.Open()
	if err != nil {
		s.abortWithError(c, err, "Error reading upload")
		return nil, false
	}
	defer f.Close()

	start := time.Now()
	audio, err := s.decoder.DecodeFile(file.Filename, f)
	if err != nil {
		s.abortWithError(c, err, "Error processing file")
		return nil, false
	}

	analysis, err := s.estimator.Analyze(audio.PCM, audio.SampleRate)
	if err != nil {
		s.abortWithError(c, err, "Error processing file")
		return nil, false
	}

	elapsed := time.Since(start)
	s.recorder.Timing(metrics.MetricAnalysisDuration, elapsed, "format:"+audio.Format)
	s.recorder.Gauge(metrics.MetricEstimatedVelocity, analysis.Estimate.EstimatedVelocityMps)
	s.recorder.Gauge(metrics.MetricSourceFrequency, analysis.Estimate.FSourceHz)

	logger.Info("Analysis complete", logging.Fields{
		"duration_s":         audio.Duration.Seconds(),
		"frames":             len(analysis.Track.Times),
		"estimated_velocity": analysis.Estimate.EstimatedVelocityMps,
		"f_source":           analysis.Estimate.FSourceHz,
		"elapsed_ms":         elapsed.Milliseconds(),
	})

	return analysis, true
}

func validTheme(name string) bool {
	for _, t := range render.Themes() {
		if string(t) == name {
			return true
		}
	}
	return false
}
