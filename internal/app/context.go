package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/RyanBlaney/doppler-analysis/configs"
	"github.com/RyanBlaney/doppler-analysis/internal/metrics"
	"github.com/RyanBlaney/doppler-analysis/internal/output"
	"github.com/RyanBlaney/doppler-analysis/internal/server"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/codec"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/render"
	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

// Context holds the command line options of one invocation
type Context struct {
	// CLI arguments
	OutputFile      string
	OutputFormat    string
	SpectrogramFile string
	Verbose         bool
	Development     bool

	// Runtime context
	Logger logging.Logger
	Config *configs.Config
}

// App handles the application lifecycle
type App struct {
	ctx      *Context
	config   *configs.Config
	logger   logging.Logger
	recorder metrics.Recorder
}

// NewApp loads the global configuration and creates an application
func NewApp(ctx *Context) (*App, error) {
	config, err := configs.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return newApp(ctx, config)
}

func newApp(ctx *Context, config *configs.Config) (*App, error) {
	mergeContext(config, ctx)

	logger, err := logging.Configure(config.LoggingConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	ctx.Logger = logger
	ctx.Config = config

	recorder, err := metrics.New(config.MetricsRecorderConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics recorder: %w", err)
	}

	logger.Debug("Application initialized", logging.Fields{
		"output_format":    ctx.OutputFormat,
		"output_file":      ctx.OutputFile,
		"metrics_enabled":  config.Metrics.Enabled,
		"development_mode": ctx.Development,
	})

	return &App{
		ctx:      ctx,
		config:   config,
		logger:   logger,
		recorder: recorder,
	}, nil
}

// mergeContext applies command line overrides to the loaded configuration
func mergeContext(config *configs.Config, ctx *Context) {
	if ctx.Verbose {
		config.Verbose = true
	}
	if ctx.OutputFormat == "" {
		ctx.OutputFormat = config.OutputFormat
	}
	if ctx.Development {
		config.Server = configs.DevelopmentServerConfig()
	}
}

// Close flushes metrics and logs
func (app *App) Close() error {
	err := app.recorder.Close()
	_ = app.logger.Sync()
	return err
}

// Simulate synthesizes a pass and writes it as WAV to the output file
func (app *App) Simulate(ctx context.Context, req doppler.SimulationRequest) error {
	if app.ctx.OutputFile == "" {
		return fmt.Errorf("an output file is required for simulation")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	signal, err := doppler.NewSynthesizer(app.config.SynthesizerConfig()).Synthesize(req)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}
	app.recorder.Timing(metrics.MetricSynthesisDuration, time.Since(start), "kind:"+string(req.Kind))

	size, err := writeWAVFile(app.ctx.OutputFile, signal.Samples, signal.SampleRate)
	if err != nil {
		return err
	}

	app.logger.Info("Simulation written", logging.Fields{
		"output_file": app.ctx.OutputFile,
		"kind":        req.Kind,
		"duration_s":  signal.Duration(),
		"size":        humanize.Bytes(uint64(size)),
	})

	return nil
}

// writeWAVFile encodes samples to path and returns the file size. A file that
// fails to encode or close is removed.
func writeWAVFile(path string, samples []float64, sampleRate int) (size int64, err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close output file: %w", cerr)
		}
		if err != nil {
			os.Remove(path)
		}
	}()

	if err := codec.EncodeWAV(f, samples, sampleRate); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat output file: %w", err)
	}
	return info.Size(), nil
}

// Analyze estimates velocity from an audio file and prints the results
func (app *App) Analyze(ctx context.Context, inputFile string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	audio, err := codec.NewDecoder(app.config.DecoderConfig()).DecodeFile(inputFile, f)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", inputFile, err)
	}

	app.logger.Debug("Audio decoded", logging.Fields{
		"input_file":  inputFile,
		"format":      audio.Format,
		"channels":    audio.Channels,
		"sample_rate": audio.SampleRate,
		"duration_s":  audio.Duration.Seconds(),
	})

	estimator, err := doppler.NewEstimator(app.config.EstimatorConfig())
	if err != nil {
		return err
	}
	analysis, err := estimator.Analyze(audio.PCM, audio.SampleRate)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	elapsed := time.Since(start)
	app.recorder.Timing(metrics.MetricAnalysisDuration, elapsed, "format:"+audio.Format)
	app.recorder.Gauge(metrics.MetricEstimatedVelocity, analysis.Estimate.EstimatedVelocityMps)
	app.recorder.Gauge(metrics.MetricSourceFrequency, analysis.Estimate.FSourceHz)

	if app.ctx.SpectrogramFile != "" {
		if err := app.writeSpectrogram(analysis); err != nil {
			return err
		}
	}

	return app.outputResults(buildReport(inputFile, audio, analysis, app.config.Output, elapsed))
}

// Serve runs the HTTP server until ctx is cancelled
func (app *App) Serve(ctx context.Context) error {
	srv, err := server.New(app.config, app.recorder, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(ctx)
}

// buildReport assembles the CLI view of an analysis
func buildReport(inputFile string, audio *codec.AudioData, a *doppler.Analysis, opts configs.OutputConfig, elapsed time.Duration) map[string]any {
	report := map[string]any{
		"input": map[string]any{
			"file":        inputFile,
			"format":      audio.Format,
			"channels":    audio.Channels,
			"sample_rate": audio.SampleRate,
			"duration_s":  audio.Duration.Seconds(),
		},
		"estimate": map[string]any{
			"estimated_velocity": a.Estimate.EstimatedVelocityMps,
			"velocity_kmh":       a.Estimate.EstimatedVelocityMps * 3.6,
			"f_approach":         a.Estimate.FApproachHz,
			"f_recede":           a.Estimate.FRecedeHz,
			"f_source":           a.Estimate.FSourceHz,
		},
		"analysis": map[string]any{
			"frames":     len(a.Track.Times),
			"n_fft":      a.FFTSize,
			"hop_length": a.HopLength,
			"elapsed_ms": elapsed.Milliseconds(),
		},
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if opts.IncludeFrames {
		report["frames"] = map[string]any{
			"times":           a.Track.Times,
			"frequencies":     a.Track.Frequencies,
			"raw_frequencies": a.RawFrequencies,
			"velocities":      a.Estimate.PerFrameVelocities,
		}
	}
	if opts.IncludeSpectrogram {
		report["spectrogram"] = a.Spectrogram
		report["freq_axis"] = a.FreqAxis
	}

	return report
}

// outputResults formats the report and writes it to the output file or stdout
func (app *App) outputResults(report map[string]any) error {
	formatter := output.NewFormatter(app.ctx.OutputFormat)

	formattedData, err := formatter.Format(report, app.config.Output.Pretty)
	if err != nil {
		// NaN and Inf are rejected by the JSON encoder
		if strings.Contains(err.Error(), "unsupported value") {
			formattedData, err = formatter.Format(output.Sanitize(report), app.config.Output.Pretty)
		}
		if err != nil {
			return fmt.Errorf("failed to format output data: %w", err)
		}
	}

	if app.ctx.OutputFile != "" {
		return app.writeToFile(app.ctx.OutputFile, formattedData)
	}

	_, err = os.Stdout.Write(formattedData)
	return err
}

func (app *App) writeSpectrogram(a *doppler.Analysis) error {
	renderer, err := render.NewSpectrogramRenderer(app.config.RendererConfig())
	if err != nil {
		return err
	}

	f, err := os.Create(app.ctx.SpectrogramFile)
	if err != nil {
		return fmt.Errorf("failed to create spectrogram file: %w", err)
	}
	defer f.Close()

	if err := renderer.RenderPNG(f, render.NewSpectrogram(a)); err != nil {
		return fmt.Errorf("failed to render spectrogram: %w", err)
	}

	app.logger.Debug("Spectrogram written", logging.Fields{
		"spectrogram_file": app.ctx.SpectrogramFile,
		"theme":            app.config.Render.Theme,
	})
	return nil
}

// writeToFile writes data to the specified output file
func (app *App) writeToFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	app.logger.Debug("Results written to file", logging.Fields{
		"output_file": path,
		"size":        humanize.Bytes(uint64(len(data))),
	})

	return nil
}
