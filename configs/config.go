package configs

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/doppler-analysis/internal/metrics"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/codec"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/render"
	"github.com/RyanBlaney/doppler-analysis/pkg/logging"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
	OutputFormat string `mapstructure:"output_format"`

	// HTTP server configuration
	Server ServerConfig `mapstructure:"server"`

	// Pass synthesis configuration
	Synth SynthConfig `mapstructure:"synth"`

	// Velocity estimation configuration
	Analysis AnalysisConfig `mapstructure:"analysis"`

	// Spectrogram image configuration
	Render RenderConfig `mapstructure:"render"`

	// DogStatsD configuration
	Metrics MetricsConfig `mapstructure:"metrics"`

	// CLI output configuration
	Output OutputConfig `mapstructure:"output"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address           string        `mapstructure:"address"`
	Mode              string        `mapstructure:"mode"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	JobTimeout        time.Duration `mapstructure:"job_timeout"`
	MaxConcurrentJobs int           `mapstructure:"max_concurrent_jobs"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
}

// SynthConfig contains synthesizer settings
type SynthConfig struct {
	MaxDuration time.Duration `mapstructure:"max_duration"`
	NoiseSeed   uint64        `mapstructure:"noise_seed"`
}

// AnalysisConfig contains estimator and decoder settings
type AnalysisConfig struct {
	FFTSize            int           `mapstructure:"fft_size"`
	HopLength          int           `mapstructure:"hop_length"`
	MinFreqHz          float64       `mapstructure:"min_freq_hz"`
	MaxFreqHz          float64       `mapstructure:"max_freq_hz"`
	PeakHeightRatio    float64       `mapstructure:"peak_height_ratio"`
	PeakDistance       int           `mapstructure:"peak_distance"`
	MaxMedianKernel    int           `mapstructure:"max_median_kernel"`
	TrimFraction       float64       `mapstructure:"trim_fraction"`
	ApproachPercentile float64       `mapstructure:"approach_percentile"`
	RecedePercentile   float64       `mapstructure:"recede_percentile"`
	TopDB              float64       `mapstructure:"top_db"`
	MaxDuration        time.Duration `mapstructure:"max_duration"`
	ResampleQuality    int           `mapstructure:"resample_quality"`
}

// RenderConfig contains spectrogram image settings
type RenderConfig struct {
	Width          int     `mapstructure:"width"`
	Height         int     `mapstructure:"height"`
	Theme          string  `mapstructure:"theme"`
	DynamicRangeDB float64 `mapstructure:"dynamic_range_db"`
	MaxFreqHz      float64 `mapstructure:"max_freq_hz"`
	ShowTrack      bool    `mapstructure:"show_track"`
	TrackColor     string  `mapstructure:"track_color"`
	FontSize       float64 `mapstructure:"font_size"`
}

// MetricsConfig contains DogStatsD settings
type MetricsConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Address    string   `mapstructure:"address"`
	Namespace  string   `mapstructure:"namespace"`
	Tags       []string `mapstructure:"tags"`
	SampleRate float64  `mapstructure:"sample_rate"`
}

// OutputConfig contains CLI output settings
type OutputConfig struct {
	Pretty             bool `mapstructure:"pretty"`
	IncludeFrames      bool `mapstructure:"include_frames"`
	IncludeSpectrogram bool `mapstructure:"include_spectrogram"`
}

// LoadConfig loads configuration from the global viper instance
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(viper.GetViper())
}

// LoadConfigFrom decodes and validates configuration from v
func LoadConfigFrom(v *viper.Viper) (*Config, error) {
	config := &Config{}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if _, err := logging.ParseLevel(config.LogLevel); err != nil {
		return err
	}

	if config.Server.MaxConcurrentJobs <= 0 {
		return fmt.Errorf("server max_concurrent_jobs must be positive")
	}

	if config.Server.JobTimeout <= 0 {
		return fmt.Errorf("server job_timeout must be positive")
	}

	if config.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server max_upload_bytes must be positive")
	}

	if config.Synth.MaxDuration < 0 || config.Analysis.MaxDuration < 0 {
		return fmt.Errorf("max durations cannot be negative")
	}

	if err := config.EstimatorConfig().Validate(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}

	if config.Metrics.Enabled && config.Metrics.Address == "" {
		return fmt.Errorf("metrics address is required when metrics are enabled")
	}

	return nil
}

// SynthesizerConfig maps the synth section onto the synthesizer
func (c *Config) SynthesizerConfig() doppler.SynthesizerConfig {
	return doppler.SynthesizerConfig{
		MaxSamples: durationToSamples(c.Synth.MaxDuration),
		NoiseSeed:  c.Synth.NoiseSeed,
	}
}

// EstimatorConfig maps the analysis section onto the estimator
func (c *Config) EstimatorConfig() doppler.EstimatorConfig {
	cfg := doppler.DefaultEstimatorConfig()
	cfg.FFTSize = c.Analysis.FFTSize
	cfg.HopLength = c.Analysis.HopLength
	cfg.MinFreqHz = c.Analysis.MinFreqHz
	cfg.MaxFreqHz = c.Analysis.MaxFreqHz
	cfg.PeakHeightRatio = c.Analysis.PeakHeightRatio
	cfg.PeakDistance = c.Analysis.PeakDistance
	cfg.MaxMedianKernel = c.Analysis.MaxMedianKernel
	cfg.TrimFraction = c.Analysis.TrimFraction
	cfg.ApproachPercentile = c.Analysis.ApproachPercentile
	cfg.RecedePercentile = c.Analysis.RecedePercentile
	cfg.TopDB = c.Analysis.TopDB
	cfg.MaxSamples = durationToSamples(c.Analysis.MaxDuration)
	return cfg
}

// DecoderConfig maps the analysis section onto the audio decoder
func (c *Config) DecoderConfig() codec.DecoderConfig {
	return codec.DecoderConfig{
		TargetSampleRate: doppler.SampleRate,
		ResampleQuality:  c.Analysis.ResampleQuality,
		MaxSamples:       durationToSamples(c.Analysis.MaxDuration),
	}
}

// RendererConfig maps the render section onto the spectrogram renderer
func (c *Config) RendererConfig() render.RenderConfig {
	return render.RenderConfig{
		Width:          c.Render.Width,
		Height:         c.Render.Height,
		ColorTheme:     render.ColorTheme(c.Render.Theme),
		DynamicRangeDB: c.Render.DynamicRangeDB,
		MaxFreqHz:      c.Render.MaxFreqHz,
		ShowTrack:      c.Render.ShowTrack,
		TrackColor:     c.Render.TrackColor,
		FontSize:       c.Render.FontSize,
	}
}

// MetricsRecorderConfig maps the metrics section onto the recorder
func (c *Config) MetricsRecorderConfig() metrics.Config {
	return metrics.Config{
		Enabled:    c.Metrics.Enabled,
		Address:    c.Metrics.Address,
		Namespace:  c.Metrics.Namespace,
		Tags:       c.Metrics.Tags,
		SampleRate: c.Metrics.SampleRate,
	}
}

// LoggingConfig maps the application settings onto the logger
func (c *Config) LoggingConfig() logging.Config {
	return logging.Config{
		Level:   c.LogLevel,
		Verbose: c.Verbose,
		Format:  c.LogFormat,
	}
}

func durationToSamples(d time.Duration) int {
	return int(d.Seconds() * doppler.SampleRate)
}
