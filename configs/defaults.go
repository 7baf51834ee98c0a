package configs

import (
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
)

// SetDefaults registers default values for every configuration key
func SetDefaults(v *viper.Viper) {
	est := doppler.DefaultEstimatorConfig()

	// Application defaults
	v.SetDefault("verbose", false)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("output_format", "table")

	// Server defaults
	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 2*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.job_timeout", 90*time.Second)
	v.SetDefault("server.max_concurrent_jobs", 2)
	v.SetDefault("server.max_upload_bytes", 64<<20)

	// Synth defaults
	v.SetDefault("synth.max_duration", time.Minute)
	v.SetDefault("synth.noise_seed", doppler.DefaultSynthesizerConfig().NoiseSeed)

	// Analysis defaults
	v.SetDefault("analysis.fft_size", est.FFTSize)
	v.SetDefault("analysis.hop_length", est.HopLength)
	v.SetDefault("analysis.min_freq_hz", est.MinFreqHz)
	v.SetDefault("analysis.max_freq_hz", est.MaxFreqHz)
	v.SetDefault("analysis.peak_height_ratio", est.PeakHeightRatio)
	v.SetDefault("analysis.peak_distance", est.PeakDistance)
	v.SetDefault("analysis.max_median_kernel", est.MaxMedianKernel)
	v.SetDefault("analysis.trim_fraction", est.TrimFraction)
	v.SetDefault("analysis.approach_percentile", est.ApproachPercentile)
	v.SetDefault("analysis.recede_percentile", est.RecedePercentile)
	v.SetDefault("analysis.top_db", est.TopDB)
	v.SetDefault("analysis.max_duration", time.Minute)
	v.SetDefault("analysis.resample_quality", 4)

	// Render defaults
	v.SetDefault("render.width", 1200)
	v.SetDefault("render.height", 600)
	v.SetDefault("render.theme", "enhanced")
	v.SetDefault("render.dynamic_range_db", 80.0)
	v.SetDefault("render.max_freq_hz", 0.0)
	v.SetDefault("render.show_track", true)
	v.SetDefault("render.track_color", "#ffffff")
	v.SetDefault("render.font_size", 12.0)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.address", "127.0.0.1:8125")
	v.SetDefault("metrics.namespace", "doppler.")
	v.SetDefault("metrics.tags", []string{})
	v.SetDefault("metrics.sample_rate", 1.0)

	// Output defaults
	v.SetDefault("output.pretty", true)
	v.SetDefault("output.include_frames", false)
	v.SetDefault("output.include_spectrogram", false)
}

// GetDefaultConfig returns the configuration produced by the defaults alone
func GetDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	config, err := LoadConfigFrom(v)
	if err != nil {
		// the defaults are static and always valid
		panic(err)
	}
	return config
}

// DevelopmentServerConfig returns server settings suited to local use
func DevelopmentServerConfig() ServerConfig {
	return ServerConfig{
		Address:           "127.0.0.1:5000",
		Mode:              "debug",
		ReadTimeout:       time.Minute,
		WriteTimeout:      5 * time.Minute,
		ShutdownTimeout:   time.Second,
		JobTimeout:        5 * time.Minute,
		MaxConcurrentJobs: 2,
		MaxUploadBytes:    256 << 20,
	}
}
