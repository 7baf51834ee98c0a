package configs

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
)

func TestDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, 90*time.Second, cfg.Server.JobTimeout)
	assert.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes)
	assert.False(t, cfg.Metrics.Enabled)

	assert.Equal(t, doppler.DefaultEstimatorConfig(), cfg.EstimatorConfig())
	assert.Equal(t, doppler.DefaultSynthesizerConfig(), cfg.SynthesizerConfig())

	dec := cfg.DecoderConfig()
	assert.Equal(t, doppler.SampleRate, dec.TargetSampleRate)
	assert.Equal(t, 60*doppler.SampleRate, dec.MaxSamples)

	assert.Equal(t, 1200, cfg.RendererConfig().Width)
	assert.Equal(t, "doppler.", cfg.MetricsRecorderConfig().Namespace)
}

func TestLoadConfigFromYAML(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(`
log_level: debug
server:
  address: ":8080"
  job_timeout: 5s
analysis:
  fft_size: 4096
  trim_fraction: 0.1
synth:
  noise_seed: 42
metrics:
  enabled: true
  tags: ["env:test"]
`)))

	cfg, err := LoadConfigFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.JobTimeout)
	assert.Equal(t, 4096, cfg.EstimatorConfig().FFTSize)
	assert.Equal(t, 0.1, cfg.EstimatorConfig().TrimFraction)
	assert.Equal(t, uint64(42), cfg.SynthesizerConfig().NoiseSeed)
	assert.Equal(t, []string{"env:test"}, cfg.Metrics.Tags)

	// untouched keys keep their defaults
	assert.Equal(t, 256, cfg.Analysis.HopLength)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"no jobs", func(c *Config) { c.Server.MaxConcurrentJobs = 0 }},
		{"no job timeout", func(c *Config) { c.Server.JobTimeout = 0 }},
		{"no upload size", func(c *Config) { c.Server.MaxUploadBytes = 0 }},
		{"negative duration", func(c *Config) { c.Synth.MaxDuration = -time.Second }},
		{"inverted band", func(c *Config) { c.Analysis.MinFreqHz = 20000 }},
		{"metrics without address", func(c *Config) {
			c.Metrics.Enabled = true
			c.Metrics.Address = ""
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			tt.modify(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}

	assert.NoError(t, ValidateConfig(GetDefaultConfig()))
}
