package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/doppler-analysis/configs"
)

// LoadConfigFile loads and validates a single configuration file on top of
// the defaults
func LoadConfigFile(filePath string) (*configs.Config, error) {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file does not exist: %s", filePath)
	}

	v := viper.New()
	configs.SetDefaults(v)
	v.SetConfigFile(filePath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	return configs.LoadConfigFrom(v)
}

// GenerateExampleConfig writes the default configuration as YAML
func GenerateExampleConfig(outputFile string) error {
	v := viper.New()
	configs.SetDefaults(v)

	data, err := yaml.Marshal(readableSettings(v.AllSettings()))
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// readableSettings renders durations as strings such as "1m30s"
func readableSettings(settings map[string]any) map[string]any {
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case time.Duration:
			out[k] = val.String()
		case map[string]any:
			out[k] = readableSettings(val)
		default:
			out[k] = val
		}
	}
	return out
}
