package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/doppler-analysis/configs"
	"github.com/RyanBlaney/doppler-analysis/internal/app"
)

const (
	ColorGreen = "\033[32m"
	ColorReset = "\033[0m"
)

var configGenerate string

// configTestCmd represents the config test command
var configTestCmd = &cobra.Command{
	Use:   "config-test",
	Short: "Test and display all configuration values",
	Long: `Test configuration loading and display all values to verify proper parsing.

Examples:
  # Test with the config file found on the search path
  doppler config-test

  # Test with a specific config file
  doppler --config /path/to/doppler.yaml config-test

  # Write the default configuration as a starting point
  doppler config-test --generate ./configs/doppler.yaml`,
	RunE: runConfigTest,
}

func init() {
	rootCmd.AddCommand(configTestCmd)

	configTestCmd.Flags().StringVar(&configGenerate, "generate", "", "write the default configuration to this file and exit")
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	if configGenerate != "" {
		if err := app.GenerateExampleConfig(configGenerate); err != nil {
			return err
		}
		fmt.Printf("Example configuration written to: %s\n", configGenerate)
		return nil
	}

	fmt.Println("DOPPLER CONFIGURATION TEST")
	fmt.Println(strings.Repeat("=", 80))

	var (
		config *configs.Config
		err    error
	)
	if configFile != "" {
		config, err = app.LoadConfigFile(configFile)
	} else {
		config, err = configs.LoadConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	printSection("APPLICATION SETTINGS")
	printKeyValue("Verbose", fmt.Sprintf("%t", config.Verbose))
	printKeyValue("Log Level", config.LogLevel)
	printKeyValue("Log Format", config.LogFormat)
	printKeyValue("Output Format", config.OutputFormat)

	printSection("SERVER CONFIGURATION")
	printKeyValue("Address", config.Server.Address)
	printKeyValue("Mode", config.Server.Mode)
	printKeyValue("Read Timeout", config.Server.ReadTimeout.String())
	printKeyValue("Write Timeout", config.Server.WriteTimeout.String())
	printKeyValue("Shutdown Timeout", config.Server.ShutdownTimeout.String())
	printKeyValue("Job Timeout", config.Server.JobTimeout.String())
	printKeyValue("Max Concurrent Jobs", fmt.Sprintf("%d", config.Server.MaxConcurrentJobs))
	printKeyValue("Max Upload", humanize.IBytes(uint64(config.Server.MaxUploadBytes)))

	printSection("SYNTH CONFIGURATION")
	printKeyValue("Max Duration", config.Synth.MaxDuration.String())
	printKeyValue("Noise Seed", fmt.Sprintf("%#x", config.Synth.NoiseSeed))

	printSection("ANALYSIS CONFIGURATION")
	printKeyValue("FFT Size", fmt.Sprintf("%d", config.Analysis.FFTSize))
	printKeyValue("Hop Length", fmt.Sprintf("%d", config.Analysis.HopLength))
	printKeyValue("Band", fmt.Sprintf("%.0f - %.0f Hz", config.Analysis.MinFreqHz, config.Analysis.MaxFreqHz))
	printKeyValue("Peak Height Ratio", fmt.Sprintf("%.2f", config.Analysis.PeakHeightRatio))
	printKeyValue("Peak Distance", fmt.Sprintf("%d bins", config.Analysis.PeakDistance))
	printKeyValue("Max Median Kernel", fmt.Sprintf("%d", config.Analysis.MaxMedianKernel))
	printKeyValue("Trim Fraction", fmt.Sprintf("%.2f", config.Analysis.TrimFraction))
	printKeyValue("Percentiles", fmt.Sprintf("%.0f / %.0f", config.Analysis.ApproachPercentile, config.Analysis.RecedePercentile))
	printKeyValue("Top dB", fmt.Sprintf("%.0f", config.Analysis.TopDB))
	printKeyValue("Max Duration", config.Analysis.MaxDuration.String())
	printKeyValue("Resample Quality", fmt.Sprintf("%d", config.Analysis.ResampleQuality))

	printSection("RENDER CONFIGURATION")
	printKeyValue("Size", fmt.Sprintf("%dx%d", config.Render.Width, config.Render.Height))
	printKeyValue("Theme", config.Render.Theme)
	printKeyValue("Dynamic Range", fmt.Sprintf("%.0f dB", config.Render.DynamicRangeDB))
	printKeyValue("Show Track", fmt.Sprintf("%t", config.Render.ShowTrack))

	printSection("METRICS CONFIGURATION")
	printKeyValue("Enabled", fmt.Sprintf("%t", config.Metrics.Enabled))
	printKeyValue("Address", config.Metrics.Address)
	printKeyValue("Namespace", config.Metrics.Namespace)
	printKeyValue("Tags", fmt.Sprintf("(%d) %v", len(config.Metrics.Tags), config.Metrics.Tags))

	printSection("OUTPUT CONFIGURATION")
	printKeyValue("Pretty", fmt.Sprintf("%t", config.Output.Pretty))
	printKeyValue("Include Frames", fmt.Sprintf("%t", config.Output.IncludeFrames))
	printKeyValue("Include Spectrogram", fmt.Sprintf("%t", config.Output.IncludeSpectrogram))

	fmt.Println()
	fmt.Println(ColorGreen + strings.Repeat("-", 80))
	fmt.Println("CONFIGURATION TEST COMPLETED SUCCESSFULLY")
	fmt.Printf("Config file: %s\n", configFileUsed())
	fmt.Println(strings.Repeat("=", 80) + ColorReset)

	return nil
}

func printSection(title string) {
	fmt.Printf("\n%s\n", title)
	fmt.Println(strings.Repeat("-", len(title)))
}

func printKeyValue(key, value string) {
	if value == "" {
		fmt.Printf("%-35s\n", key)
	} else {
		fmt.Printf("%-35s %s\n", key+":", value)
	}
}

func configFileUsed() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return "(defaults only)"
}
