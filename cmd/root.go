package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/RyanBlaney/doppler-analysis/configs"
)

var (
	configFile   string
	verbose      bool
	logLevel     string
	logFormat    string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "doppler",
	Short: "Doppler pass simulation and velocity estimation",
	Long: `Simulate the sound of a source driving past a microphone and estimate
the speed of a passing source from a recording.

Key features:
- Synthesis of sine, square, sawtooth, siren and engine passes
- Velocity and source frequency estimation from WAV, MP3, OGG and FLAC
- Annotated spectrogram rendering
- HTTP API with DataDog metrics`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/doppler/doppler.yaml)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json",
		"log format (json, console)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table",
		"output format (json, table, csv, yaml)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(filepath.Join(home, ".config", "doppler"))
		viper.AddConfigPath("/etc/doppler")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("doppler")
		viper.SetConfigType("yaml")
	}

	// Environment variable support, e.g. DOPPLER_SERVER_ADDRESS
	viper.SetEnvPrefix("DOPPLER")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	configs.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	} else if configFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config file %s: %v\n", configFile, err)
		os.Exit(1)
	}
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds the command's local flags to their configuration keys.
// Flags without an entry in flagKeys are left to the command itself.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[cmd.Name()+"."+f.Name]
		if !ok {
			return
		}

		// Apply the configured value when the flag was not given
		if !f.Changed && v.IsSet(key) {
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", v.Get(key))); err != nil {
				lastErr = err
			}
		}

		if err := v.BindPFlag(key, f); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// flagKeys maps "<command>.<flag>" onto configuration keys
var flagKeys = map[string]string{
	"serve.address":            "server.address",
	"serve.max-jobs":           "server.max_concurrent_jobs",
	"serve.job-timeout":        "server.job_timeout",
	"serve.max-upload":         "server.max_upload_bytes",
	"analyze.fft-size":         "analysis.fft_size",
	"analyze.hop-length":       "analysis.hop_length",
	"analyze.min-freq":         "analysis.min_freq_hz",
	"analyze.max-freq":         "analysis.max_freq_hz",
	"analyze.theme":            "render.theme",
	"analyze.frames":           "output.include_frames",
	"analyze.spectrogram-data": "output.include_spectrogram",
	"simulate.seed":            "synth.noise_seed",
}
