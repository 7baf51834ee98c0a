package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/doppler-analysis/internal/app"
)

var (
	analyzeOut             string
	analyzeSpectrogram     string
	analyzeFFTSize         int
	analyzeHopLength       int
	analyzeMinFreq         float64
	analyzeMaxFreq         float64
	analyzeTheme           string
	analyzeFrames          bool
	analyzeSpectrogramData bool
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze [flags] <audio-file>",
	Short: "Estimate source velocity from a recorded pass",
	Long: `Estimate the approach, recede and source frequencies of a passing source
and the velocity they imply.

Supported inputs are WAV, MP3, OGG Vorbis and FLAC. Stereo input is mixed
down to mono and everything is resampled to 44.1 kHz before analysis.

Examples:
  # Print a summary table
  doppler analyze pass.wav

  # JSON with per-frame tracks, written to a file
  doppler analyze pass.wav -o json --frames -O report.json

  # Also render the annotated spectrogram
  doppler analyze car.mp3 --spectrogram car.png --theme thermal`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "O", "", "write results to this file instead of stdout")
	analyzeCmd.Flags().StringVar(&analyzeSpectrogram, "spectrogram", "", "write an annotated spectrogram PNG")
	analyzeCmd.Flags().IntVar(&analyzeFFTSize, "fft-size", 8192, "STFT window length")
	analyzeCmd.Flags().IntVar(&analyzeHopLength, "hop-length", 256, "STFT hop length")
	analyzeCmd.Flags().Float64Var(&analyzeMinFreq, "min-freq", 100, "lower edge of the analysis band in Hz")
	analyzeCmd.Flags().Float64Var(&analyzeMaxFreq, "max-freq", 10000, "upper edge of the analysis band in Hz")
	analyzeCmd.Flags().StringVar(&analyzeTheme, "theme", "enhanced", "spectrogram colour theme (enhanced, classic, grayscale, thermal, marine)")
	analyzeCmd.Flags().BoolVar(&analyzeFrames, "frames", false, "include per-frame tracks in the output")
	analyzeCmd.Flags().BoolVar(&analyzeSpectrogramData, "spectrogram-data", false, "include the dB spectrogram matrix in the output")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	application, err := app.NewApp(&app.Context{
		OutputFile:      analyzeOut,
		OutputFormat:    outputFormat,
		SpectrogramFile: analyzeSpectrogram,
		Verbose:         verbose,
	})
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Analyze(cmd.Context(), args[0])
}
