package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/doppler-analysis/internal/app"
	"github.com/RyanBlaney/doppler-analysis/pkg/audio/doppler"
)

var (
	simulateType  string
	simulateFreq  float64
	simulateSpeed float64
	simulateDist  float64
	simulateOut   string
	simulateSeed  uint64
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Synthesize a Doppler pass to a WAV file",
	Long: `Synthesize the sound of a source travelling from -200 m to +200 m past a
stationary microphone and write it as 16-bit mono WAV at 44.1 kHz.

Waveform types may be given by name (sine, square, sawtooth, siren, engine)
or by the numeric code used by the HTTP API (1 engine, 2 square,
3 sawtooth, 4 siren, anything else sine).

Examples:
  # 500 Hz sine passing at 30 m/s, 10 m from the microphone
  doppler simulate --freq 500 --speed 30 --dist 10 -O pass.wav

  # Engine noise, reproducible with a fixed seed
  doppler simulate --type engine --freq 120 --speed 25 --dist 5 --seed 7 -O engine.wav`,
	RunE: runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().StringVar(&simulateType, "type", "sine", "waveform type or numeric code")
	simulateCmd.Flags().Float64Var(&simulateFreq, "freq", 500, "source frequency in Hz")
	simulateCmd.Flags().Float64Var(&simulateSpeed, "speed", 30, "source speed in m/s")
	simulateCmd.Flags().Float64Var(&simulateDist, "dist", 10, "perpendicular distance in metres")
	simulateCmd.Flags().StringVarP(&simulateOut, "out", "O", "", "output WAV file")
	simulateCmd.Flags().Uint64Var(&simulateSeed, "seed", 0x5eed, "engine noise seed")

	simulateCmd.MarkFlagRequired("out")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	kind, err := doppler.ParseWaveformKind(simulateType)
	if err != nil {
		return fmt.Errorf("invalid --type: %w", err)
	}

	application, err := app.NewApp(&app.Context{
		OutputFile: simulateOut,
		Verbose:    verbose,
	})
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Simulate(cmd.Context(), doppler.SimulationRequest{
		Kind:               kind,
		SourceFreqHz:       simulateFreq,
		SpeedMps:           simulateSpeed,
		PerpendicularDistM: simulateDist,
	})
}
