package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RyanBlaney/doppler-analysis/internal/app"
)

var (
	serveAddress    string
	serveMaxJobs    int
	serveJobTimeout time.Duration
	serveMaxUpload  int64
	serveDev        bool
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API exposing simulation and analysis.

Endpoints:
  POST /simulate                 JSON {type, freq, speed, dist} -> audio/wav
  POST /upload_car               multipart "file" -> velocity estimate (JSON)
  POST /upload_car/spectrogram   multipart "file" -> annotated spectrogram (PNG)
  GET  /api/health               service status

Examples:
  # Serve on the configured address
  doppler serve

  # Serve locally with relaxed limits and gin debug logging
  doppler serve --dev

  # Override limits
  doppler serve --address :8080 --max-jobs 8 --job-timeout 2m`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddress, "address", ":5000", "listen address")
	serveCmd.Flags().IntVar(&serveMaxJobs, "max-jobs", 2, "maximum concurrent analysis or synthesis jobs")
	serveCmd.Flags().DurationVar(&serveJobTimeout, "job-timeout", 90*time.Second, "maximum wait for a free job slot")
	serveCmd.Flags().Int64Var(&serveMaxUpload, "max-upload", 64<<20, "maximum upload size in bytes")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "use development server settings")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(&app.Context{
		Verbose:     verbose,
		Development: serveDev,
	})
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Serve(ctx)
}
