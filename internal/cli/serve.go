package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kickoff-wellness/kickoff/internal/daemon"
)

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.host, "host", "", "Host to listen on (overrides config)")
	f.IntVar(&serveFlags.port, "port", 0, "Port to listen on (overrides config)")
	f.StringVar(&serveFlags.backend, "store", "", "Store backend: sqlite, postgres, redis or memory")
	f.StringVar(&serveFlags.flush, "flush-interval", "", "Write-behind flush interval, e.g. 500ms")
	f.BoolVar(&serveFlags.noMetrics, "no-metrics", false, "Disable the /metrics endpoint")
	rootCmd.AddCommand(serveCmd)
}

var serveFlags struct {
	host      string
	port      int
	backend   string
	flush     string
	noMetrics bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the kickoff API server",
	Long: `Start the HTTP API server, by default at 127.0.0.1:8787.

Point mutations are answered from memory and written to the store in the
background. SIGINT or SIGTERM flushes pending writes before exiting.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveFlags.host != "" {
		cfg.API.Host = serveFlags.host
	}
	if serveFlags.port > 0 {
		cfg.API.Port = serveFlags.port
	}
	if serveFlags.backend != "" {
		cfg.Store.Backend = serveFlags.backend
	}
	if serveFlags.flush != "" {
		cfg.Store.FlushInterval = serveFlags.flush
	}
	if serveFlags.noMetrics {
		cfg.Telemetry.Prometheus = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid serve flags: %w", err)
	}

	d, err := daemon.NewWithConfig(cfg, rootCmd.Version)
	if err != nil {
		return err
	}
	return d.Serve(context.Background())
}
