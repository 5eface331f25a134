package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artpar/confchan/bootstrap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the configuration daemon",
	Long: `Start the confchan daemon.

The daemon will:
  - Load configuration from confchan.yaml (or --config)
  - Or load configuration from CONFCHAN_* environment variables
  - Open the property store (sqlite by default)
  - Apply lock policy from the channels section
  - Serve the property API and event stream over HTTP

Environment variables (for container deployments):
  CONFCHAN_SERVER_PORT   - Server port (default: 9595)
  CONFCHAN_STORE_DRIVER  - Store driver: memory or sqlite
  CONFCHAN_STORE_DSN     - SQLite database path (default: confchan.db)
  CONFCHAN_LOG_LEVEL     - Log level: debug, info, warn, error

Examples:
  confchan serve
  confchan serve --config /etc/confchan/config.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	d, err := bootstrap.NewDaemon(cfgFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}
