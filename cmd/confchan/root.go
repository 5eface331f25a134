package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/confchan/app"
	"github.com/artpar/confchan/bootstrap"
	"github.com/artpar/confchan/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "confchan",
	Short: "Channel-based configuration store and client",
	Long: `confchan stores desktop-style configuration as typed properties
organized into named channels, served by a small daemon.

Quick start:
  confchan serve                       # Start the daemon
  confchan set panel /size -t int32 24 # Store a property
  confchan get panel /size             # Read it back

Inspection:
  confchan channels                    # List known channels
  confchan ls panel                    # List a channel's properties
  confchan monitor panel               # Watch changes live`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "confchan.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// clientService loads configuration and builds the channel service for
// client commands. The caller must Shutdown the returned service.
func clientService() (*app.ChannelService, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, err
	}
	logging := cfg.Logging
	logging.Format = "console"
	if !verbose {
		logging.Level = "warn"
	}
	logger := bootstrap.NewLogger(logging)
	return bootstrap.NewClientService(cfg, logger), nil
}
