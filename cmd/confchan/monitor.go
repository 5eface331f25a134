package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/confchan/domain/value"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor <channel> [path]",
	Short: "Watch property changes live",
	Long: `Print every property change on a channel until interrupted.

An optional path restricts output to one property or subtree.`,
	Args: cobra.RangeArgs(1, 2),
	Example: `  confchan monitor panel
  confchan monitor panel /plugins/clock`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command, args []string) error {
	filter := ""
	if len(args) == 2 {
		filter = args[1]
	}

	svc, err := clientService()
	if err != nil {
		return err
	}
	defer svc.Shutdown()

	ch, err := svc.Channel(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	defer ch.Close()

	listener := ch.OnPropertyChanged(filter, func(path string, v value.Value) {
		stamp := time.Now().Format(time.TimeOnly)
		if v.IsUnset() {
			fmt.Printf("%s  %s  <reset>\n", stamp, path)
			return
		}
		fmt.Printf("%s  %s  %s (%s)\n", stamp, path, v, v.Tag())
	})
	defer listener.Close()

	fmt.Printf("monitoring %s, press Ctrl-C to stop\n", args[0])
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	return nil
}
