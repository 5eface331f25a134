package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/artpar/confchan/domain/property"
)

var lsCmd = &cobra.Command{
	Use:   "ls <channel> [path]",
	Short: "List a channel's properties",
	Args:  cobra.RangeArgs(1, 2),
	Example: `  confchan ls panel
  confchan ls panel /plugins/clock`,
	RunE: runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	base := property.Root
	if len(args) == 2 {
		base = args[1]
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

	props, err := ch.GetProperties(cmd.Context(), base)
	if err != nil {
		return err
	}

	paths := make([]string, 0, len(props))
	for p := range props {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if verbose {
			fmt.Printf("%s\t%s\t%s\n", p, props[p].Tag(), props[p])
		} else {
			fmt.Printf("%s\t%s\n", p, props[p])
		}
	}
	return nil
}
