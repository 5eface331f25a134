package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <channel> <path>",
	Short: "Read one property",
	Args:  cobra.ExactArgs(2),
	Example: `  confchan get panel /size
  confchan get keyboard /shortcuts/Mod4 -v`,
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
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

	v, err := ch.GetProperty(cmd.Context(), args[1])
	if err != nil {
		return err
	}
	if verbose {
		fmt.Printf("%s\t%s\n", v.Tag(), v)
	} else {
		fmt.Println(v)
	}
	return nil
}
