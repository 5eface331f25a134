package main

import (
	"github.com/spf13/cobra"
)

var resetRecursive bool

var resetCmd = &cobra.Command{
	Use:   "reset <channel> <path>",
	Short: "Reset a property to its default",
	Long: `Reset a property, removing it when no default exists.

With --recursive the whole subtree under the path is reset; resetting
the channel root requires --recursive.`,
	Args: cobra.ExactArgs(2),
	Example: `  confchan reset panel /size
  confchan reset panel /plugins --recursive`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
	resetCmd.Flags().BoolVarP(&resetRecursive, "recursive", "r", false, "reset the whole subtree")
}

func runReset(cmd *cobra.Command, args []string) error {
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

	return ch.ResetProperty(cmd.Context(), args[1], resetRecursive)
}
