package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Print the adaptive context given to the tutor",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		fmt.Fprintln(cmd.OutOrStdout(), e.State.AdaptiveContext())
		return nil
	},
}
