package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset learner progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		keepProfile, _ := cmd.Flags().GetBool("keep-profile")
		yes, _ := cmd.Flags().GetBool("yes")

		if !yes {
			fmt.Fprint(cmd.OutOrStdout(), "This erases XP, lessons, mastery and doubts. Continue? [y/N] ")
			line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if a := strings.ToLower(strings.TrimSpace(line)); a != "y" && a != "yes" {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
		}

		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		e.State.ResetProgress(cmd.Context(), keepProfile)
		fmt.Fprintln(cmd.OutOrStdout(), "Progress reset.")
		return nil
	},
}

func init() {
	resetCmd.Flags().Bool("keep-profile", false, "Keep the learner profile")
	resetCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")
}
