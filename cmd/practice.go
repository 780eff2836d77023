package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/mastery"
)

var attemptCmd = &cobra.Command{
	Use:   "attempt",
	Short: "Record a challenge attempt and show the pacing it leads to",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		fail, _ := cmd.Flags().GetBool("fail")
		e.State.RecordChallengeAttempt(cmd.Context(), !fail)

		st := e.State.Snapshot()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Streak: %d correct, %d wrong in a row\n", st.ConsecutiveSuccesses, st.ConsecutiveFailures)
		if st.IsStruggling {
			fmt.Fprintln(out, "The learner is struggling.")
		}
		fmt.Fprintf(out, "Pacing: %s\n", e.State.Recommendation().Action)
		return nil
	},
}

var practiceCmd = &cobra.Command{
	Use:   "practice <concept-id>",
	Short: "Record practice on a concept and update its mastery",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		fail, _ := cmd.Flags().GetBool("fail")
		difficulty, _ := cmd.Flags().GetFloat64("difficulty")
		id := args[0]

		before := e.State.EffectiveMastery()[id]
		cm := e.State.UpdateConceptMastery(cmd.Context(), id, e.Course.ConceptName(id), difficulty, !fail)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %.1f -> %.1f (%s)\n", cm.ConceptName, before, cm.Level, mastery.LabelFor(cm.Level))
		fmt.Fprintf(out, "Next: %s\n", e.State.NextStepFor(id, difficulty))
		return nil
	},
}

func init() {
	attemptCmd.Flags().Bool("fail", false, "Record a failed attempt")

	practiceCmd.Flags().Bool("fail", false, "Record a failed practice")
	practiceCmd.Flags().Float64("difficulty", 0.5, "Difficulty of the practice in [0, 1]")
}
