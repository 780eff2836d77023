package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/curriculum"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "List lessons and move through them",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		st := e.State.Snapshot()
		out := cmd.OutOrStdout()
		for i, l := range e.Course.Lessons {
			mark := " "
			switch {
			case st.IsCompleted(l.ID):
				mark = "✓"
			case st.CurrentLessonID == l.ID:
				mark = "▸"
			}
			fmt.Fprintf(out, "%s %d. %-24s %-28s difficulty %.1f  %d XP\n",
				mark, i+1, l.ID, l.Title, l.Difficulty, l.XP)
		}
		return nil
	},
}

var lessonStartCmd = &cobra.Command{
	Use:   "start <lesson-id>",
	Short: "Make a lesson current at step 1",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		lesson, err := lookupLesson(e.Course, args[0])
		if err != nil {
			return err
		}
		e.State.StartLesson(cmd.Context(), lesson.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Started %s. Step 1/%d: %s\n",
			lesson.Title, len(lesson.Steps), lesson.Steps[0].Title)
		return nil
	},
}

var lessonStepCmd = &cobra.Command{
	Use:   "step",
	Short: "Advance the current lesson by one step",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		st := e.State.Snapshot()
		if st.CurrentLessonID == "" {
			return fmt.Errorf("no lesson in progress; run 'aitutor lesson start <lesson-id>'")
		}
		step := e.State.AdvanceStep(cmd.Context())

		out := cmd.OutOrStdout()
		lesson, ok := e.Course.Lesson(st.CurrentLessonID)
		if !ok || step >= len(lesson.Steps) {
			fmt.Fprintf(out, "Step %d\n", step+1)
			return nil
		}
		fmt.Fprintf(out, "Step %d/%d: %s\n\n%s\n", step+1, len(lesson.Steps), lesson.Steps[step].Title, lesson.Steps[step].Narration)
		if step == len(lesson.Steps)-1 {
			fmt.Fprintf(out, "\nLast step. Run 'aitutor lesson complete %s' when done.\n", lesson.ID)
		}
		return nil
	},
}

var lessonCompleteCmd = &cobra.Command{
	Use:   "complete <lesson-id>",
	Short: "Mark a lesson completed and award its XP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		xp, _ := cmd.Flags().GetInt("xp")
		title := args[0]
		if lesson, ok := e.Course.Lesson(args[0]); ok {
			title = lesson.Title
			if !cmd.Flags().Changed("xp") {
				xp = lesson.XP
			}
		}

		out := cmd.OutOrStdout()
		before := e.State.Snapshot().Level()
		if !e.State.CompleteLesson(cmd.Context(), args[0], xp) {
			fmt.Fprintf(out, "%s was already completed.\n", title)
			return nil
		}
		st := e.State.Snapshot()
		fmt.Fprintf(out, "Completed %s: +%d XP, %d XP total.\n", title, xp, st.XP)
		if st.Level() > before {
			fmt.Fprintf(out, "Level up! You are now level %d.\n", st.Level())
		}
		if next, ok := e.Course.Next(args[0]); ok {
			fmt.Fprintf(out, "Up next: %s (%s)\n", next.Title, next.ID)
		}
		return nil
	},
}

func lookupLesson(c *curriculum.Course, id string) (curriculum.Lesson, error) {
	lesson, ok := c.Lesson(id)
	if !ok {
		return curriculum.Lesson{}, fmt.Errorf("unknown lesson %q", id)
	}
	return lesson, nil
}

func init() {
	lessonCompleteCmd.Flags().Int("xp", 0, "XP to award (default: the lesson's reward)")

	lessonCmd.AddCommand(lessonStartCmd)
	lessonCmd.AddCommand(lessonStepCmd)
	lessonCmd.AddCommand(lessonCompleteCmd)
}
