package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/mastery"
	"github.com/abhisek/aitutor/internal/store"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/ui/theme"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"stats"},
	Short:   "Show level, pacing and concept mastery",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		out := cmd.OutOrStdout()
		st := e.State.Snapshot()
		rec := e.State.Recommendation()

		fmt.Fprintln(out, theme.Title.Render(e.Course.Title))
		fmt.Fprintf(out, "%s  Level %d %s  %d XP  %d/%d lessons\n",
			st.Profile.Name, st.Level(), bar(st.LevelProgress(), 20), st.XP,
			len(st.CompletedLessons), len(e.Course.Lessons))
		fmt.Fprintf(out, "Pacing: %s", rec.Action)
		if st.IsStruggling {
			fmt.Fprint(out, "  (struggling)")
		}
		fmt.Fprintln(out)
		for _, h := range rec.Modifications.Hints() {
			fmt.Fprintln(out, "  • "+h)
		}
		if st.CurrentLessonID != "" {
			fmt.Fprintf(out, "Current lesson: %s, step %d\n", st.CurrentLessonID, st.CurrentStep+1)
		}

		now := e.State.Now()
		if sum := mastery.Summarize(st.ConceptMastery, now); sum.Count > 0 {
			fmt.Fprintf(out, "Mastery: mean %.1f, spread %.1f, range %.0f-%.0f over %d concepts\n",
				sum.Mean, sum.StdDev, sum.Min, sum.Max, sum.Count)
		}
		fmt.Fprintln(out)
		renderConceptTable(out, st, now)

		activity, err := e.DB.EventRepo().Activity(cmd.Context(), store.QueryOpts{})
		if err != nil {
			return fmt.Errorf("query activity: %w", err)
		}
		if activity.Attempts > 0 || activity.LessonsStarted > 0 || activity.DoubtsSaved > 0 {
			fmt.Fprintf(out, "\nActivity: %d lessons started, %d completed, %d/%d attempts correct, %d mastery updates, %d doubts saved\n",
				activity.LessonsStarted, activity.LessonsCompleted,
				activity.SuccessfulTries, activity.Attempts, activity.MasteryUpdates, activity.DoubtsSaved)
		}
		return nil
	},
}

// renderConceptTable prints every practiced concept, weakest first.
func renderConceptTable(out io.Writer, st tutor.State, now time.Time) {
	if len(st.ConceptMastery) == 0 {
		fmt.Fprintln(out, "No concepts practiced yet.")
		return
	}

	concepts := make([]mastery.ConceptMastery, 0, len(st.ConceptMastery))
	for _, c := range st.ConceptMastery {
		concepts = append(concepts, c)
	}
	sort.Slice(concepts, func(i, j int) bool {
		li, lj := mastery.ApplyDecay(concepts[i], now), mastery.ApplyDecay(concepts[j], now)
		if li != lj {
			return li < lj
		}
		return concepts[i].ConceptID < concepts[j].ConceptID
	})

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Concept", "Stored", "Effective", "Label", "Last practiced"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, c := range concepts {
		eff := mastery.ApplyDecay(c, now)
		label := mastery.LabelFor(eff)
		last := "never"
		if c.Practiced() {
			last = c.LastPracticed.Local().Format("2006-01-02 15:04")
		}
		name := c.ConceptName
		if name == "" {
			name = c.ConceptID
		}
		table.Append([]string{
			name,
			fmt.Sprintf("%.1f", c.Level),
			fmt.Sprintf("%.1f", eff),
			lipgloss.NewStyle().Foreground(theme.LabelColor(label)).Render(label.String()),
			last,
		})
	}
	table.Render()
}

// bar draws a fixed-width text gauge for a fraction in [0, 1].
func bar(frac float64, width int) string {
	filled := int(frac*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
