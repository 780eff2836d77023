package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/tutor"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the tutor a question about the current lesson",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{LLM: true})
		if err != nil {
			return err
		}
		defer e.Close()

		question := strings.Join(args, " ")
		st := e.State.Snapshot()
		topic, lessonTitle := "machine learning", ""
		if l, ok := e.Course.Lesson(st.CurrentLessonID); ok {
			topic, lessonTitle = l.Title, l.Title
		}

		answer, err := e.Tutor.Ask(cmd.Context(), chat.Request{
			Topic:           topic,
			Prompt:          question,
			AdaptiveContext: e.State.AdaptiveContext(),
		})
		if err != nil {
			return fmt.Errorf("ask tutor: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
		if !answer.Fallback {
			e.State.AddDoubt(cmd.Context(), question, answer.Text, st.CurrentLessonID, lessonTitle)
		}
		return nil
	},
}

var doubtsCmd = &cobra.Command{
	Use:   "doubts [query]",
	Short: "List or search saved questions",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		var doubts []tutor.DoubtEntry
		if lesson, _ := cmd.Flags().GetString("lesson"); lesson != "" {
			doubts = e.State.DoubtsForLesson(lesson)
		} else {
			doubts = e.State.SearchDoubts(strings.Join(args, " "))
		}

		out := cmd.OutOrStdout()
		if len(doubts) == 0 {
			fmt.Fprintln(out, "No doubts found.")
			return nil
		}
		sep := strings.Repeat("─", 60)
		for i := len(doubts) - 1; i >= 0; i-- {
			d := doubts[i]
			where := d.LessonTitle
			if where == "" {
				where = "general"
			}
			fmt.Fprintf(out, "%s  [%s]\nQ: %s\nA: %s\n%s\n",
				d.Timestamp.Local().Format("2006-01-02 15:04"), where, d.Question, d.Answer, sep)
		}
		return nil
	},
}

func init() {
	doubtsCmd.Flags().String("lesson", "", "Only doubts raised during this lesson")
}
