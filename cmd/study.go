package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/app"
	"github.com/abhisek/aitutor/internal/screen"
	"github.com/abhisek/aitutor/internal/tutor"
)

var studyCmd = &cobra.Command{
	Use:   "study [lesson-id]",
	Short: "Open the study app, optionally straight into a lesson",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lessonID := ""
		if len(args) == 1 {
			lessonID = args[0]
		}
		return runStudy(cmd, lessonID)
	},
}

// runStudy opens the store, builds dependencies, and launches the TUI.
func runStudy(cmd *cobra.Command, lessonID string) error {
	e, err := openEnv(cmd, envOptions{LLM: true, Voice: true, Quiet: true})
	if err != nil {
		return err
	}
	defer e.Close()

	return app.Run(cmd.Context(), screen.Deps{
		Store:    e.State,
		Course:   e.Course,
		Tutor:    e.Tutor,
		Narrator: e.Narrator,
		Logger:   e.Log,
		Watch:    tutor.DefaultWatchConfig(),
	}, lessonID)
}
