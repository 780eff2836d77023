package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var narrateCmd = &cobra.Command{
	Use:   "narrate <lesson-id>",
	Short: "Render the narration of every lesson step to audio files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{Voice: true})
		if err != nil {
			return err
		}
		defer e.Close()

		if !e.Narrator.Enabled() {
			return fmt.Errorf("narration is off; set AITUTOR_TTS_PROVIDER to gemini or openai")
		}
		lesson, err := lookupLesson(e.Course, args[0])
		if err != nil {
			return err
		}

		dir, _ := cmd.Flags().GetString("out")
		if dir == "" {
			dir = lesson.ID
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}

		bar := progressbar.NewOptions(len(lesson.Steps),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("narrating "+lesson.Title),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		var written, skipped int
		for i, step := range lesson.Steps {
			audio, err := e.Narrator.Narrate(cmd.Context(), step.Narration)
			if err != nil {
				return fmt.Errorf("narrate step %d: %w", i+1, err)
			}
			_ = bar.Add(1)
			if audio == nil {
				skipped++
				continue
			}
			name := filepath.Join(dir, fmt.Sprintf("%02d%s", i+1, audioExt(audio.MIMEType)))
			if err := os.WriteFile(name, audio.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", name, err)
			}
			written++
		}
		_ = bar.Finish()

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d clips to %s", written, dir)
		if skipped > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (%d steps skipped)", skipped)
		}
		fmt.Fprintln(cmd.OutOrStdout())
		return nil
	},
}

func audioExt(mime string) string {
	switch mime {
	case "audio/wav", "audio/x-wav", "audio/wave":
		return ".wav"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "text/plain":
		return ".txt"
	case "audio/ogg", "audio/opus":
		return ".ogg"
	default:
		return ".bin"
	}
}

func init() {
	narrateCmd.Flags().StringP("out", "o", "", "Output directory (default: the lesson id)")
}
