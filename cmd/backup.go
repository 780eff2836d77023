package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/backup"
)

var exportCmd = &cobra.Command{
	Use:   "export <file>",
	Short: "Write a compressed backup of the learner state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("create backup file: %w", err)
		}
		if err := backup.Export(f, e.snapshotData(), e.State.Now()); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close backup file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the learner state with a backup or a browser export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open backup file: %w", err)
		}
		defer f.Close()

		res, err := backup.Import(f, version)
		if err != nil {
			return err
		}
		if res.Data.Tutor == nil {
			return fmt.Errorf("%s holds no learner state", args[0])
		}

		e, err := openEnv(cmd, envOptions{})
		if err != nil {
			return err
		}
		defer e.Close()

		for _, w := range res.Warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
		}
		e.State.Restore(cmd.Context(), res.Data.Tutor)

		st := e.State.Snapshot()
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s): %d XP, %d lessons, %d concepts, %d doubts\n",
			args[0], res.Source, st.XP, len(st.CompletedLessons), len(st.ConceptMastery), len(st.Doubts))
		return nil
	},
}
