package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "aitutor",
	Short: "Adaptive AI/ML tutor",
	Long: "aitutor teaches machine learning fundamentals lesson by lesson, tracks concept\n" +
		"mastery and adapts the pace to how the learner is doing.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudy(cmd, "")
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides AITUTOR_DB env var)")
	rootCmd.PersistentFlags().String("course", "", "Path to a YAML course file (overrides AITUTOR_COURSE env var)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides AITUTOR_LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(studyCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lessonCmd)
	rootCmd.AddCommand(attemptCmd)
	rootCmd.AddCommand(practiceCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(doubtsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(contextCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(narrateCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then AITUTOR_DB env var, then the default XDG path.
func resolveDBPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	return store.DefaultDBPath()
}
