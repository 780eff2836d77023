package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/api"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the tutor tools over MCP on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the protocol; logs go to stderr.
		e, err := openEnv(cmd, envOptions{LLM: true})
		if err != nil {
			return err
		}
		defer e.Close()

		mcpSrv := api.NewMCPServer(api.Deps{
			Store:   e.State,
			Course:  e.Course,
			Tutor:   e.Tutor,
			Metrics: e.Metrics,
			Logger:  e.Log,
		}, version)

		stdioSrv := server.NewStdioServer(mcpSrv)
		e.Log.Info("MCP server started (stdio transport)")
		if err := stdioSrv.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
