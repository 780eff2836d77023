package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/aitutor/internal/api"
	"github.com/abhisek/aitutor/internal/tutor"
)

const defaultAddr = "127.0.0.1:7420"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tutor HTTP API, state stream and metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = os.Getenv("AITUTOR_ADDR")
		}
		if addr == "" {
			addr = defaultAddr
		}

		e, err := openEnv(cmd, envOptions{LLM: true, Voice: true})
		if err != nil {
			return err
		}
		defer e.Close()

		srv := &http.Server{
			Addr: addr,
			Handler: api.NewHandler(api.Deps{
				Store:    e.State,
				Course:   e.Course,
				Tutor:    e.Tutor,
				Narrator: e.Narrator,
				Metrics:  e.Metrics,
				Logger:   e.Log,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(cmd.Context())

		g.Go(func() error {
			fmt.Fprintf(os.Stderr, "aitutor listening on %s\n", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			watch := e.State.StartWatch(gctx, tutor.DefaultWatchConfig(), func(ev tutor.StuckEvent) {
				e.Log.Info("learner idle on step", "lesson", ev.LessonID, "step", ev.Step, "idle", ev.Idle)
			})
			<-gctx.Done()
			watch.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			fmt.Fprintln(os.Stderr, "shutting down...")
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides AITUTOR_ADDR, default "+defaultAddr+")")
}
