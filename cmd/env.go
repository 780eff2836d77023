package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/abhisek/aitutor/internal/chat"
	"github.com/abhisek/aitutor/internal/curriculum"
	"github.com/abhisek/aitutor/internal/llm"
	"github.com/abhisek/aitutor/internal/logger"
	"github.com/abhisek/aitutor/internal/metrics"
	"github.com/abhisek/aitutor/internal/store"
	"github.com/abhisek/aitutor/internal/tutor"
	"github.com/abhisek/aitutor/internal/voice"
)

// envOptions selects the optional collaborators a command needs.
type envOptions struct {
	LLM   bool
	Voice bool

	// Quiet drops log output, for commands that own the terminal.
	Quiet bool
}

// env is everything a command works with. Close releases it.
type env struct {
	Log      *logger.Logger
	DB       *store.Store
	Course   *curriculum.Course
	Metrics  *metrics.Metrics
	State    *tutor.Store
	Tutor    *chat.Tutor
	Narrator *voice.Narrator

	closers []func()
}

// openEnv opens the database, loads the course and the learner state, and
// builds the collaborators asked for in opts. A missing LLM or TTS provider
// is not an error: those features fall back or go silent.
func openEnv(cmd *cobra.Command, opts envOptions) (*env, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	log, err := newLogger(cmd, opts.Quiet)
	if err != nil {
		return nil, err
	}
	e := &env{Log: log, Metrics: metrics.New()}
	e.closers = append(e.closers, log.Sync)

	coursePath, _ := cmd.Flags().GetString("course")
	if coursePath == "" {
		coursePath = os.Getenv("AITUTOR_COURSE")
	}
	e.Course, err = curriculum.Load(coursePath)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	e.DB, err = store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	e.closers = append(e.closers, func() { e.DB.Close() })

	snapshots := e.DB.SnapshotRepo()
	if url := os.Getenv("AITUTOR_REDIS_URL"); url != "" {
		rs, err := store.OpenRedis(ctx, url, os.Getenv("AITUTOR_REDIS_PREFIX"))
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, func() { rs.Close() })
		snapshots = rs
		log.Debug("learner state in redis")
	}

	e.State = tutor.Open(ctx, tutor.Options{
		Snapshots:  snapshots,
		Events:     e.DB.EventRepo(),
		Logger:     log,
		Recorder:   e.Metrics,
		AppVersion: version,
	})

	if opts.LLM {
		var provider llm.Provider
		p, err := llm.NewProvider(ctx, llm.ConfigFromEnv(), e.DB.EventRepo(), log)
		if err != nil {
			log.Debug("LLM provider not configured, answers will fall back", "error", err)
		} else {
			provider = p
		}
		e.Tutor = chat.New(provider, chat.DefaultConfig(),
			chat.WithLogger(log),
			chat.WithOutcomes(e.Metrics),
		)
	}

	if opts.Voice {
		cfg := voice.ConfigFromEnv()
		synth, err := voice.NewSynthesizer(ctx, cfg)
		if err != nil {
			log.Warn("narration disabled", "error", err)
			synth = nil
		}
		e.Narrator = voice.NewNarrator(synth, voice.NarratorOptions{
			Voice:    cfg.Voice,
			Logger:   log,
			Outcomes: e.Metrics,
		})
		e.closers = append(e.closers, e.Narrator.Close)
	}

	return e, nil
}

// Close releases resources in reverse order of acquisition.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
}

// snapshotData is the current learner state in its persisted layout.
func (e *env) snapshotData() store.SnapshotData {
	return store.SnapshotData{
		Version:    store.CurrentSnapshotVersion,
		AppVersion: version,
		Tutor:      e.State.Snapshot().ToSnapshot(),
	}
}

func newLogger(cmd *cobra.Command, quiet bool) (*logger.Logger, error) {
	if quiet {
		return logger.Nop(), nil
	}
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = os.Getenv("AITUTOR_LOG_LEVEL")
	}
	if level == "" {
		level = "warn"
	}
	log, err := logger.New(os.Getenv("AITUTOR_LOG_MODE"), level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}
