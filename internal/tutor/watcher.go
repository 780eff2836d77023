package tutor

import (
	"context"
	"sync"
	"time"
)

// WatchConfig tunes the stuck watcher.
type WatchConfig struct {
	// Interval between checks. Default: 10s.
	Interval time.Duration

	// StuckAfter is how long without activity on a step counts as stuck.
	// Default: 90s.
	StuckAfter time.Duration
}

// DefaultWatchConfig returns the standard watcher timing.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		Interval:   10 * time.Second,
		StuckAfter: 90 * time.Second,
	}
}

// StuckEvent describes a learner who has been idle on a step.
type StuckEvent struct {
	LessonID string
	Step     int
	Idle     time.Duration
}

// Watch is a running stuck watcher.
type Watch struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Stop cancels the watcher and waits for it to exit. Safe to call more
// than once, but not from inside the callback. After Stop returns no
// callback will run.
func (w *Watch) Stop() {
	w.once.Do(func() {
		w.cancel()
		<-w.done
	})
}

// StartWatch checks the current step every interval and calls onStuck at
// most once per step when the learner has been idle for StuckAfter. It
// never changes the struggling flag, which only attempts can set. The
// watcher ends when ctx is cancelled or Stop is called.
func (s *Store) StartWatch(ctx context.Context, cfg WatchConfig, onStuck func(StuckEvent)) *Watch {
	def := DefaultWatchConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.StuckAfter <= 0 {
		cfg.StuckAfter = def.StuckAfter
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watch{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		var firedGen uint64
		fired := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			ev, ok := s.checkStuck(cfg.StuckAfter, &firedGen, &fired)
			if !ok {
				continue
			}
			// Re-check cancellation so a stopped watcher never calls back.
			if ctx.Err() != nil {
				return
			}
			onStuck(ev)
		}
	}()
	return w
}

// checkStuck reports a stuck event for the current step unless one was
// already reported for it.
func (s *Store) checkStuck(after time.Duration, firedGen *uint64, fired *bool) (StuckEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.CurrentLessonID == "" {
		return StuckEvent{}, false
	}
	if *fired && *firedGen == s.stepGen {
		return StuckEvent{}, false
	}
	idle := s.timeOnStepLocked(s.clock.Now())
	if idle < after {
		return StuckEvent{}, false
	}
	*firedGen = s.stepGen
	*fired = true
	return StuckEvent{
		LessonID: s.state.CurrentLessonID,
		Step:     s.state.CurrentStep,
		Idle:     idle,
	}, true
}
