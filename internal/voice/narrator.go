package voice

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/abhisek/aitutor/internal/logger"
)

// Outcomes receives one signal per narration.
type Outcomes interface {
	Collaborator(kind, outcome string)
}

// Narrator plays one narration at a time. Starting a new one stops the
// previous; a stopped narration never reports back.
type Narrator struct {
	synth    Synthesizer
	voice    string
	timeout  time.Duration
	log      *logger.Logger
	outcomes Outcomes

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NarratorOptions configures a Narrator. Every field is optional.
type NarratorOptions struct {
	Voice    string
	Timeout  time.Duration
	Logger   *logger.Logger
	Outcomes Outcomes
}

// NewNarrator creates a Narrator. A nil synthesizer makes every narration
// a silent no-op.
func NewNarrator(s Synthesizer, opts NarratorOptions) *Narrator {
	n := &Narrator{
		synth:    s,
		voice:    opts.Voice,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		outcomes: opts.Outcomes,
	}
	if n.log == nil {
		n.log = logger.Nop()
	}
	n.log = n.log.With("component", "voice")
	if n.timeout <= 0 {
		n.timeout = 45 * time.Second
	}
	return n
}

// Enabled reports whether narration produces audio.
func (n *Narrator) Enabled() bool {
	return n.synth != nil
}

// Narrate renders text and returns the audio. A nil Audio with a nil
// error means narration was skipped: it is off, the text is blank, or
// synthesis failed. ErrSuperseded is returned when a newer narration or
// Stop replaced this one.
func (n *Narrator) Narrate(ctx context.Context, text string) (*Audio, error) {
	return n.narrate(ctx, text, nil)
}

// Start narrates in the background and calls onDone with the audio, or
// with nil when narration was skipped. onDone is not called when the
// narration is superseded or stopped. A Start or Stop issued after Start
// returns always supersedes this narration.
func (n *Narrator) Start(ctx context.Context, text string, onDone func(*Audio)) {
	claimed := make(chan struct{})
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		audio, err := n.narrate(ctx, text, claimed)
		if err == nil && onDone != nil {
			onDone(audio)
		}
	}()
	<-claimed
}

// narrate closes claimed, when given, once this narration owns the slot.
func (n *Narrator) narrate(ctx context.Context, text string, claimed chan<- struct{}) (*Audio, error) {
	signal := func() {
		if claimed != nil {
			close(claimed)
			claimed = nil
		}
	}
	defer signal()

	if n.synth == nil || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	callCtx, id, done := n.begin(ctx)
	signal()
	defer done()

	audio, err := n.synth.Synthesize(callCtx, text, n.voice)
	if !n.current(id) {
		n.report("superseded")
		return nil, ErrSuperseded
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n.log.Debug("narration skipped", "error", err)
		n.report("skipped")
		return nil, nil
	}
	n.report("ok")
	return audio, nil
}

// Stop cancels the narration in flight. Safe to call at any time.
func (n *Narrator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seq++
	if n.cancel != nil {
		n.cancel()
		n.cancel = nil
	}
}

// Close stops narration and waits for background work started by Start.
func (n *Narrator) Close() {
	n.Stop()
	n.wg.Wait()
}

func (n *Narrator) begin(parent context.Context) (context.Context, uint64, func()) {
	ctx, cancel := context.WithTimeout(parent, n.timeout)

	n.mu.Lock()
	if n.cancel != nil {
		n.cancel()
	}
	n.seq++
	id := n.seq
	n.cancel = cancel
	n.mu.Unlock()

	return ctx, id, func() {
		n.mu.Lock()
		if n.seq == id {
			n.cancel = nil
		}
		n.mu.Unlock()
		cancel()
	}
}

func (n *Narrator) current(id uint64) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seq == id
}

func (n *Narrator) report(outcome string) {
	if n.outcomes != nil {
		n.outcomes.Collaborator("speech", outcome)
	}
}
