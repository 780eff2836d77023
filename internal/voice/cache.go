package voice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// sharedCallTimeout bounds a synthesis shared by several callers. Each
// caller still leaves as soon as its own context is done.
const sharedCallTimeout = 60 * time.Second

// CachingSynthesizer keeps recently rendered clips and collapses
// concurrent requests for the same clip into one call.
type CachingSynthesizer struct {
	inner  Synthesizer
	clips  *lru.Cache[string, *Audio]
	flight singleflight.Group
}

// NewCachingSynthesizer wraps s with an LRU of size entries.
func NewCachingSynthesizer(s Synthesizer, size int) (*CachingSynthesizer, error) {
	clips, err := lru.New[string, *Audio](size)
	if err != nil {
		return nil, fmt.Errorf("create clip cache: %w", err)
	}
	return &CachingSynthesizer{inner: s, clips: clips}, nil
}

func (c *CachingSynthesizer) Name() string { return c.inner.Name() }

func (c *CachingSynthesizer) Synthesize(ctx context.Context, text, voiceID string) (*Audio, error) {
	key := clipKey(text, voiceID)
	if a, ok := c.clips.Get(key); ok {
		return a, nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		if a, ok := c.clips.Get(key); ok {
			return a, nil
		}
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		a, err := c.inner.Synthesize(callCtx, text, voiceID)
		if err != nil {
			return nil, err
		}
		c.clips.Add(key, a)
		return a, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Audio), nil
	}
}

// Len returns the number of cached clips.
func (c *CachingSynthesizer) Len() int {
	return c.clips.Len()
}

func clipKey(text, voiceID string) string {
	sum := sha256.Sum256([]byte(voiceID + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
