package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func fastRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: time.Millisecond,
		MaxWait:     5 * time.Millisecond,
		Multiplier:  2.0,
	}
}

func down() MockResponse {
	return MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
}

func TestRetry_Sequences(t *testing.T) {
	invalid := MockResponse{Err: &ErrInvalidResponse{Content: json.RawMessage(`bad`), Err: errors.New("bad")}}
	ok := MockResponse{Text: "fine"}

	tests := []struct {
		name      string
		responses []MockResponse
		wantErr   bool
		wantCalls int
	}{
		{"first attempt", []MockResponse{ok}, false, 1},
		{"transient then success", []MockResponse{down(), ok}, false, 2},
		{"rate limited then success", []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Millisecond, Err: errors.New("429")}}, ok}, false, 2},
		{"all attempts fail", []MockResponse{down(), down(), down(), ok}, true, 3},
		{"max tokens not retried", []MockResponse{{Err: &ErrMaxTokensExceeded{}}, ok}, true, 1},
		{"invalid reply retried once", []MockResponse{invalid, invalid, ok}, true, 2},
		{"invalid reply then success", []MockResponse{invalid, ok}, false, 2},
		{"cancellation not retried", []MockResponse{{Err: context.Canceled}, ok}, true, 1},
		{"blocked not retried", []MockResponse{{Err: &ErrBlocked{Reason: "safety"}}, ok}, true, 1},
		{"long cooldown not waited out", []MockResponse{{Err: &ErrRateLimit{RetryAfter: time.Hour, Err: errors.New("429")}}, ok}, true, 1},
		{"rate limit without hint backs off", []MockResponse{{Err: &ErrRateLimit{Err: errors.New("429")}}, ok}, false, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			resp, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && resp.Text() != "fine" {
				t.Fatalf("unexpected reply %q", resp.Text())
			}
			if mock.CallCount() != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, mock.CallCount())
			}
		})
	}
}

func TestRetry_CancelledContextMakesNoCall(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "fine"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := WithRetry(mock, fastRetry()).Generate(ctx, Request{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.CallCount() != 0 {
		t.Fatalf("expected no calls, got %d", mock.CallCount())
	}
}

func TestRetry_ZeroAttemptsStillCallsOnce(t *testing.T) {
	mock := NewMockProvider(MockResponse{Text: "fine"})
	p := WithRetry(mock, RetryConfig{})
	if _, err := p.Generate(context.Background(), Request{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ModelID() != "mock" {
		t.Fatalf("expected 'mock', got %q", p.ModelID())
	}
}

func TestRetry_LongCooldownReturnsRateLimit(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrRateLimit{RetryAfter: time.Hour, Err: errors.New("429")}})

	start := time.Now()
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("expected ErrRateLimit, got %T (%v)", err, err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("waited %s for a cooldown longer than MaxWait", elapsed)
	}
}

func TestRetry_Wait(t *testing.T) {
	r := &RetryProvider{config: RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: time.Second, Multiplier: 2}}

	tests := []struct {
		name     string
		attempt  int
		err      error
		min, max time.Duration
		ok       bool
	}{
		{"first backoff", 0, errors.New("x"), 80 * time.Millisecond, 120 * time.Millisecond, true},
		{"third backoff", 2, errors.New("x"), 320 * time.Millisecond, 480 * time.Millisecond, true},
		{"capped", 10, errors.New("x"), 800 * time.Millisecond, 1200 * time.Millisecond, true},
		{"retry after", 0, &ErrRateLimit{RetryAfter: 700 * time.Millisecond}, 700 * time.Millisecond, 700 * time.Millisecond, true},
		{"retry after over cap", 0, &ErrRateLimit{RetryAfter: 2 * time.Second}, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.wait(tt.attempt, tt.err)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if got < tt.min || got > tt.max {
				t.Errorf("wait = %s, want within [%s, %s]", got, tt.min, tt.max)
			}
		})
	}
}
