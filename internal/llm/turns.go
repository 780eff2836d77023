package llm

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// normalizeTurns shapes a tutoring conversation for providers that expect
// strictly alternating turns starting with the learner: blank turns and
// leading assistant turns are dropped, and consecutive turns from the same
// role are joined.
func normalizeTurns(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if len(out) == 0 && m.Role == RoleAssistant {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + text
			continue
		}
		out = append(out, Message{Role: m.Role, Content: text})
	}
	return out
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	secs, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
