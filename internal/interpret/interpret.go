// Package interpret turns natural-language prompts into validated drafts by
// composing the agent client with instruction templates and field
// validators. Task and event parsing never fail outward; approval
// classification does, because a defaulted approval decision is worse than
// an error.
package interpret

import (
	"context"

	"github.com/missionctl/missionctl/internal/agent"
)

// Invoker is the slice of the agent client the interpreters need.
type Invoker interface {
	Invoke(ctx context.Context, instruction string, opts agent.Options) (*agent.Envelope, error)
}

// maxFallbackTitle bounds the literal-input title used in degraded drafts.
const maxFallbackTitle = 100

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func stringSliceField(payload map[string]interface{}, key string) []string {
	raw, ok := payload[key].([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
