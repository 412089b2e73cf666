// Package transcript normalizes heterogeneous voice-agent payloads into a
// uniform entry model and routes them between the remote session, the
// display surface, and an append-only history.
package transcript

import (
	"strings"
	"time"
)

// Role classifies who produced a transcript entry.
type Role string

const (
	RoleUser   Role = "user"
	RoleAgent  Role = "agent"
	RoleSystem Role = "system"
)

// Entry is one normalized chat/voice utterance. Entries are immutable once
// created; the router only appends.
type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Normalize maps an arbitrary inbound payload to an Entry. The second result
// is false when the payload carries no displayable text — control frames and
// unknown shapes are dropped entirely, not rendered. now supplies the
// fallback timestamp. Normalization is a pure transform: the same payload
// always yields the same role and content.
func Normalize(payload any, now func() time.Time) (Entry, bool) {
	if now == nil {
		now = time.Now
	}

	content, ok := extractContent(payload)
	if !ok {
		return Entry{}, false
	}

	fields, _ := payload.(map[string]any)
	return Entry{
		Role:      inferRole(fields),
		Content:   content,
		Timestamp: extractTimestamp(fields, now),
	}, true
}

// inferRole applies the first-match-wins inference order. Entirely
// unrecognized shapes default to agent.
func inferRole(fields map[string]any) Role {
	source, _ := fields["source"].(string)
	typ, _ := fields["type"].(string)
	role, _ := fields["role"].(string)

	switch {
	case source == "user" || typ == "user_transcript":
		return RoleUser
	case source == "ai" || typ == "agent_response":
		return RoleAgent
	case role == "user":
		return RoleUser
	case role == "assistant" || role == "agent":
		return RoleAgent
	default:
		return RoleAgent
	}
}

// contentFields is the fixed probe order for displayable text.
var contentFields = []string{"message", "text", "content", "transcript"}

func extractContent(payload any) (string, bool) {
	switch v := payload.(type) {
	case map[string]any:
		for _, field := range contentFields {
			if s, ok := v[field].(string); ok {
				if trimmed := strings.TrimSpace(s); trimmed != "" {
					return sanitize(trimmed), true
				}
			}
		}
		return "", false
	case string:
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return sanitize(trimmed), true
		}
		return "", false
	default:
		return "", false
	}
}

// sanitize strips control characters that could garble the chat panel,
// keeping newlines and tabs.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func extractTimestamp(fields map[string]any, now func() time.Time) time.Time {
	for _, key := range []string{"timestamp", "time"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		if ts, ok := coerceTime(raw); ok {
			return ts
		}
	}
	return now()
}

// coerceTime accepts RFC3339 strings and unix epochs in seconds or
// milliseconds (JSON numbers arrive as float64).
func coerceTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case string:
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			return ts, true
		}
	case float64:
		if v <= 0 {
			return time.Time{}, false
		}
		if v > 1e12 { // milliseconds
			return time.UnixMilli(int64(v)), true
		}
		return time.Unix(int64(v), 0), true
	case int64:
		if v <= 0 {
			return time.Time{}, false
		}
		if v > 1e12 {
			return time.UnixMilli(v), true
		}
		return time.Unix(v, 0), true
	}
	return time.Time{}, false
}
