// Package webhook is the HTTP surface the voice platform calls. It
// decodes tool-call envelopes, routes each call to a command handler
// and answers with one result object per tool call, correlation id
// echoed back unchanged.
package webhook

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ToolCall is a single function invocation inside the envelope.
type ToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name string `json:"name"`
		// Arguments may arrive as a JSON object or as a
		// JSON-encoded string; both forms are accepted.
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

// Envelope is the inbound webhook payload.
type Envelope struct {
	Message struct {
		Type      string     `json:"type"`
		ToolCalls []ToolCall `json:"toolCalls"`
		Call      struct {
			ID       string         `json:"id"`
			Metadata map[string]any `json:"metadata"`
			Customer struct {
				Number string `json:"number"`
			} `json:"customer"`
		} `json:"call"`
		Assistant struct {
			Metadata map[string]any `json:"metadata"`
		} `json:"assistant"`
		Metadata map[string]any `json:"metadata"`
	} `json:"message"`
}

// ToolResult answers exactly one tool call.
type ToolResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     string `json:"result"`
}

// Response is the outbound webhook payload.
type Response struct {
	Results []ToolResult `json:"results"`
}

// Args decodes the call's arguments, unwrapping the string-encoded form
// when needed. A missing arguments field yields an empty map.
func (tc *ToolCall) Args() (map[string]any, error) {
	raw := tc.Function.Arguments
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("arguments string: %w", err)
		}
		if strings.TrimSpace(inner) == "" {
			return map[string]any{}, nil
		}
		raw = json.RawMessage(inner)
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments object: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

// RestaurantID resolves the restaurant for a tool call. Precedence:
// explicit argument, assistant metadata, call metadata, top-level
// message metadata. First non-empty value wins.
func (e *Envelope) RestaurantID(args map[string]any) (int64, bool) {
	if id, ok := toInt64(args["restaurant_id"]); ok {
		return id, true
	}
	for _, meta := range []map[string]any{
		e.Message.Assistant.Metadata,
		e.Message.Call.Metadata,
		e.Message.Metadata,
	} {
		if id, ok := toInt64(meta["restaurant_id"]); ok {
			return id, true
		}
	}
	return 0, false
}

// toInt64 accepts the shapes JSON decoding can produce for an id:
// numbers and numeric strings.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case float64:
		if x <= 0 {
			return 0, false
		}
		return int64(x), true
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil || id <= 0 {
			return 0, false
		}
		return id, true
	default:
		return 0, false
	}
}

func argString(args map[string]any, key string) string {
	if s, ok := args[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func argInt(args map[string]any, key string) int {
	switch x := args[key].(type) {
	case float64:
		return int(x)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func argInt64(args map[string]any, key string) int64 {
	id, _ := toInt64(args[key])
	return id
}

func argBool(args map[string]any, key string) bool {
	switch x := args[key].(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	default:
		return false
	}
}
