// Package common holds helpers for reading structured answers out of LLM
// completions.
package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoJSONObject  = errors.New("no JSON object in completion")
	ErrMalformedJSON = errors.New("malformed JSON in completion")
)

// ParseJSON decodes the JSON object of a completion into T. A ```json
// fence is unwrapped first, then the text from the first '{' to the last
// '}' is decoded, which drops any chatter around the object.
func ParseJSON[T any](completion string) (T, error) {
	var out T

	body := unfence(completion)
	start := strings.IndexByte(body, '{')
	end := strings.LastIndexByte(body, '}')
	if start < 0 || end < start {
		return out, fmt.Errorf("%w: %q", ErrNoJSONObject, truncate(completion))
	}

	if err := json.Unmarshal([]byte(body[start:end+1]), &out); err != nil {
		return out, fmt.Errorf("%w: %w", ErrMalformedJSON, err)
	}
	return out, nil
}

// unfence returns the body of the first fenced block, or s unchanged when
// it holds no complete fence.
func unfence(s string) string {
	open := strings.Index(s, "```")
	if open < 0 {
		return s
	}
	rest := s[open+3:]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		// Skip the info string, e.g. "json".
		rest = rest[nl+1:]
	}
	closing := strings.Index(rest, "```")
	if closing < 0 {
		return s
	}
	return rest[:closing]
}

const maxQuoted = 120

func truncate(s string) string {
	if len(s) <= maxQuoted {
		return s
	}
	return s[:maxQuoted] + "..."
}
