// Package jsonextract recovers a structured JSON value from LLM prose.
// Models are instructed to emit structured output only, but don't always
// comply; this package tolerates a leading or trailing sentence by
// scanning for the first fully balanced {...} or [...] span rather than
// trusting the whole response to be valid JSON on its own, and rather than
// a naive greedy regex that a nested or multi-top-level response confuses.
package jsonextract

import (
	"encoding/json"
	"errors"
)

// ErrNoBalancedSpan is returned when no complete {...} or [...] span could
// be found in the input.
var ErrNoBalancedSpan = errors.New("jsonextract: no balanced json span found")

// Extract returns the first fully balanced {...} or [...] byte span found
// in raw, respecting quoted strings and backslash escapes so that braces
// inside string literals don't perturb the depth count. If the first
// opener never closes, scanning resumes at the next opener.
func Extract(raw []byte) ([]byte, bool) {
	start := -1
	var open, close byte

	for i := 0; i < len(raw); i++ {
		if raw[i] == '{' || raw[i] == '[' {
			start = i
			open = raw[i]
			if open == '{' {
				close = '}'
			} else {
				close = ']'
			}
			break
		}
	}
	if start == -1 {
		return nil, false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(raw); i++ {
		c := raw[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return raw[start : i+1], true
			}
		}
	}

	return Extract(raw[start+1:])
}

// Decode attempts a direct json.Unmarshal of raw into v; on failure it
// falls back to Extract and decodes the recovered span instead.
func Decode(raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err == nil {
		return nil
	}

	span, ok := Extract(raw)
	if !ok {
		return ErrNoBalancedSpan
	}
	return json.Unmarshal(span, v)
}
