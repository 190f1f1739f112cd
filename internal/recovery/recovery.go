// Package recovery turns raw model output into validated suggestion results.
//
// Every entry point runs the same ordered cascade: strict decoding of the
// unwrapped text, decoding of the outermost JSON value found inside it, a
// shape-specific heuristic where one exists, and finally a degraded value
// that carries a human-readable error. None of them return an error or panic.
package recovery

import (
	"encoding/json"
	"strings"

	"github.com/kiranshivaraju/gemba/internal/metrics"
)

// Tier reports which stage of the cascade produced a result.
type Tier string

const (
	TierStrict    Tier = "strict"
	TierRepaired  Tier = "repaired"
	TierHeuristic Tier = "heuristic"
	TierDegraded  Tier = "degraded"
)

// MaxListItems caps every list produced by a heuristic.
const MaxListItems = 5

type attempt[T any] struct {
	tier Tier
	run  func(raw string) (T, bool)
}

func cascade[T any](shape, raw string, degraded func() T, attempts ...attempt[T]) (out T, tier Tier) {
	defer func() {
		if r := recover(); r != nil {
			out, tier = degraded(), TierDegraded
		}
		metrics.RecoveryTotal.WithLabelValues(shape, string(tier)).Inc()
	}()

	for _, a := range attempts {
		if v, ok := a.run(raw); ok {
			return v, a.tier
		}
	}
	return degraded(), TierDegraded
}

// StripWrapper removes surrounding whitespace and a Markdown code fence, with
// or without a language tag, from model output.
func StripWrapper(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[idx+1:]
	} else {
		s = strings.TrimLeft(s, "`")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// enclosed returns the text from the first open delimiter to the last end
// delimiter, inclusive.
func enclosed(s string, open, end byte) (string, bool) {
	i := strings.IndexByte(s, open)
	j := strings.LastIndexByte(s, end)
	if i < 0 || j <= i {
		return "", false
	}
	return s[i : j+1], true
}

func decode[T any](s string) (T, bool) {
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return v, false
	}
	return v, true
}

// strictThenEnclosed builds the two JSON tiers for a shape whose top-level
// value is delimited by open and end.
func strictThenEnclosed[T any](open, end byte, parse func(string) (T, bool)) []attempt[T] {
	return []attempt[T]{
		{tier: TierStrict, run: func(raw string) (T, bool) {
			return parse(StripWrapper(raw))
		}},
		{tier: TierRepaired, run: func(raw string) (T, bool) {
			inner, ok := enclosed(raw, open, end)
			if !ok {
				var zero T
				return zero, false
			}
			return parse(inner)
		}},
	}
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

func capItems(items []string) []string {
	if len(items) > MaxListItems {
		return items[:MaxListItems]
	}
	return items
}
