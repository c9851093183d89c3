// ABOUTME: Fuzzy "did you mean" lookup for event names without a dedicated view
// ABOUTME: Wraps sahilm/fuzzy; only used for diagnostics, never for dispatch

package hooks

import "github.com/sahilm/fuzzy"

// suggestEvent returns the known event closest to name. It tries name as a
// pattern over the known names first ("pretooluse"), then each known name as
// a pattern over name ("PreToolUseV2").
func suggestEvent(name string) (EventName, bool) {
	if name == "" {
		return "", false
	}
	known := KnownEvents()
	names := make([]string, len(known))
	for i, k := range known {
		names[i] = string(k)
	}

	if matches := fuzzy.Find(name, names); len(matches) > 0 {
		return EventName(matches[0].Str), true
	}

	best, bestScore := "", 0
	for _, k := range names {
		matches := fuzzy.Find(k, []string{name})
		if len(matches) == 0 {
			continue
		}
		if best == "" || matches[0].Score > bestScore {
			best, bestScore = k, matches[0].Score
		}
	}
	if best == "" {
		return "", false
	}
	return EventName(best), true
}
