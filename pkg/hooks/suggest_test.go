// ABOUTME: Tests for the fuzzy event-name suggestion used in debug diagnostics
// ABOUTME: Near misses map to a known event; unrelated names get nothing

package hooks

import "testing"

func TestSuggestEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want EventName
		ok   bool
	}{
		{"pretooluse", PreToolUse, true},
		{"PreToolUse2", PreToolUse, true},
		{"SubagentStopV2", SubagentStop, true},
		{"Notif", Notification, true},
		{"", "", false},
		{"zzz", "", false},
	}
	for _, tt := range tests {
		got, ok := suggestEvent(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("suggestEvent(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
