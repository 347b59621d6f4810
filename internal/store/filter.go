package store

import "strings"

// skipMarkers are the fixed prompt-engineering markers that disqualify a
// turn from being persisted (spec §3, §4.2). Matching is case-insensitive
// and checked against the raw user text.
var skipMarkers = []string{
	"summarize",
	"system_auto",
	"you are a",
	"health_check",
	"ping_test",
	"[system]",
}

// passesSystemMessageFilter implements the invariant from spec §3/§4.2/§8:
// a turn is persisted only if both sides are non-empty, the user side is at
// least two characters after trimming, and it contains none of the fixed
// system-prompt markers.
func passesSystemMessageFilter(userMsg, assistantMsg string) bool {
	u := strings.TrimSpace(userMsg)
	a := strings.TrimSpace(assistantMsg)
	if len([]rune(u)) < 2 || len(a) < 1 {
		return false
	}
	lower := strings.ToLower(u)
	for _, marker := range skipMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	return true
}
