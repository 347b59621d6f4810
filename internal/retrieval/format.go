package retrieval

import (
	"fmt"
)

const (
	userPreviewChars    = 80
	assistantPreviewChars = 80
	summaryPreviewChars = 150
)

// Format renders an Item as the bracketed, timestamped preview line shared
// by the auto-inject engine and the search_memory/init_context tools (spec
// §4.6 "formatted for injection", §4.8).
func Format(it Item) string {
	ts := it.CreatedAt.Local().Format("1月2日 15:04")
	text := it.Text
	if it.Source == SourceSummary {
		text = truncateRunes(text, summaryPreviewChars)
	} else {
		text = truncateTurnText(text)
	}
	return fmt.Sprintf("[%s] %s %s", it.SceneType, ts, text)
}

// truncateTurnText truncates the "user / assistant" combined text by
// truncating each half independently, preserving the separator.
func truncateTurnText(text string) string {
	const sep = " / "
	for i := 0; i+len(sep) <= len(text); i++ {
		if text[i:i+len(sep)] == sep {
			user := truncateRunes(text[:i], userPreviewChars)
			assistant := truncateRunes(text[i+len(sep):], assistantPreviewChars)
			return user + sep + assistant
		}
	}
	return truncateRunes(text, userPreviewChars+assistantPreviewChars)
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
