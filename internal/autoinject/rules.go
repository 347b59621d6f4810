// Package autoinject implements the Auto-Inject Engine from spec §4.8: a
// per-(user,channel) round counter plus a first-match-wins rule table that
// splices retrieved memories into the outgoing system prompt.
package autoinject

import "strings"

// recallKeywords trigger the general "recall" rule.
var recallKeywords = []string{
	"还记得", "之前", "上次", "以前", "那次", "我们曾经",
	"你记得", "还记不记得", "之前说", "上回", "有一次",
}

// plotRecallKeywords trigger the "plot_recall" rule, only while scene=plot.
var plotRecallKeywords = []string{
	"继续", "上次剧情", "之前演到", "接着上次", "上次的剧情",
	"之前的故事", "接着演",
}

// emotionKeywords trigger the "emotion" rule; the matched keyword doubles
// as the emotion value passed to RecentByEmotion.
var emotionKeywords = []string{
	"想你", "难过", "开心", "emo", "伤心", "生气",
	"好累", "寂寞", "孤独", "想念", "高兴", "烦",
	"不开心", "沮丧", "焦虑",
}

// maxInjectChars caps the injected memory block (spec §4.8 budget).
const maxInjectChars = 500

// rule names, matching spec §4.8's table.
const (
	ruleColdStart  = "cold_start"
	rulePlotRecall = "plot_recall"
	ruleRecall     = "recall"
	ruleEmotion    = "emotion"
	ruleDefault    = "default"
)

func firstMatch(msg string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) {
			return kw, true
		}
	}
	return "", false
}
