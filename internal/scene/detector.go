// Package scene implements the pure, deterministic Scene Detector from
// spec §4.3: a keyword classifier with per-channel sticky state.
package scene

import (
	"strings"
	"sync"
)

// Scene is the coarse-grained classification of a message's conversational
// mode (spec GLOSSARY).
type Scene string

const (
	Daily Scene = "daily"
	Plot  Scene = "plot"
	Meta  Scene = "meta"
)

// metaKeywords, plotEnterKeywords, plotExitKeywords are the three keyword
// sets the detector matches against, in priority order (spec §4.3).
var (
	metaKeywords = []string{
		"mcp", "测试mcp", "调试", "debug", "系统提示", "system prompt", "健康检查", "health_check",
	}
	plotEnterKeywords = []string{
		"来玩剧本", "我们来演", "角色扮演", "roleplay", "进入剧情", "开始剧本",
	}
	plotExitKeywords = []string{
		"退出剧本", "结束角色扮演", "回到现实", "exit roleplay", "结束剧情",
	}
)

func containsAny(msg string, keywords []string) bool {
	lower := strings.ToLower(msg)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// channelState is the sticky (current, previous) pair kept per channel
// (spec §3 "Scene state").
type channelState struct {
	current  Scene
	previous Scene
}

// Detector holds process-local, per-channel sticky state and is safe for
// concurrent use (spec §5 "shared mutable state").
type Detector struct {
	mu    sync.Mutex
	state map[string]*channelState
}

// NewDetector returns a detector with no channel history.
func NewDetector() *Detector {
	return &Detector{state: make(map[string]*channelState)}
}

// Result is the outcome of one Detect call.
type Result struct {
	Scene   Scene
	Changed bool
}

// Detect classifies msg for channel, applying the priority order from
// spec §4.3: META → PLOT_EXIT → PLOT_ENTER → inherit current. A meta
// decision is never sticky; it resets the channel's `current` to daily, so
// the following message starts from daily even if the channel was in plot.
func (d *Detector) Detect(channel, msg string) Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.state[channel]
	if !ok {
		st = &channelState{current: Daily, previous: Daily}
		d.state[channel] = st
	}

	prevCurrent := st.current
	var decided Scene
	switch {
	case containsAny(msg, metaKeywords):
		// meta is never sticky: the scene returned for this message is
		// meta, but the channel's sticky state reverts to daily so the
		// very next message starts from daily, not from whatever was
		// active before the meta message.
		changed := Meta != prevCurrent
		st.previous = st.current
		st.current = Daily
		return Result{Scene: Meta, Changed: changed}
	case containsAny(msg, plotExitKeywords):
		decided = Daily
	case containsAny(msg, plotEnterKeywords):
		decided = Plot
	default:
		decided = st.current
	}

	changed := decided != prevCurrent
	st.previous = st.current
	st.current = decided
	return Result{Scene: decided, Changed: changed}
}

// Current returns the sticky scene for channel without consuming a message.
func (d *Detector) Current(channel string) Scene {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.state[channel]; ok {
		return st.current
	}
	return Daily
}
