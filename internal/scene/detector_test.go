package scene

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetector_MetaIsNeverSticky(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, Plot, d.Detect("c1", "来玩剧本").Scene)
	assert.Equal(t, Plot, d.Detect("c1", "他走进房间").Scene, "plot should stick across a non-matching message")
	assert.Equal(t, Meta, d.Detect("c1", "测试MCP").Scene)
	assert.Equal(t, Daily, d.Detect("c1", "继续").Scene, "the turn after a meta message reverts to daily")
}

func TestDetector_PlotExitReturnsToDaily(t *testing.T) {
	d := NewDetector()
	assert.Equal(t, Plot, d.Detect("c1", "我们来演一出戏").Scene)
	assert.Equal(t, Daily, d.Detect("c1", "退出剧本").Scene)
	assert.Equal(t, Daily, d.Detect("c1", "随便说点什么").Scene, "daily should stick after an exit")
}

func TestDetector_IndependentChannels(t *testing.T) {
	d := NewDetector()
	d.Detect("c1", "来玩剧本")
	assert.Equal(t, Daily, d.Detect("c2", "hello").Scene, "channels must not share sticky state")
}

func TestDetector_IsPure(t *testing.T) {
	d := NewDetector()
	d.Detect("c1", "来玩剧本")
	first := d.Detect("c1", "continue plot")
	d2 := NewDetector()
	d2.Detect("c1", "来玩剧本")
	second := d2.Detect("c1", "continue plot")
	assert.Equal(t, first, second)
}
