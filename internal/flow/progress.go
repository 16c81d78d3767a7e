package flow

import (
	"strings"
	"sync"

	"wxt-client-go/internal/tracing"
)

const (
	defaultProgressMaxLines  = 8
	defaultProgressMinLength = 24
)

// ProgressLog 流式拉取过程中的进度展示缓冲。
// 单个 chunk 往往只有一两个字符，直接上屏会闪烁，
// 这里攒够 minLength 才吐出一行，只保留最近 maxLines 行。
// 缓冲内容只用于进度展示，终版数据一律以 done 帧为准。
type ProgressLog struct {
	mu        sync.Mutex
	pending   strings.Builder
	lines     []string
	maxLines  int
	minLength int
}

func NewProgressLog(maxLines, minLength int) *ProgressLog {
	if maxLines <= 0 {
		maxLines = defaultProgressMaxLines
	}
	if minLength <= 0 {
		minLength = defaultProgressMinLength
	}
	return &ProgressLog{maxLines: maxLines, minLength: minLength}
}

// Append 追加一个流式片段，攒够阈值后形成一行
func (p *ProgressLog) Append(chunk string) {
	if chunk == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending.WriteString(chunk)
	if p.pending.Len() >= p.minLength {
		p.flushLocked()
	}
}

// Flush 把未满阈值的残余也吐出来，流结束时调用
func (p *ProgressLog) Flush() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushLocked()
}

func (p *ProgressLog) flushLocked() {
	if p.pending.Len() == 0 {
		return
	}
	p.lines = append(p.lines, tracing.SafeChunk(p.pending.String()))
	p.pending.Reset()
	if len(p.lines) > p.maxLines {
		p.lines = p.lines[len(p.lines)-p.maxLines:]
	}
}

// Lines 当前可展示的行，返回副本
func (p *ProgressLog) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.lines...)
}

func (p *ProgressLog) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending.Reset()
	p.lines = nil
}
