package contract

import (
	"fmt"
	"strings"
)

// FileID: 逻辑文档ID（通常为路径，需规范化，跨平台一致）。
type FileID string

// Line: 输入源中的一行原文（不含换行符）。
type Line struct {
	// No: 1 起始的物理行号（空行同样计数）。
	No   int
	Text string
}

// Group: 一组仅在同一位置相差一个词的句子。
// 约束：
// - Lines 与 Words 等长，且按摄入顺序一一对应；
// - 至少两条。
type Group struct {
	// Variant: 共享的掩码变体（小写、无分隔符）。
	Variant string
	Lines   []string
	Words   []string
}

// Skipped: 不满足“时间戳 + 句子”结构而被跳过的行。
type Skipped struct {
	LineNo int
	Text   string
}

// Report: 一次调查的结构化结果。
type Report struct {
	Groups []Group
	// Unmatched: 没有任何相似句的原文行。
	Unmatched []string
	Skipped   []Skipped
	// Processed: 已遍历的输入行数（含被跳过的行）。
	Processed int
}

const (
	// ChangingWordPrefix 为每组尾行前缀。
	ChangingWordPrefix = "The changing word was: "
	// UnmatchedHeader 为未匹配段落的标题行（前面有一个空行）。
	UnmatchedHeader = "Following sentences had no similar sentences:"
)

// FormatWords 按 "[w1, w2, ...]" 形式渲染变化词列表。
func FormatWords(words []string) string {
	return "[" + strings.Join(words, ", ") + "]"
}

// Lines 返回报告的逐行文本表示（不含换行符）。
// 空报告返回 nil。
func (r Report) Lines() []string {
	var out []string
	for _, g := range r.Groups {
		out = append(out, g.Lines...)
		out = append(out, ChangingWordPrefix+FormatWords(g.Words))
	}
	if len(r.Unmatched) > 0 {
		out = append(out, "", UnmatchedHeader)
		out = append(out, r.Unmatched...)
	}
	return out
}

// Validate 检查分组约束：至少两条、Lines 与 Words 等长。
// 违例返回包装 ErrInvariantViolation 的错误。
func (r Report) Validate() error {
	for i, g := range r.Groups {
		if len(g.Lines) < 2 {
			return fmt.Errorf("%w: group %d has %d lines", ErrInvariantViolation, i, len(g.Lines))
		}
		if len(g.Lines) != len(g.Words) {
			return fmt.Errorf("%w: group %d has %d lines but %d words", ErrInvariantViolation, i, len(g.Lines), len(g.Words))
		}
	}
	return nil
}
