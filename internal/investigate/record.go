package investigate

import (
	"fmt"
	"strings"
)

// Record: 单行在某一个掩码变体下的分析结果。
// 一行有 k 个句子词即产生 k 个 Record，它们共享原文/时间戳/词序列，仅 Variant 不同。
// 构造后只读。
type Record struct {
	Raw       string
	Timestamp string
	Tokens    []string
	Variant   Variant
	body      string
}

// NewRecord 基于原文、完整词序列与一个掩码变体构造 Record。
func NewRecord(raw string, tokens []string, v Variant) Record {
	return Record{
		Raw:       raw,
		Timestamp: Timestamp(tokens),
		Tokens:    tokens,
		Variant:   v,
		body:      strings.Join(Body(tokens), ""),
	}
}

// Body 返回句子主体：句子词直接拼接，区分大小写、未掩码、不含时间戳。
func (r Record) Body() string { return r.body }

// Dedup 决定同一掩码键下两条 Record 何时视为同一句子。
type Dedup int

const (
	// DedupBody: 仅比较句子主体。
	DedupBody Dedup = iota
	// DedupLine: 比较句子主体与时间戳；主体相同、时间戳不同的两行各自入组。
	DedupLine
)

// ParseDedup 解析配置值（空串为 body）。
func ParseDedup(s string) (Dedup, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "body":
		return DedupBody, nil
	case "line":
		return DedupLine, nil
	default:
		return DedupBody, fmt.Errorf("unknown dedup mode %q", s)
	}
}

func (d Dedup) String() string {
	if d == DedupLine {
		return "line"
	}
	return "body"
}

// sentenceKey: 去重比较用的值类型，相等性仅由字段值决定。
type sentenceKey struct {
	body      string
	timestamp string
}

func (d Dedup) identity(r Record) sentenceKey {
	if d == DedupLine {
		return sentenceKey{body: r.body, timestamp: r.Timestamp}
	}
	return sentenceKey{body: r.body}
}
