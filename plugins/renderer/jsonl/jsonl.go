package jsonl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"pinvestigator/pkg/contract"
)

// Options 为 JSONL 渲染器的可选配置。
type Options struct {
	// OmitSkipped: 不输出 skipped 记录。
	OmitSkipped bool `json:"omit_skipped"`
}

// Record 为 JSONL 的单行对象；Type 决定其余字段的含义。
// summary → Source/Processed/Groups/Unmatched/Skipped
// group → Index/Variant/Lines/Words
// unmatched → Line
// skipped → Row/Text
type Record struct {
	Type      string   `json:"type"`
	Source    string   `json:"source,omitempty"`
	Processed int      `json:"processed,omitempty"`
	Groups    int      `json:"groups,omitempty"`
	Unmatched int      `json:"unmatched,omitempty"`
	Skipped   int      `json:"skipped,omitempty"`
	Index     int      `json:"index,omitempty"`
	Variant   string   `json:"variant,omitempty"`
	Lines     []string `json:"lines,omitempty"`
	Words     []string `json:"words,omitempty"`
	Line      string   `json:"line,omitempty"`
	Row       int      `json:"row,omitempty"`
	Text      *string  `json:"text,omitempty"`
}

// Renderer 输出机器可读的逐行 JSON。
type Renderer struct {
	omitSkipped bool
}

// New 创建 JSONL 渲染器。
func New(opts *Options) *Renderer {
	r := &Renderer{}
	if opts != nil {
		r.omitSkipped = opts.OmitSkipped
	}
	return r
}

// Ext 返回工件扩展名。
func (r *Renderer) Ext() string { return ".jsonl" }

// Render 依次输出 summary、各 group、各 unmatched 与 skipped。
func (r *Renderer) Render(ctx context.Context, fileID contract.FileID, rep contract.Report) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	recs := make([]Record, 0, 1+len(rep.Groups)+len(rep.Unmatched)+len(rep.Skipped))
	recs = append(recs, Record{
		Type:      "summary",
		Source:    string(fileID),
		Processed: rep.Processed,
		Groups:    len(rep.Groups),
		Unmatched: len(rep.Unmatched),
		Skipped:   len(rep.Skipped),
	})
	for i, g := range rep.Groups {
		recs = append(recs, Record{Type: "group", Index: i + 1, Variant: g.Variant, Lines: g.Lines, Words: g.Words})
	}
	for _, l := range rep.Unmatched {
		recs = append(recs, Record{Type: "unmatched", Line: l})
	}
	if !r.omitSkipped {
		for _, s := range rep.Skipped {
			text := s.Text
			recs = append(recs, Record{Type: "skipped", Row: s.LineNo, Text: &text})
		}
	}
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return nil, err
		}
	}
	return &buf, nil
}

var _ contract.Renderer = (*Renderer)(nil)
