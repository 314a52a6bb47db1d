package text

import (
	"context"
	"fmt"
	"io"
	"strings"

	"pinvestigator/pkg/contract"
)

// Options 为纯文本渲染器的可选配置。
type Options struct {
	// LineEnding: "lf"（默认）或 "crlf"。
	LineEnding string `json:"line_ending"`
}

// Renderer 输出报告的原始行格式：每组原文行 + "The changing word was: [...]"，
// 其后为空行、未匹配标题与未匹配原文。每行以换行结尾。
type Renderer struct {
	eol string
}

// New 创建纯文本渲染器。
func New(opts *Options) (*Renderer, error) {
	eol := "\n"
	if opts != nil {
		switch strings.ToLower(strings.TrimSpace(opts.LineEnding)) {
		case "", "lf":
		case "crlf":
			eol = "\r\n"
		default:
			return nil, fmt.Errorf("text renderer: unknown line_ending %q", opts.LineEnding)
		}
	}
	return &Renderer{eol: eol}, nil
}

// Ext 返回工件扩展名。
func (r *Renderer) Ext() string { return ".txt" }

// Render 渲染报告；分组违例返回 ErrInvariantViolation。空报告渲染为空内容。
func (r *Renderer) Render(ctx context.Context, fileID contract.FileID, rep contract.Report) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := rep.Validate(); err != nil {
		return nil, err
	}
	lines := rep.Lines()
	rs := make([]io.Reader, 0, 2*len(lines))
	for _, l := range lines {
		rs = append(rs, strings.NewReader(l), strings.NewReader(r.eol))
	}
	return io.MultiReader(rs...), nil
}

var _ contract.Renderer = (*Renderer)(nil)
