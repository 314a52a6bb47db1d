package html

import (
	"bytes"
	"context"
	"fmt"
	stdhtml "html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"pinvestigator/pkg/contract"
	"pinvestigator/plugins/renderer/markdown"
)

// Options 为 HTML 渲染器的可选配置。
type Options struct {
	Title          string `json:"title"`
	IncludeSkipped bool   `json:"include_skipped"`
	// Fragment: 仅输出正文片段，不包裹 <html> 文档。
	Fragment bool `json:"fragment"`
}

// Renderer 先生成 Markdown，再经 goldmark（GFM）转换为 HTML。
type Renderer struct {
	md       *markdown.Renderer
	conv     goldmark.Markdown
	title    string
	fragment bool
}

// New 创建 HTML 渲染器。
func New(opts *Options) *Renderer {
	var o Options
	if opts != nil {
		o = *opts
	}
	title := strings.TrimSpace(o.Title)
	if title == "" {
		title = markdown.DefaultTitle
	}
	return &Renderer{
		md:       markdown.New(&markdown.Options{Title: title, IncludeSkipped: o.IncludeSkipped}),
		conv:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		title:    title,
		fragment: o.Fragment,
	}
}

// Ext 返回工件扩展名。
func (r *Renderer) Ext() string { return ".html" }

// Render 渲染报告；分组违例返回 ErrInvariantViolation。
func (r *Renderer) Render(ctx context.Context, fileID contract.FileID, rep contract.Report) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := r.md.Document(fileID, rep)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := r.conv.Convert([]byte(doc), &body); err != nil {
		return nil, fmt.Errorf("markdown convert: %w", err)
	}
	if r.fragment {
		return &body, nil
	}
	var out bytes.Buffer
	out.WriteString("<!doctype html><html><head><meta charset='utf-8'><title>")
	out.WriteString(stdhtml.EscapeString(r.title))
	out.WriteString("</title><style>body{font-family:sans-serif;max-width:960px;margin:1rem auto;padding:0 1rem;} pre{background:#f6f8fa;padding:0.6rem;overflow-x:auto;}</style></head><body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return &out, nil
}

var _ contract.Renderer = (*Renderer)(nil)
