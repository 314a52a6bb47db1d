package markdown

import (
	"context"
	"fmt"
	"io"
	"strings"

	"pinvestigator/pkg/contract"
)

// DefaultTitle 为文档一级标题。
const DefaultTitle = "Investigation report"

// Options 为 Markdown 渲染器的可选配置。
type Options struct {
	Title string `json:"title"`
	// IncludeSkipped: 追加被跳过行的小节。
	IncludeSkipped bool `json:"include_skipped"`
}

// Renderer 将报告渲染为 Markdown：每组一个小节，原文放在代码块内保持逐字。
type Renderer struct {
	title       string
	withSkipped bool
}

// New 创建 Markdown 渲染器。
func New(opts *Options) *Renderer {
	r := &Renderer{title: DefaultTitle}
	if opts != nil {
		if t := strings.TrimSpace(opts.Title); t != "" {
			r.title = t
		}
		r.withSkipped = opts.IncludeSkipped
	}
	return r
}

// Ext 返回工件扩展名。
func (r *Renderer) Ext() string { return ".md" }

// Render 渲染报告；分组违例返回 ErrInvariantViolation。
func (r *Renderer) Render(ctx context.Context, fileID contract.FileID, rep contract.Report) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := r.Document(fileID, rep)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(doc), nil
}

// Document 返回完整 Markdown 文本（html 渲染器复用）。
func (r *Renderer) Document(fileID contract.FileID, rep contract.Report) (string, error) {
	if err := rep.Validate(); err != nil {
		return "", err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeInline(r.title))
	fmt.Fprintf(&b, "- Source: `%s`\n", strings.ReplaceAll(string(fileID), "`", "'"))
	fmt.Fprintf(&b, "- Rows analyzed: %d\n", rep.Processed)
	fmt.Fprintf(&b, "- Groups: %d\n", len(rep.Groups))
	fmt.Fprintf(&b, "- Unmatched: %d\n", len(rep.Unmatched))
	fmt.Fprintf(&b, "- Skipped: %d\n", len(rep.Skipped))

	for i, g := range rep.Groups {
		fmt.Fprintf(&b, "\n## Group %d\n\n", i+1)
		writeFenced(&b, g.Lines)
		fmt.Fprintf(&b, "\n%s\n", escapeInline(contract.ChangingWordPrefix+contract.FormatWords(g.Words)))
	}
	if len(rep.Unmatched) > 0 {
		fmt.Fprintf(&b, "\n## %s\n\n", contract.UnmatchedHeader)
		writeFenced(&b, rep.Unmatched)
	}
	if r.withSkipped && len(rep.Skipped) > 0 {
		b.WriteString("\n## Skipped rows\n\n")
		rows := make([]string, len(rep.Skipped))
		for i, s := range rep.Skipped {
			rows[i] = fmt.Sprintf("#%d %s", s.LineNo, s.Text)
		}
		writeFenced(&b, rows)
	}
	return b.String(), nil
}

// writeFenced 写出代码块；围栏长度大于内容中最长的反引号串。
func writeFenced(b *strings.Builder, lines []string) {
	fence := strings.Repeat("`", max(3, longestRun(lines, '`')+1))
	b.WriteString(fence + "text\n")
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(fence + "\n")
}

func longestRun(lines []string, c byte) int {
	best := 0
	for _, l := range lines {
		run := 0
		for i := 0; i < len(l); i++ {
			if l[i] != c {
				run = 0
				continue
			}
			run++
			best = max(best, run)
		}
	}
	return best
}

// escapeInline 转义会被 Markdown 解释的字符。
var inlineEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

func escapeInline(s string) string { return inlineEscaper.Replace(s) }

var _ contract.Renderer = (*Renderer)(nil)
