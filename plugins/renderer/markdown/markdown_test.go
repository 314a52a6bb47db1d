package markdown

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"pinvestigator/pkg/contract"
)

var sample = contract.Report{
	Groups: []contract.Group{{
		Variant: "ishere",
		Lines:   []string{"d1 t1 Naomi is here", "d2 t2 George is here"},
		Words:   []string{"Naomi", "George"},
	}},
	Unmatched: []string{"d3 t3 alone"},
	Skipped:   []contract.Skipped{{LineNo: 4, Text: "bad"}},
	Processed: 4,
}

func TestRender(t *testing.T) {
	r := New(&Options{IncludeSkipped: true})
	rd, err := r.Render(context.Background(), "logs/in.txt", sample)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ := io.ReadAll(rd)
	doc := string(b)
	for _, want := range []string{
		"# Investigation report\n",
		"- Source: `logs/in.txt`\n",
		"- Rows analyzed: 4\n",
		"## Group 1\n\n```text\nd1 t1 Naomi is here\nd2 t2 George is here\n```\n",
		"The changing word was: \\[Naomi, George\\]",
		"## Following sentences had no similar sentences:\n\n```text\nd3 t3 alone\n```\n",
		"## Skipped rows\n\n```text\n#4 bad\n```\n",
	} {
		if !strings.Contains(doc, want) {
			t.Fatalf("missing %q in:\n%s", want, doc)
		}
	}
	if r.Ext() != ".md" {
		t.Fatalf("ext = %s", r.Ext())
	}
}

func TestRenderDefaults(t *testing.T) {
	doc, err := New(&Options{Title: "  Daily  "}).Document("f", contract.Report{})
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if !strings.HasPrefix(doc, "# Daily\n") || strings.Contains(doc, "## ") {
		t.Fatalf("unexpected doc:\n%s", doc)
	}
	doc, _ = New(nil).Document("f", sample)
	if strings.Contains(doc, "Skipped rows") {
		t.Fatalf("skipped section should be off by default")
	}
}

// 标题中的 Markdown 标记按字面输出
func TestRenderTitleEscaped(t *testing.T) {
	doc, err := New(&Options{Title: "*Ops* [nightly] <b>"}).Document("f", contract.Report{})
	if err != nil {
		t.Fatalf("document: %v", err)
	}
	if !strings.HasPrefix(doc, "# \\*Ops\\* \\[nightly\\] \\<b\\>\n") {
		t.Fatalf("title not escaped:\n%s", doc)
	}
}

// 原文含反引号时加长围栏
func TestFenceLongerThanContent(t *testing.T) {
	var b strings.Builder
	writeFenced(&b, []string{"d t use ```code``` and ````more````"})
	if !strings.HasPrefix(b.String(), "`````text\n") {
		t.Fatalf("fence too short: %q", b.String())
	}
	if longestRun([]string{"a``b", "`"}, '`') != 2 {
		t.Fatalf("longestRun")
	}
}

func TestRenderInvalid(t *testing.T) {
	bad := contract.Report{Groups: []contract.Group{{Lines: []string{"a", "b"}, Words: []string{"x"}}}}
	if _, err := New(nil).Render(context.Background(), "f", bad); !errors.Is(err, contract.ErrInvariantViolation) {
		t.Fatalf("expect invariant violation, got %v", err)
	}
}
