package html

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
		Lines:   []string{"d1 t1 <b>Naomi</b> is here", "d2 t2 George is here"},
		Words:   []string{"<b>Naomi</b>", "George"},
	}},
	Unmatched: []string{"d3 t3 alone & lonely"},
	Processed: 3,
}

func render(t *testing.T, r *Renderer) string {
	t.Helper()
	rd, err := r.Render(context.Background(), "in.txt", sample)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	b, _ := io.ReadAll(rd)
	return string(b)
}

func TestRenderDocument(t *testing.T) {
	out := render(t, New(&Options{Title: "A & B"}))
	for _, want := range []string{
		"<!doctype html>",
		"<title>A &amp; B</title>",
		"<h1>A &amp; B</h1>",
		"<h2>Group 1</h2>",
		"d1 t1 &lt;b&gt;Naomi&lt;/b&gt; is here",
		"d3 t3 alone &amp; lonely",
		"</body></html>",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<b>Naomi</b>") {
		t.Fatalf("raw html must be escaped")
	}
}

// 标题中的 Markdown 标记不生成强调或链接
func TestRenderTitleLiteral(t *testing.T) {
	out := render(t, New(&Options{Title: "*Ops* [x](y)", Fragment: true}))
	if !strings.Contains(out, "<h1>*Ops* [x](y)</h1>") {
		t.Fatalf("title rendered with markup:\n%s", out)
	}
}

func TestRenderFragment(t *testing.T) {
	r := New(&Options{Fragment: true})
	out := render(t, r)
	if strings.Contains(out, "<!doctype html>") || !strings.Contains(out, "<h1>Investigation report</h1>") {
		t.Fatalf("unexpected fragment:\n%s", out)
	}
	if r.Ext() != ".html" {
		t.Fatalf("ext = %s", r.Ext())
	}
}

func TestRenderInvalid(t *testing.T) {
	bad := contract.Report{Groups: []contract.Group{{Lines: []string{"a"}, Words: []string{"x"}}}}
	if _, err := New(nil).Render(context.Background(), "f", bad); !errors.Is(err, contract.ErrInvariantViolation) {
		t.Fatalf("expect invariant violation, got %v", err)
	}
}
