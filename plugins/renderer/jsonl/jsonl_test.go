package jsonl

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pinvestigator/pkg/contract"
)

func decode(t *testing.T, r io.Reader) []Record {
	t.Helper()
	var out []Record
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad line %q: %v", sc.Text(), err)
		}
		out = append(out, rec)
	}
	return out
}

func TestRender(t *testing.T) {
	rep := contract.Report{
		Groups:    []contract.Group{{Variant: "ishere", Lines: []string{"a <x>", "b"}, Words: []string{"Naomi", "George"}}},
		Unmatched: []string{"d3 t3 alone"},
		Skipped:   []contract.Skipped{{LineNo: 4, Text: ""}},
		Processed: 4,
	}
	rd, err := New(nil).Render(context.Background(), "in.txt", rep)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	empty := ""
	want := []Record{
		{Type: "summary", Source: "in.txt", Processed: 4, Groups: 1, Unmatched: 1, Skipped: 1},
		{Type: "group", Index: 1, Variant: "ishere", Lines: []string{"a <x>", "b"}, Words: []string{"Naomi", "George"}},
		{Type: "unmatched", Line: "d3 t3 alone"},
		{Type: "skipped", Row: 4, Text: &empty},
	}
	if diff := cmp.Diff(want, decode(t, rd)); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestRenderOmitSkipped(t *testing.T) {
	rep := contract.Report{Skipped: []contract.Skipped{{LineNo: 1, Text: "x"}}, Processed: 1}
	r := New(&Options{OmitSkipped: true})
	rd, err := r.Render(context.Background(), "in.txt", rep)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if recs := decode(t, rd); len(recs) != 1 || recs[0].Type != "summary" {
		t.Fatalf("recs = %+v", recs)
	}
	if r.Ext() != ".jsonl" {
		t.Fatalf("ext = %s", r.Ext())
	}
}

func TestRenderInvalid(t *testing.T) {
	bad := contract.Report{Groups: []contract.Group{{Lines: []string{"a"}, Words: []string{"x"}}}}
	if _, err := New(nil).Render(context.Background(), "f", bad); !errors.Is(err, contract.ErrInvariantViolation) {
		t.Fatalf("expect invariant violation, got %v", err)
	}
}
