package investigate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"pinvestigator/pkg/contract"
)

func run(t *testing.T, opts Options, texts ...string) contract.Report {
	t.Helper()
	rep, err := Run(context.Background(), "mem", Lines(texts...), opts, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return rep
}

func findGroup(rep contract.Report, key string) (contract.Group, bool) {
	for _, g := range rep.Groups {
		if g.Variant == key {
			return g, true
		}
	}
	return contract.Group{}, false
}

const (
	lCar1   = "01-01-2012 19:45:00 Naomi is getting into the car"
	lRest   = "01-01-2012 20:12:39 Naomi is eating at a restaurant"
	lCar2   = "02-01-2012 09:13:15 George is getting into the car"
	lDiner  = "02-01-2012 10:14:00 George is eating at a diner"
	lDiner2 = "03-01-2012 10:14:00 Naomi is eating at a diner"
	lOved   = "04-01-2012 08:00:00 Oved went home early"
)

// TestReportFixture 多组与尾部未匹配行的完整报告。
func TestReportFixture(t *testing.T) {
	rep := run(t, Options{}, lCar1, lRest, lCar2, lDiner, lDiner2, lOved)
	want := contract.Report{
		Groups: []contract.Group{
			{Variant: "isgettingintothecar", Lines: []string{lCar1, lCar2}, Words: []string{"Naomi", "George"}},
			{Variant: "naomiiseatingata", Lines: []string{lRest, lDiner2}, Words: []string{"restaurant", "diner"}},
			{Variant: "iseatingatadiner", Lines: []string{lDiner, lDiner2}, Words: []string{"George", "Naomi"}},
		},
		Unmatched: []string{lOved},
		Processed: 6,
	}
	if diff := cmp.Diff(want, rep); diff != "" {
		t.Fatalf("report mismatch (-want +got):\n%s", diff)
	}
	wantLines := []string{
		lCar1, lCar2, "The changing word was: [Naomi, George]",
		lRest, lDiner2, "The changing word was: [restaurant, diner]",
		lDiner, lDiner2, "The changing word was: [George, Naomi]",
		"", "Following sentences had no similar sentences:", lOved,
	}
	if diff := cmp.Diff(wantLines, rep.Lines()); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}

// TestReportSortedOrder sorted 模式下组按掩码键字典序输出。
func TestReportSortedOrder(t *testing.T) {
	rep := run(t, Options{Order: OrderSorted}, lCar1, lRest, lCar2, lDiner, lDiner2, lOved)
	var keys []string
	for _, g := range rep.Groups {
		keys = append(keys, g.Variant)
	}
	want := []string{"iseatingatadiner", "isgettingintothecar", "naomiiseatingata"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Fatalf("keys (-want +got):\n%s", diff)
	}
}

// TestDinerRestaurantGroups 第 1、3 行共享前五词，第 2、3 行共享后五词：两组且无尾部。
func TestDinerRestaurantGroups(t *testing.T) {
	l1 := "01-01-2012 20:12:39 Naomi is eating at a restaurant"
	l2 := "02-01-2012 10:14:00 George is eating at a diner"
	l3 := "03-01-2012 10:15:00 Naomi is eating at a diner"
	rep := run(t, Options{}, l1, l2, l3)
	if len(rep.Groups) != 2 {
		t.Fatalf("expect 2 groups, got %d", len(rep.Groups))
	}
	g, ok := findGroup(rep, "iseatingatadiner")
	if !ok {
		t.Fatalf("missing George/Naomi group")
	}
	if diff := cmp.Diff([]string{l2, l3}, g.Lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
	if contract.FormatWords(g.Words) != "[George, Naomi]" {
		t.Fatalf("words = %v", g.Words)
	}
	g, ok = findGroup(rep, "naomiiseatingata")
	if !ok || contract.FormatWords(g.Words) != "[restaurant, diner]" {
		t.Fatalf("restaurant/diner group = %+v", g)
	}
	if len(rep.Unmatched) != 0 {
		t.Fatalf("all lines matched, got tail %q", rep.Unmatched)
	}
}

// TestUnmatchedTail 与其他行长度不同的句子进入尾部。
func TestUnmatchedTail(t *testing.T) {
	l1 := "01-01-2012 20:12:39 Naomi is eating at a fancy restaurant"
	l2 := "02-01-2012 10:14:00 George is eating at a diner"
	l3 := "03-01-2012 10:15:00 Naomi is eating at a diner"
	rep := run(t, Options{}, l1, l2, l3)
	want := []string{
		l2, l3, "The changing word was: [George, Naomi]",
		"", "Following sentences had no similar sentences:", l1,
	}
	if diff := cmp.Diff(want, rep.Lines()); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
}

// TestTimestampOnlyLine 只有时间戳的行被跳过，不出现在任何输出中。
func TestTimestampOnlyLine(t *testing.T) {
	rep := run(t, Options{}, "01-01-2012 20:12:39")
	if len(rep.Groups) != 0 || len(rep.Unmatched) != 0 {
		t.Fatalf("expect empty report, got %+v", rep)
	}
	if rep.Lines() != nil {
		t.Fatalf("expect no output lines, got %q", rep.Lines())
	}
	want := []contract.Skipped{{LineNo: 1, Text: "01-01-2012 20:12:39"}}
	if diff := cmp.Diff(want, rep.Skipped); diff != "" {
		t.Fatalf("skipped (-want +got):\n%s", diff)
	}
	if rep.Processed != 1 {
		t.Fatalf("processed = %d", rep.Processed)
	}
}

// TestEmptyInput 空输入得到空报告。
func TestEmptyInput(t *testing.T) {
	rep := run(t, Options{})
	if len(rep.Groups) != 0 || len(rep.Unmatched) != 0 || rep.Processed != 0 {
		t.Fatalf("expect empty report, got %+v", rep)
	}
}

// TestSkippedLinesKeepPosition 空行与短行计入行号并跳过。
func TestSkippedLinesKeepPosition(t *testing.T) {
	rep := run(t, Options{}, "d1 t1 hello world", "", "d2 t2", "d3 t3 hello there")
	want := []contract.Skipped{{LineNo: 2, Text: ""}, {LineNo: 3, Text: "d2 t2"}}
	if diff := cmp.Diff(want, rep.Skipped); diff != "" {
		t.Fatalf("skipped (-want +got):\n%s", diff)
	}
	g, ok := findGroup(rep, "hello")
	if !ok || contract.FormatWords(g.Words) != "[world, there]" {
		t.Fatalf("group = %+v", g)
	}
}

// TestGroupSoundness 同组 Record 去掉被移除词后主体一致（小写比较）。
func TestGroupSoundness(t *testing.T) {
	rep := run(t, Options{}, lCar1, lRest, lCar2, lDiner, lDiner2, lOved,
		"05-01-2012 08:00:00 Oved went home late",
		"05-01-2012 09:00:00 OVED went HOME late")
	for _, g := range rep.Groups {
		if len(g.Lines) < 2 || len(g.Lines) != len(g.Words) {
			t.Fatalf("group shape: %+v", g)
		}
		for i, raw := range g.Lines {
			body := Body(Tokenize(raw))
			var rest []string
			removed := false
			for _, w := range body {
				if !removed && w == g.Words[i] {
					removed = true
					continue
				}
				rest = append(rest, w)
			}
			if !removed {
				t.Fatalf("%q 不含被移除词 %q", raw, g.Words[i])
			}
			if got := strings.ToLower(strings.Join(rest, "")); got != g.Variant {
				t.Fatalf("%q 去掉 %q 后为 %q, 组键 %q", raw, g.Words[i], got, g.Variant)
			}
		}
	}
}

// TestCaseInsensitiveVariant 掩码键不区分大小写，被移除词保留原样。
func TestCaseInsensitiveVariant(t *testing.T) {
	rep := run(t, Options{}, "d1 t1 Oved went home", "d2 t2 OVED went HOME late")
	if len(rep.Groups) != 0 {
		t.Fatalf("长度不同不应成组: %+v", rep.Groups)
	}
	rep = run(t, Options{}, "d1 t1 Oved went home", "d2 t2 OVED WENT away")
	g, ok := findGroup(rep, "ovedwent")
	if !ok || contract.FormatWords(g.Words) != "[home, away]" {
		t.Fatalf("group = %+v", rep.Groups)
	}
}

// TestPartition 每个合法行的时间戳要么在某组中，要么在尾部，二者不兼得。
func TestPartition(t *testing.T) {
	texts := []string{lCar1, lRest, lCar2, lDiner, lDiner2, lOved, "bad", "06-01-2012 00:00:00 alone here"}
	rep := run(t, Options{}, texts...)
	grouped := map[string]bool{}
	for _, g := range rep.Groups {
		for _, l := range g.Lines {
			grouped[Timestamp(Tokenize(l))] = true
		}
	}
	tail := map[string]bool{}
	for _, l := range rep.Unmatched {
		ts := Timestamp(Tokenize(l))
		if tail[ts] {
			t.Fatalf("尾部重复 %q", ts)
		}
		tail[ts] = true
	}
	for _, s := range texts {
		tokens := Tokenize(s)
		if !Valid(tokens) {
			continue
		}
		ts := Timestamp(tokens)
		if grouped[ts] == tail[ts] {
			t.Fatalf("%q: grouped=%v tail=%v", ts, grouped[ts], tail[ts])
		}
	}
}

// TestSameBodyDifferentTimestamp body 模式下同主体两行互为重复；line 模式下成组。
func TestSameBodyDifferentTimestamp(t *testing.T) {
	a := "01-01-2012 10:00:00 Naomi is here"
	b := "02-01-2012 10:00:00 Naomi is here"

	rep := run(t, Options{}, a, b)
	if len(rep.Groups) != 0 {
		t.Fatalf("body 模式不应成组: %+v", rep.Groups)
	}
	if diff := cmp.Diff([]string{a, b}, rep.Unmatched); diff != "" {
		t.Fatalf("tail (-want +got):\n%s", diff)
	}

	rep = run(t, Options{Dedup: DedupLine}, a, b)
	if len(rep.Groups) != 3 {
		t.Fatalf("line 模式应有 3 组, got %d", len(rep.Groups))
	}
	g, ok := findGroup(rep, "ishere")
	if !ok {
		t.Fatalf("missing group ishere")
	}
	if diff := cmp.Diff([]string{a, b}, g.Lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
	if contract.FormatWords(g.Words) != "[Naomi, Naomi]" {
		t.Fatalf("words = %v", g.Words)
	}
	if len(rep.Unmatched) != 0 {
		t.Fatalf("tail = %q", rep.Unmatched)
	}
}

// TestRepeatedWordGroup 行内相邻重复词只以首个位置入组。
func TestRepeatedWordGroup(t *testing.T) {
	l1 := "d1 t1 a dog dog barks"
	l2 := "d2 t2 a dog cat barks"
	rep := run(t, Options{}, l1, l2)
	g, ok := findGroup(rep, "adogbarks")
	if !ok {
		t.Fatalf("missing group: %+v", rep.Groups)
	}
	if diff := cmp.Diff([]string{l1, l2}, g.Lines); diff != "" {
		t.Fatalf("lines (-want +got):\n%s", diff)
	}
	if contract.FormatWords(g.Words) != "[dog, cat]" {
		t.Fatalf("words = %v", g.Words)
	}
}

// TestCancelledBatch 取消导致整批失败且不产出报告。
func TestCancelledBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	inv := New("mem", Options{}, nil)
	err := inv.Investigate(ctx, Lines(lCar1, lCar2))
	if !errors.Is(err, contract.ErrBatchFailure) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expect batch failure wrapping cancel, got %v", err)
	}
	if _, err := inv.Report(); !errors.Is(err, contract.ErrNotInvestigated) {
		t.Fatalf("report after failure should be refused, got %v", err)
	}
}

// TestPanicBecomesBatchFailure 摄入中的 panic 被转换为 BatchFailure，部分状态被丢弃。
func TestPanicBecomesBatchFailure(t *testing.T) {
	orig := maskLine
	defer func() { maskLine = orig }()
	calls := 0
	maskLine = func(tokens []string) []Variant {
		calls++
		if calls == 2 {
			panic(fmt.Sprintf("boom on %s", tokens[2]))
		}
		return orig(tokens)
	}
	inv := New("mem", Options{}, nil)
	err := inv.Investigate(context.Background(), Lines(lCar1, lCar2, lOved))
	if !errors.Is(err, contract.ErrBatchFailure) {
		t.Fatalf("expect batch failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "row 2") || !strings.Contains(err.Error(), "boom on George") {
		t.Fatalf("error should carry row and cause: %v", err)
	}
	if inv.idx.Len() != 0 || inv.idx.Pending() != 0 {
		t.Fatalf("partial state should be discarded")
	}
	if _, err := inv.Report(); !errors.Is(err, contract.ErrNotInvestigated) {
		t.Fatalf("expect ErrNotInvestigated, got %v", err)
	}
}

// TestReportOnce Report 需先 Investigate，且只可提取一次。
func TestReportOnce(t *testing.T) {
	inv := New("mem", Options{}, nil)
	if _, err := inv.Report(); !errors.Is(err, contract.ErrNotInvestigated) {
		t.Fatalf("expect ErrNotInvestigated, got %v", err)
	}
	if err := inv.Investigate(context.Background(), Lines(lCar1, lCar2)); err != nil {
		t.Fatalf("investigate: %v", err)
	}
	rep, err := inv.Report()
	if err != nil || len(rep.Groups) != 1 {
		t.Fatalf("report: %+v %v", rep, err)
	}
	if _, err := inv.Report(); !errors.Is(err, contract.ErrNotInvestigated) {
		t.Fatalf("second report should be refused, got %v", err)
	}
	// 再次调查从空索引开始
	if err := inv.Investigate(context.Background(), Lines(lOved)); err != nil {
		t.Fatalf("investigate: %v", err)
	}
	rep, _ = inv.Report()
	if len(rep.Groups) != 0 || len(rep.Unmatched) != 1 || rep.Processed != 1 {
		t.Fatalf("state leaked between runs: %+v", rep)
	}
}

func BenchmarkInvestigate(b *testing.B) {
	var texts []string
	for i := 0; i < 2000; i++ {
		texts = append(texts, fmt.Sprintf("d%d t%d user%d is eating at a diner", i, i, i%50))
	}
	lines := Lines(texts...)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Run(context.Background(), "bench", lines, Options{}, nil); err != nil {
			b.Fatal(err)
		}
	}
}

// TestProgressCallback 结束时至少回调一次最终计数。
func TestProgressCallback(t *testing.T) {
	var done, skipped, calls int
	opts := Options{Progress: func(d, s int) { done, skipped, calls = d, s, calls+1 }}
	texts := make([]string, 0, progressEvery+1)
	for i := 0; i < progressEvery; i++ {
		texts = append(texts, fmt.Sprintf("d%d t%d word%d here", i, i, i))
	}
	texts = append(texts, "short")
	run(t, opts, texts...)
	if calls != 2 || done != progressEvery+1 || skipped != 1 {
		t.Fatalf("calls=%d done=%d skipped=%d", calls, done, skipped)
	}
}
