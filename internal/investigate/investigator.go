package investigate

import (
	"context"
	"fmt"
	"time"

	"pinvestigator/internal/diag"
	"pinvestigator/pkg/contract"
)

// Options: 调查的可选行为（零值即原始语义）。
type Options struct {
	Order Order
	Dedup Dedup
	// Progress 可选；每 progressEvery 行及结束时回调（已处理行数, 已跳过行数）。
	Progress func(done, skipped int)
}

const progressEvery = 1024

// maskLine 可在测试中替换以注入非预期故障。
var maskLine = Mask

// Investigator 驱动 Tokenize → Mask → Record → Index，并在之后产出报告。
// 每次 Investigate 都从空索引开始；失败时丢弃全部中间状态。
type Investigator struct {
	source    contract.FileID
	opts      Options
	logger    *diag.Logger
	idx       *Index
	skipped   []contract.Skipped
	processed int
	ready     bool
}

// New 创建调查器；logger 可为 nil。
func New(source contract.FileID, opts Options, logger *diag.Logger) *Investigator {
	inv := &Investigator{source: source, opts: opts, logger: logger}
	inv.reset()
	return inv
}

func (inv *Investigator) reset() {
	inv.idx = NewIndex(inv.opts.Dedup)
	inv.skipped = nil
	inv.processed = 0
	inv.ready = false
}

// Investigate 按顺序摄入全部行。
// 结构不合法的行被跳过并记录诊断；任何非预期错误（含取消）使整批作废，
// 返回包装 contract.ErrBatchFailure 的错误。
func (inv *Investigator) Investigate(ctx context.Context, lines []contract.Line) (err error) {
	inv.reset()
	start := time.Now()
	var t *diag.Timer
	if inv.logger != nil {
		t = inv.logger.StartWith("investigator", "starting to analyze received input", string(inv.source))
	}
	row := 0
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: row %d: %v", contract.ErrBatchFailure, row, r)
		}
		if err != nil {
			inv.reset()
			if inv.logger != nil {
				inv.logger.ErrorWith("investigator", string(diag.Classify(err)), "exception while analyzing input", &start, string(inv.source))
			}
		}
	}()

	for _, ln := range lines {
		row = ln.No
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("%w: row %d: %w", contract.ErrBatchFailure, row, cerr)
		}
		inv.processed++
		inv.ingest(ln)
		if inv.opts.Progress != nil && inv.processed%progressEvery == 0 {
			inv.opts.Progress(inv.processed, len(inv.skipped))
		}
	}
	if inv.opts.Progress != nil {
		inv.opts.Progress(inv.processed, len(inv.skipped))
	}
	inv.ready = true
	if t != nil {
		t.Finish("finished analyzing input, rows analyzed", int64(inv.processed))
	}
	return nil
}

func (inv *Investigator) ingest(ln contract.Line) {
	tokens := Tokenize(ln.Text)
	if !Valid(tokens) {
		inv.skipped = append(inv.skipped, contract.Skipped{LineNo: ln.No, Text: ln.Text})
		if inv.logger != nil {
			inv.logger.WarnLine("investigator", "row is not according to sentence structure and will not be analyzed", string(inv.source), ln.No, map[string]string{"row": ln.Text})
		}
		return
	}
	for _, v := range maskLine(tokens) {
		inv.idx.Add(NewRecord(ln.Text, tokens, v))
	}
}

// Report 提取报告；仅在 Investigate 成功后可调用一次（提取会排空未匹配池）。
func (inv *Investigator) Report() (contract.Report, error) {
	if !inv.ready {
		return contract.Report{}, contract.ErrNotInvestigated
	}
	inv.ready = false
	rep := extract(inv.idx, inv.opts.Order)
	rep.Skipped = inv.skipped
	rep.Processed = inv.processed
	return rep, nil
}

// Run 对一组行执行一次完整调查并返回报告。
func Run(ctx context.Context, source contract.FileID, lines []contract.Line, opts Options, logger *diag.Logger) (contract.Report, error) {
	inv := New(source, opts, logger)
	if err := inv.Investigate(ctx, lines); err != nil {
		return contract.Report{}, err
	}
	return inv.Report()
}

// Lines 将文本按顺序编号为 1..n 的 Line。
func Lines(texts ...string) []contract.Line {
	out := make([]contract.Line, len(texts))
	for i, s := range texts {
		out[i] = contract.Line{No: i + 1, Text: s}
	}
	return out
}
