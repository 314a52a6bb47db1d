package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pinvestigator/internal/diag"
	"pinvestigator/internal/investigate"
	"pinvestigator/pkg/contract"
)

// - 逐文件串行：Reader 产出的每个输入独立调查，互不共享状态。
// - 首错即止：任一阶段出错立即返回该错误，不再处理后续输入。
// - 空输入（0 行）视为错误，不写出任何工件。
// - Splitter 返回 ErrSkipped 的输入被跳过：不计数、不占用工件序号；全部被跳过时视为空输入。

// DefaultOutputPrefix 为工件名前缀：<prefix><unix 毫秒>[_n]<ext>。
const DefaultOutputPrefix = "output_"

// Components 聚合运行所需的原子组件。
type Components struct {
	Reader    contract.Reader
	Splitter  contract.Splitter
	Renderers []contract.Renderer
	Writer    contract.Writer
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	// 输入根；输出位置由 Writer 的 options 决定
	Inputs      []string
	Investigate investigate.Options
	// OutputPrefix 为空时使用 DefaultOutputPrefix
	OutputPrefix string
	// Now 为空时使用 time.Now；用于工件命名
	Now func() time.Time
}

// Result 汇总一次运行的产出。
type Result struct {
	Files     int
	Artifacts []contract.ArtifactID
	Reports   []contract.Report
}

// Run 执行完整流水线：Reader → Splitter → Investigator → Renderer(s) → Writer。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Result, error) {
	var res Result
	if err := sanity(comp, set); err != nil {
		return res, fmt.Errorf("sanity: %w", err)
	}
	ctx, span := diag.Tracer().Start(ctx, "pipeline.run")
	defer span.End()

	now := time.Now
	if set.Now != nil {
		now = set.Now
	}
	prefix := set.OutputPrefix
	if prefix == "" {
		prefix = DefaultOutputPrefix
	}
	stamp := strconv.FormatInt(now().UnixMilli(), 10)

	var rtimer *diag.Timer
	if logger != nil {
		rtimer = logger.Start("reader", "iterate")
	}
	// fileErr: 单文件阶段错误，已在 runFile 中记录
	var fileErr error
	skipped := 0
	err := comp.Reader.Iterate(ctx, set.Inputs, func(fid contract.FileID, rc io.ReadCloser) error {
		defer rc.Close()
		if err := ctx.Err(); err != nil {
			return err
		}
		base := prefix + stamp
		if n := res.Files + 1; n > 1 {
			base += "_" + strconv.Itoa(n)
		}
		rep, ids, err := runFile(ctx, comp, set.Investigate, logger, fid, rc, base)
		if errors.Is(err, contract.ErrSkipped) {
			skipped++
			return nil
		}
		if err != nil {
			fileErr = err
			return err
		}
		res.Files++
		res.Reports = append(res.Reports, rep)
		res.Artifacts = append(res.Artifacts, ids...)
		return nil
	})
	if err != nil {
		if fileErr != nil {
			span.SetStatus(codes.Error, "file failed")
			return res, err
		}
		fail(logger, span, "reader", "iterate failed", "", err)
		return res, fmt.Errorf("reader iterate: %w", err)
	}
	if rtimer != nil {
		rtimer.Finish("iterate", int64(res.Files))
	}
	if res.Files == 0 && skipped > 0 {
		err := fmt.Errorf("%w: all %d inputs were skipped", contract.ErrEmptyInput, skipped)
		fail(logger, span, "splitter", "no input passed the filter", "", err)
		return res, err
	}
	diag.IncOp("reader", "finish", "success")
	span.SetAttributes(attribute.Int("files", res.Files), attribute.Int("artifacts", len(res.Artifacts)))
	return res, nil
}

func runFile(ctx context.Context, comp Components, opts investigate.Options, logger *diag.Logger, fid contract.FileID, r io.Reader, base string) (contract.Report, []contract.ArtifactID, error) {
	ctx, span := diag.Tracer().Start(ctx, "pipeline.file", trace.WithAttributes(attribute.String("file_id", string(fid))))
	defer span.End()

	// 切行
	var stimer *diag.Timer
	if logger != nil {
		stimer = logger.StartWith("splitter", "split", string(fid))
	}
	lines, err := comp.Splitter.Split(ctx, fid, r)
	if errors.Is(err, contract.ErrSkipped) {
		if logger != nil {
			logger.Info("splitter", "input skipped", map[string]string{"file": string(fid)})
		}
		diag.IncOp("splitter", "finish", "skipped")
		span.SetAttributes(attribute.Bool("skipped", true))
		return contract.Report{}, nil, err
	}
	if err != nil {
		fail(logger, span, "splitter", "split failed", fid, err)
		return contract.Report{}, nil, fmt.Errorf("splitter split: %w", err)
	}
	if stimer != nil {
		stimer.Finish("split", int64(len(lines)))
	}
	diag.IncOp("splitter", "finish", "success")
	if len(lines) == 0 {
		err := fmt.Errorf("%w: %s", contract.ErrEmptyInput, fid)
		fail(logger, span, "splitter", "input file is empty", fid, err)
		return contract.Report{}, nil, err
	}

	term := diag.GetTerminal()
	term.FileStart(string(fid), len(lines))
	fileStart := time.Now()
	ok, groups := false, 0
	defer func() { term.FileFinish(ok, time.Since(fileStart), groups) }()

	if term != nil {
		user := opts.Progress
		opts.Progress = func(done, skipped int) {
			term.FileProgress(done, len(lines), skipped)
			if user != nil {
				user(done, skipped)
			}
		}
	}

	// 调查
	invStart := time.Now()
	rep, err := investigate.Run(ctx, fid, lines, opts, logger)
	diag.ObserveDuration("investigator", "run", time.Since(invStart).Milliseconds())
	if err != nil {
		fail(logger, span, "investigator", "investigation failed", fid, err)
		return contract.Report{}, nil, fmt.Errorf("investigate: %w", err)
	}
	diag.IncOp("investigator", "finish", "success")
	groups = len(rep.Groups)
	span.SetAttributes(
		attribute.Int("lines", len(lines)),
		attribute.Int("groups", groups),
		attribute.Int("unmatched", len(rep.Unmatched)),
		attribute.Int("skipped", len(rep.Skipped)),
	)

	// 渲染 + 写出：每个渲染器一个工件
	ids := make([]contract.ArtifactID, 0, len(comp.Renderers))
	for _, rd := range comp.Renderers {
		id := contract.ArtifactID(base + rd.Ext())
		var wtimer *diag.Timer
		if logger != nil {
			wtimer = logger.StartWithKV("writer", "starting to write results", string(fid), map[string]string{"artifact": string(id)})
		}
		body, err := rd.Render(ctx, fid, rep)
		if err != nil {
			fail(logger, span, "renderer", "render failed", fid, err)
			return contract.Report{}, nil, fmt.Errorf("renderer render: %w", err)
		}
		if err := comp.Writer.Write(ctx, id, body); err != nil {
			fail(logger, span, "writer", "write failed", fid, err)
			return contract.Report{}, nil, fmt.Errorf("writer write: %w", err)
		}
		if wtimer != nil {
			wtimer.Finish("finished writing results", int64(len(rep.Groups)))
		}
		diag.IncOp("writer", "finish", "success")
		ids = append(ids, id)
	}
	ok = true
	return rep, ids, nil
}

// fail 统一记录阶段错误：日志、指标与 span 状态。
func fail(logger *diag.Logger, span trace.Span, comp, msg string, fid contract.FileID, err error) {
	code := diag.Classify(err)
	if logger != nil {
		logger.ErrorWithKV(comp, string(code), msg, nil, string(fid), map[string]string{"err": err.Error()})
	}
	diag.IncOp(comp, "error", "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

func sanity(c Components, s Settings) error {
	if c.Reader == nil || c.Splitter == nil || c.Writer == nil {
		return errors.New("pipeline: missing components")
	}
	if len(c.Renderers) == 0 {
		return errors.New("pipeline: no renderers")
	}
	exts := map[string]bool{}
	for _, r := range c.Renderers {
		if r == nil {
			return errors.New("pipeline: nil renderer")
		}
		ext := strings.ToLower(r.Ext())
		if exts[ext] {
			return fmt.Errorf("pipeline: renderers share extension %q", ext)
		}
		exts[ext] = true
	}
	if len(s.Inputs) == 0 {
		return errors.New("pipeline: empty inputs")
	}
	return nil
}
