package diag

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标经全局 MeterProvider 输出；未安装 provider 时为 no-op。
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}

const meterName = "pinvestigator"

type instruments struct {
	ops  metric.Int64Counter
	errs metric.Int64Counter
	dur  metric.Int64Histogram
}

var (
	instOnce sync.Once
	inst     instruments
)

func meters() instruments {
	instOnce.Do(func() {
		m := otel.Meter(meterName)
		// 创建失败时 otel 仍返回可用的 no-op 仪表
		inst.ops, _ = m.Int64Counter("op_total", metric.WithDescription("pipeline operations by result"))
		inst.errs, _ = m.Int64Counter("error_total", metric.WithDescription("errors by classification code"))
		inst.dur, _ = m.Int64Histogram("op_duration_ms", metric.WithUnit("ms"), metric.WithDescription("stage duration"))
	})
	return inst
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	if c := meters().ops; c != nil {
		c.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("comp", comp),
			attribute.String("stage", stage),
			attribute.String("result", result),
		))
	}
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	if c := meters().errs; c != nil {
		c.Add(context.Background(), 1, metric.WithAttributes(
			attribute.String("comp", comp),
			attribute.String("code", code),
		))
	}
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	if h := meters().dur; h != nil {
		h.Record(context.Background(), durMS, metric.WithAttributes(
			attribute.String("comp", comp),
			attribute.String("stage", stage),
		))
	}
}
