package main

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"pinvestigator/internal/diag"
)

// runSchedule 立即执行一次，然后按 cron 表达式重复执行 job，直到 ctx 结束。
// 单次失败只记录，不中断计划；上一次未结束时跳过本次触发。
func runSchedule(ctx context.Context, spec string, job func(context.Context) error, logger *diag.Logger) error {
	cl := cronLogger{l: logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	id, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		_ = job(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	if logger != nil {
		logger.Info("schedule", "started", map[string]string{"spec": spec})
	}
	_ = job(ctx)
	c.Start()
	if logger != nil {
		logger.Info("schedule", "next run", map[string]string{"at": c.Entry(id).Next.UTC().Format(time.RFC3339)})
	}
	<-ctx.Done()
	// 等待进行中的一次结束
	<-c.Stop().Done()
	if logger != nil {
		logger.Info("schedule", "stopped", nil)
	}
	return nil
}

// cronLogger 将 cron 内部日志转入 diag.Logger。
type cronLogger struct{ l *diag.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	if c.l == nil {
		return
	}
	c.l.DebugStart("schedule", msg, "", kvMap(keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	if c.l == nil {
		return
	}
	kv := kvMap(keysAndValues)
	kv["error"] = err.Error()
	c.l.ErrorWithKV("schedule", string(diag.Classify(err)), msg, nil, "", kv)
}

func kvMap(kvs []any) map[string]string {
	m := make(map[string]string, len(kvs)/2+1)
	for i := 0; i+1 < len(kvs); i += 2 {
		m[fmt.Sprint(kvs[i])] = fmt.Sprint(kvs[i+1])
	}
	return m
}
