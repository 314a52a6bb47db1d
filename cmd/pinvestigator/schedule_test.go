package main

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"pinvestigator/internal/diag"
)

// TestRunScheduleRepeats 立即执行一次并按计划再次执行，取消后返回。
func TestRunScheduleRepeats(t *testing.T) {
	logger := diag.NewLoggerAt(t.TempDir(), "sched", "debug")
	defer logger.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var n atomic.Int32
	job := func(context.Context) error {
		if n.Add(1) >= 2 {
			cancel()
		}
		return errors.New("run failed")
	}
	if err := runSchedule(ctx, "@every 1s", job, logger); err != nil {
		t.Fatalf("runSchedule: %v", err)
	}
	if n.Load() < 2 {
		t.Fatalf("expect at least 2 runs, got %d", n.Load())
	}
}

func TestRunScheduleInvalidSpec(t *testing.T) {
	called := false
	err := runSchedule(context.Background(), "not a cron", func(context.Context) error { called = true; return nil }, nil)
	if err == nil || called {
		t.Fatalf("expect error before any run, err=%v called=%v", err, called)
	}
}

func TestKVMap(t *testing.T) {
	m := kvMap([]any{"entry", 1, "now", "x", "dangling"})
	if len(m) != 2 || m["entry"] != "1" || m["now"] != "x" {
		t.Fatalf("kvMap = %v", m)
	}
}
