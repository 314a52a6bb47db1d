package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"pinvestigator/internal/investigate"
	"pinvestigator/internal/pipeline"
	"pinvestigator/pkg/registry"
)

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if len(cfg.Inputs) == 0 {
		return errors.New("config: inputs empty")
	}
	// 输入路径不得为空字符串；"-" 不能与其他根混用
	dash := false
	for _, r := range cfg.Inputs {
		if strings.TrimSpace(r) == "" {
			return errors.New("config: input path cannot be empty")
		}
		if strings.TrimSpace(r) == "-" {
			dash = true
		}
	}
	if dash && len(cfg.Inputs) > 1 {
		return errors.New("config: '-' cannot be mixed with other roots")
	}
	if _, err := investigate.ParseOrder(cfg.Order); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := investigate.ParseDedup(cfg.Dedup); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if s := strings.TrimSpace(cfg.Schedule); s != "" {
		if _, err := cron.ParseStandard(s); err != nil {
			return fmt.Errorf("config: schedule %q: %w", s, err)
		}
		if dash {
			return errors.New("config: schedule cannot read from '-'")
		}
	}
	if strings.ContainsAny(cfg.OutputPrefix, `/\`) {
		return fmt.Errorf("config: output_prefix %q must not contain path separators", cfg.OutputPrefix)
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q not one of debug|info|warn|error", cfg.Logging.Level)
	}

	d := Defaults()
	if name := effName(cfg.Components.Reader, d.Components.Reader); registry.Reader[name] == nil {
		return fmt.Errorf("config: reader %q not registered (have %v)", name, registry.Names(registry.Reader))
	}
	if name := effName(cfg.Components.Splitter, d.Components.Splitter); registry.Splitter[name] == nil {
		return fmt.Errorf("config: splitter %q not registered (have %v)", name, registry.Names(registry.Splitter))
	}
	seen := map[string]bool{}
	for _, name := range renderers(cfg) {
		if registry.Renderer[name] == nil {
			return fmt.Errorf("config: renderer %q not registered (have %v)", name, registry.Names(registry.Renderer))
		}
		if seen[name] {
			return fmt.Errorf("config: renderer %q listed twice", name)
		}
		seen[name] = true
	}
	for name := range cfg.Options.Renderer {
		if !seen[name] {
			return fmt.Errorf("config: options.renderer.%s set but renderer not selected", name)
		}
	}
	if name := effName(cfg.Components.Writer, d.Components.Writer); registry.Writer[name] == nil {
		return fmt.Errorf("config: writer %q not registered (have %v)", name, registry.Names(registry.Writer))
	}
	return nil
}

// Assemble 构造 Components 与 Settings。
// 严格 Options 解析在 registry （工厂）层进行；此处只传 raw JSON。
func Assemble(cfg Config) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d := Defaults()

	r, err := registry.Reader[effName(cfg.Components.Reader, d.Components.Reader)](cfg.Options.Reader)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.reader: %w", err)
	}
	s, err := registry.Splitter[effName(cfg.Components.Splitter, d.Components.Splitter)](cfg.Options.Splitter)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.splitter: %w", err)
	}
	comp := pipeline.Components{Reader: r, Splitter: s}
	for _, name := range renderers(cfg) {
		rd, err := registry.Renderer[name](cfg.Options.Renderer[name])
		if err != nil {
			return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.renderer.%s: %w", name, err)
		}
		comp.Renderers = append(comp.Renderers, rd)
	}
	w, err := registry.Writer[effName(cfg.Components.Writer, d.Components.Writer)](cfg.Options.Writer)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, fmt.Errorf("options.writer: %w", err)
	}
	comp.Writer = w

	// Validate 已检查，忽略错误
	order, _ := investigate.ParseOrder(cfg.Order)
	dedup, _ := investigate.ParseDedup(cfg.Dedup)
	set := pipeline.Settings{
		Inputs:       cloneStrings(cfg.Inputs),
		Investigate:  investigate.Options{Order: order, Dedup: dedup},
		OutputPrefix: cfg.OutputPrefix,
	}
	return comp, set, nil
}

func renderers(cfg Config) []string {
	if len(cfg.Components.Renderers) == 0 {
		return Defaults().Components.Renderers
	}
	return cfg.Components.Renderers
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
