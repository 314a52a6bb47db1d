package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix 为环境变量覆盖的统一前缀。
const EnvPrefix = "PINV_"

// DefaultInput 为未提供输入时使用的路径（相对工作目录）。
const DefaultInput = "../input/input.txt"

// Defaults 返回带有默认值的 Config 雏形。
func Defaults() Config {
	return Config{
		Order:   "insertion",
		Dedup:   "body",
		Logging: Logging{Level: "info", Dir: "logs"},
		Components: Components{
			Reader:    "fs",
			Splitter:  "lines",
			Renderers: []string{"text"},
			Writer:    "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	switch {
	case len(raw) > 0:
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		raw = b
	default:
		return cfg, errors.New("no config source provided")
	}
	return decodeStrict(raw)
}

// LoadYAML 解析 YAML 配置：先转为 JSON，再走同一严格解码。
func LoadYAML(path string, raw []byte) (Config, error) {
	if len(raw) == 0 {
		if path == "" {
			return Config{}, errors.New("no config source provided")
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		raw = b
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return Config{}, fmt.Errorf("yaml: %w", err)
	}
	if tree == nil {
		return Config{}, nil
	}
	js, err := json.Marshal(tree)
	if err != nil {
		return Config{}, fmt.Errorf("yaml to json: %w", err)
	}
	return decodeStrict(js)
}

// LoadFile 按扩展名选择解析器（.yaml/.yml 为 YAML，其余为 JSON）。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path, nil)
	default:
		return LoadJSON(path, nil)
	}
}

func decodeStrict(raw []byte) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge 按优先级合并（后者覆盖前者）。
// 标量/字符串/列表/原样 JSON 为整体替换；空值不覆盖。
func Merge(base, over Config) Config {
	out := base
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	setStr(&out.Order, over.Order)
	setStr(&out.Dedup, over.Dedup)
	setStr(&out.Schedule, over.Schedule)
	setStr(&out.OutputPrefix, over.OutputPrefix)
	setStr(&out.Logging.Level, over.Logging.Level)
	setStr(&out.Logging.Dir, over.Logging.Dir)
	setStr(&out.Tracing.Endpoint, over.Tracing.Endpoint)

	setStr(&out.Components.Reader, over.Components.Reader)
	setStr(&out.Components.Splitter, over.Components.Splitter)
	setStr(&out.Components.Writer, over.Components.Writer)
	if len(over.Components.Renderers) > 0 {
		out.Components.Renderers = cloneStrings(over.Components.Renderers)
	}

	if len(over.Options.Reader) > 0 {
		out.Options.Reader = cloneRaw(over.Options.Reader)
	}
	if len(over.Options.Splitter) > 0 {
		out.Options.Splitter = cloneRaw(over.Options.Splitter)
	}
	if len(over.Options.Writer) > 0 {
		out.Options.Writer = cloneRaw(over.Options.Writer)
	}
	// renderer 选项按名称替换对应键
	if len(over.Options.Renderer) > 0 {
		m := make(map[string]json.RawMessage, len(out.Options.Renderer)+len(over.Options.Renderer))
		for k, v := range out.Options.Renderer {
			m[k] = v
		}
		for k, v := range over.Options.Renderer {
			m[k] = cloneRaw(v)
		}
		out.Options.Renderer = m
	}
	return out
}

func setStr(dst *string, v string) {
	if t := strings.TrimSpace(v); t != "" {
		*dst = t
	}
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 前缀 PINV_；集合外的键忽略。
// 支持：INPUTS, ORDER, DEDUP, SCHEDULE, OUTPUT_PREFIX, LOGGING_LEVEL, LOGGING_DIR, TRACING_ENDPOINT,
// COMPONENTS_{READER,SPLITTER,WRITER,RENDERERS},
// OPTIONS__{READER,SPLITTER,WRITER}_JSON 与 OPTIONS__RENDERER__<name>_JSON。
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := strings.TrimPrefix(kv[:eq], EnvPrefix)
		val := kv[eq+1:]
		switch key {
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "ORDER":
			over.Order = strings.TrimSpace(val)
		case "DEDUP":
			over.Dedup = strings.TrimSpace(val)
		case "SCHEDULE":
			over.Schedule = strings.TrimSpace(val)
		case "OUTPUT_PREFIX":
			over.OutputPrefix = strings.TrimSpace(val)
		case "LOGGING_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LOGGING_DIR":
			over.Logging.Dir = strings.TrimSpace(val)
		case "TRACING_ENDPOINT":
			over.Tracing.Endpoint = strings.TrimSpace(val)
		case "COMPONENTS_READER":
			over.Components.Reader = strings.TrimSpace(val)
		case "COMPONENTS_SPLITTER":
			over.Components.Splitter = strings.TrimSpace(val)
		case "COMPONENTS_WRITER":
			over.Components.Writer = strings.TrimSpace(val)
		case "COMPONENTS_RENDERERS":
			over.Components.Renderers = splitComma(val)
		case "OPTIONS__READER_JSON":
			over.Options.Reader = rawOrNil(val)
		case "OPTIONS__SPLITTER_JSON":
			over.Options.Splitter = rawOrNil(val)
		case "OPTIONS__WRITER_JSON":
			over.Options.Writer = rawOrNil(val)
		default:
			// OPTIONS__RENDERER__<name>_JSON
			if !strings.HasPrefix(key, "OPTIONS__RENDERER__") || !strings.HasSuffix(key, "_JSON") {
				continue
			}
			name := strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(key, "OPTIONS__RENDERER__"), "_JSON"))
			raw := rawOrNil(val)
			if name == "" || raw == nil {
				continue
			}
			if !json.Valid(raw) {
				return Config{}, fmt.Errorf("env %s: invalid json", kv[:eq])
			}
			if over.Options.Renderer == nil {
				over.Options.Renderer = map[string]json.RawMessage{}
			}
			over.Options.Renderer[name] = raw
		}
	}
	for name, raw := range map[string]json.RawMessage{"READER": over.Options.Reader, "SPLITTER": over.Options.Splitter, "WRITER": over.Options.Writer} {
		if raw != nil && !json.Valid(raw) {
			return Config{}, fmt.Errorf("env %sOPTIONS__%s_JSON: invalid json", EnvPrefix, name)
		}
	}
	return over, nil
}

// rawOrNil: 空值视为未设置，避免清空已有配置。
func rawOrNil(s string) json.RawMessage {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return json.RawMessage(s)
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
