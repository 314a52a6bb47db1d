package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	Inputs []string `json:"inputs"`
	// Order: 报告遍历顺序 insertion|sorted。
	Order string `json:"order"`
	// Dedup: 同一掩码键下的去重口径 body|line。
	Dedup string `json:"dedup"`
	// Schedule: 标准 5 段 cron 表达式；非空时按计划重复执行。
	Schedule string `json:"schedule"`
	// OutputPrefix: 工件文件名前缀，默认 "output_"。
	OutputPrefix string  `json:"output_prefix"`
	Logging      Logging `json:"logging"`
	Tracing      Tracing `json:"tracing"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与目录；轮转策略为固定默认。
type Logging struct {
	Level string `json:"level"`
	Dir   string `json:"dir"`
}

// Tracing: OTLP/HTTP 导出端点（空则读取 OTEL_EXPORTER_OTLP_ENDPOINT，仍为空则关闭）。
type Tracing struct {
	Endpoint string `json:"endpoint"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Reader    string   `json:"reader"`
	Splitter  string   `json:"splitter"`
	Renderers []string `json:"renderers"`
	Writer    string   `json:"writer"`
}

// Options: 各组件的原样 JSON Options；renderer 按名称分键。
type Options struct {
	Reader   json.RawMessage            `json:"reader"`
	Splitter json.RawMessage            `json:"splitter"`
	Renderer map[string]json.RawMessage `json:"renderer"`
	Writer   json.RawMessage            `json:"writer"`
}
