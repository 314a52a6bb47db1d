package config

import "encoding/json"

// DefaultTemplateConfig 返回一个可直接运行的配置模板：
// 输入为默认路径，输出 text 报告到当前目录；
// 各组件选项列出全部键，值为中性默认。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Inputs:       []string{DefaultInput},
		Order:        d.Order,
		Dedup:        d.Dedup,
		OutputPrefix: "output_",
		Logging:      d.Logging,
		Components: Components{
			Reader:    d.Components.Reader,
			Splitter:  d.Components.Splitter,
			Renderers: []string{"text", "markdown"},
			Writer:    d.Components.Writer,
		},
	}
	cfg.Options.Reader = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"],
  "skip_hidden": true
}`)
	cfg.Options.Splitter = json.RawMessage(`{
  "max_line_bytes": 0,
  "allow_exts": []
}`)
	cfg.Options.Renderer = map[string]json.RawMessage{
		"text":     json.RawMessage(`{"line_ending": "lf"}`),
		"markdown": json.RawMessage(`{"title": "", "include_skipped": true}`),
	}
	cfg.Options.Writer = json.RawMessage(`{
  "output_dir": ".",
  "atomic": true,
  "flat": true,
  "no_clobber": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}
