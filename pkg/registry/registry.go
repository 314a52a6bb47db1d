package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"pinvestigator/pkg/contract"
	rfs "pinvestigator/plugins/reader/filesystem"
	rsql "pinvestigator/plugins/reader/sqlite"
	rhtml "pinvestigator/plugins/renderer/html"
	rjsonl "pinvestigator/plugins/renderer/jsonl"
	rmd "pinvestigator/plugins/renderer/markdown"
	rtext "pinvestigator/plugins/renderer/text"
	slines "pinvestigator/plugins/splitter/lines"
	wfs "pinvestigator/plugins/writer/filesystem"
)

// strictUnmarshal: DisallowUnknownFields 严格解码；空输入保持零值。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after options object")
	}
	return nil
}

// NewReader 工厂签名：接收原样 JSON Options。
type NewReader func(raw json.RawMessage) (contract.Reader, error)

// NewSplitter 工厂签名。
type NewSplitter func(raw json.RawMessage) (contract.Splitter, error)

// NewRenderer 工厂签名。
type NewRenderer func(raw json.RawMessage) (contract.Renderer, error)

// NewWriter 工厂签名。
type NewWriter func(raw json.RawMessage) (contract.Writer, error)

// Reader 工厂注册表（显式、零反射）。
var Reader = map[string]NewReader{
	// fs: 文件/目录/STDIN
	"fs": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.New(&opts), nil
	},
	// sqlite: 查询结果逐行作为输入
	"sqlite": func(raw json.RawMessage) (contract.Reader, error) {
		var opts rsql.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rsql.New(&opts)
	},
}

// Splitter 工厂注册表。
var Splitter = map[string]NewSplitter{
	"lines": func(raw json.RawMessage) (contract.Splitter, error) {
		var opts slines.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return slines.New(&opts), nil
	},
}

// Renderer 工厂注册表；一次运行可选多个。
var Renderer = map[string]NewRenderer{
	"text": func(raw json.RawMessage) (contract.Renderer, error) {
		var opts rtext.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rtext.New(&opts)
	},
	"markdown": func(raw json.RawMessage) (contract.Renderer, error) {
		var opts rmd.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rmd.New(&opts), nil
	},
	"html": func(raw json.RawMessage) (contract.Renderer, error) {
		var opts rhtml.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rhtml.New(&opts), nil
	},
	"jsonl": func(raw json.RawMessage) (contract.Renderer, error) {
		var opts rjsonl.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rjsonl.New(&opts), nil
	},
}

// Writer 工厂注册表。
var Writer = map[string]NewWriter{
	// fs: 文件系统 Writer（覆盖写/原子替换可配置）
	"fs": func(raw json.RawMessage) (contract.Writer, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.New(&opts)
	},
}

// Names 返回注册表中的名称（已排序），用于错误提示。
func Names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
