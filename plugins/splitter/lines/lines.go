package lines

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"pinvestigator/pkg/contract"
)

// Options 为 lines Splitter 的可选配置。
type Options struct {
	// MaxLineBytes: 单行最大字节数（不含换行）。0 表示不限制。
	MaxLineBytes int `json:"max_line_bytes"`
	// AllowExts: 允许处理的扩展名（大小写不敏感，含点，如 [".txt", ".log"]）。
	// 为空表示不限制；不在列表中的输入返回 contract.ErrSkipped。
	AllowExts []string `json:"allow_exts"`
}

// Splitter 按换行切分输入，行号从 1 开始。
type Splitter struct {
	maxBytes int
	allow    map[string]struct{}
}

// New 创建 lines Splitter。
func New(opts *Options) *Splitter {
	s := &Splitter{}
	if opts == nil {
		return s
	}
	if opts.MaxLineBytes > 0 {
		s.maxBytes = opts.MaxLineBytes
	}
	for _, e := range opts.AllowExts {
		if e == "" {
			continue
		}
		if s.allow == nil {
			s.allow = make(map[string]struct{}, len(opts.AllowExts))
		}
		s.allow[strings.ToLower(e)] = struct{}{}
	}
	return s
}

const bom = "\ufeff"

// Split 读取全部行：CRLF 归一为 LF；末尾换行不产生额外空行；
// 首行的 UTF-8 BOM 被去除。空行保留（由调查阶段跳过）。
func (s *Splitter) Split(ctx context.Context, fileID contract.FileID, r io.Reader) ([]contract.Line, error) {
	if s.allow != nil {
		if _, ok := s.allow[strings.ToLower(path.Ext(string(fileID)))]; !ok {
			return nil, fmt.Errorf("%w: %s", contract.ErrSkipped, fileID)
		}
	}
	br := bufio.NewReader(r)
	var out []contract.Line
	for no := 1; ; no++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		eof := err != nil
		if eof && text == "" {
			break
		}
		text = strings.TrimSuffix(text, "\n")
		text = strings.TrimSuffix(text, "\r")
		if no == 1 {
			text = strings.TrimPrefix(text, bom)
		}
		if s.maxBytes > 0 && len(text) > s.maxBytes {
			return nil, fmt.Errorf("%w: line %d exceeds %d bytes", contract.ErrInvalidInput, no, s.maxBytes)
		}
		out = append(out, contract.Line{No: no, Text: text})
		if eof {
			break
		}
	}
	return out, nil
}
