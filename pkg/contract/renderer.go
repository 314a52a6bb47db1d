package contract

import (
	"context"
	"io"
)

// Renderer: 将结构化 Report 渲染为某种输出格式。
// 约束：
//  1. 纯计算，不做 I/O；
//  2. 不重排 Report 中的组与行；
//  3. Ext 返回工件扩展名（含点，如 ".txt"）。
type Renderer interface {
	Render(ctx context.Context, fileID FileID, rep Report) (io.Reader, error)
	Ext() string
}
