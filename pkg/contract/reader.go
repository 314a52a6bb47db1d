package contract

import (
	"context"
	"io"
)

// Reader: 输入源抽象（文件/目录/STDIN/数据库）。
// 约束：
// 1) 按输入源维度回调，一个源对应一次独立调查；
// 2) FileID 稳定且去平台差异化；
// 3) 不做业务解析，仅提供字节流（每行一条记录）；
// 4) 不在内部起并发。
type Reader interface {
	Iterate(ctx context.Context, roots []string, yield func(fileID FileID, r io.ReadCloser) error) error
}
