package contract

import (
	"context"
	"io"
)

// Splitter: 将单个输入源的字节流拆分为有序 Line 序列，并分配行号（1..n）。
// 约束：
// 1) 不跨源合并；
// 2) 行号严格递增且稳定；
// 3) 不改变文本语义（仅做 CRLF→LF 的最小必要归一）；
// 4) 无内部并发、幂等。
type Splitter interface {
	Split(ctx context.Context, fileID FileID, r io.Reader) ([]Line, error)
}
