package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"pinvestigator/pkg/contract"
)

// DefaultQuery 读取 lines 表的 line 列，按插入顺序。
const DefaultQuery = "SELECT line FROM lines ORDER BY rowid"

// Options 为 SQLite Reader 的可选配置。
type Options struct {
	// Query 须返回单列文本；每行结果即一行输入，NULL 视为空行。
	Query string `json:"query"`
}

// SQLite 将每个数据库文件的查询结果作为一个输入。
type SQLite struct {
	query string
}

// New 创建 SQLite Reader。
func New(opts *Options) (*SQLite, error) {
	q := DefaultQuery
	if opts != nil && strings.TrimSpace(opts.Query) != "" {
		q = strings.TrimSpace(opts.Query)
	}
	if !strings.HasPrefix(strings.ToUpper(q), "SELECT") && !strings.HasPrefix(strings.ToUpper(q), "WITH") {
		return nil, fmt.Errorf("sqlite reader: query must be a SELECT: %q", q)
	}
	return &SQLite{query: q}, nil
}

// Iterate 依次打开 roots 中的数据库文件（只读用途，不存在即报错）。
func (s *SQLite) Iterate(ctx context.Context, roots []string, yield func(fileID contract.FileID, rc io.ReadCloser) error) error {
	if len(roots) == 0 {
		return errors.New("sqlite reader: no database path")
	}
	for _, root := range roots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if root == "-" {
			return errors.New("sqlite reader: stdin is not supported")
		}
		// 避免驱动在路径不存在时创建空库
		info, err := os.Stat(root)
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("sqlite reader: %s is not a regular file", root)
		}
		lines, err := s.load(ctx, root)
		if err != nil {
			return err
		}
		body := strings.Join(lines, "\n")
		if err := yield(contract.NormalizeFileID(root), io.NopCloser(strings.NewReader(body))); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) load(ctx context.Context, path string) ([]string, error) {
	db, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	defer db.Close()
	var rows []sql.NullString
	if err := db.SelectContext(ctx, &rows, s.query); err != nil {
		return nil, fmt.Errorf("query sqlite %s: %w", path, err)
	}
	out := make([]string, len(rows))
	for i, r := range rows {
		// 每行记录对应一个输入行，内嵌换行会使行号错位
		if strings.ContainsAny(r.String, "\r\n") {
			return nil, fmt.Errorf("%w: sqlite %s row %d contains a line break", contract.ErrInvalidInput, path, i+1)
		}
		out[i] = r.String
	}
	return out, nil
}
