package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	logPrefix      = "pinvestigator-"
	currentLogName = logPrefix + "current.txt"
	defaultBackups = 20
)

// RotatingFile 将日志行追加到 dir/pinvestigator-current.txt。
// 当 size+len(line) 超过 maxBytes 时，当前文件改名为 pinvestigator-<UTC 时间>.txt 并新建；
// 历史文件超过 backups 个时删除最旧的。
type RotatingFile struct {
	dir      string
	maxBytes int64
	backups  int
	mu       sync.Mutex
	f        *os.File
	curSize  int64
}

func NewRotatingFile(dir string, maxBytes int64) *RotatingFile {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &RotatingFile{dir: dir, maxBytes: maxBytes, backups: defaultBackups}
}

// WriteLine 写入一行（自动追加换行）。
func (w *RotatingFile) WriteLine(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.ensureOpen(); err != nil {
		return err
	}
	line := make([]byte, 0, len(b)+1)
	line = append(line, b...)
	line = append(line, '\n')
	if w.curSize > 0 && w.curSize+int64(len(line)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return err
		}
	}
	n, err := w.f.Write(line)
	w.curSize += int64(n)
	return err
}

func (w *RotatingFile) ensureOpen() error {
	if w.f != nil {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(filepath.Join(w.dir, currentLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	w.curSize = 0
	if st, err := f.Stat(); err == nil {
		w.curSize = st.Size()
	}
	return nil
}

func (w *RotatingFile) rotate() error {
	if w.f == nil {
		return w.ensureOpen()
	}
	cur := w.f.Name()
	_ = w.f.Close()
	w.f = nil
	// 纳秒精度，避免同秒覆盖
	ts := time.Now().UTC().Format("20060102-150405.000000000")
	if err := os.Rename(cur, filepath.Join(w.dir, logPrefix+ts+".txt")); err != nil {
		return fmt.Errorf("rename rotated file: %w", err)
	}
	w.prune()
	return w.ensureOpen()
}

// prune 删除超出保留数量的历史文件（按名称即时间排序）。
func (w *RotatingFile) prune() {
	if w.backups <= 0 {
		return
	}
	ents, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	var old []string
	for _, e := range ents {
		n := e.Name()
		if e.IsDir() || n == currentLogName || !strings.HasPrefix(n, logPrefix) || !strings.HasSuffix(n, ".txt") {
			continue
		}
		old = append(old, n)
	}
	if len(old) <= w.backups {
		return
	}
	sort.Strings(old)
	for _, n := range old[:len(old)-w.backups] {
		_ = os.Remove(filepath.Join(w.dir, n))
	}
}

// Close 关闭当前打开的文件句柄
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
