package filesystem

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"pinvestigator/pkg/contract"
)

// DefaultOutputDir 未配置输出目录时写入当前工作目录。
const DefaultOutputDir = "."

// Options 报告落盘选项。
type Options struct {
	// OutputDir: 输出根目录；空值使用 DefaultOutputDir。
	OutputDir string `json:"output_dir"`
	// Atomic: 同目录临时文件 + rename；nil 视为 true。
	Atomic *bool `json:"atomic,omitempty"`
	// Flat: 仅保留文件名；nil 视为 true。
	Flat *bool `json:"flat,omitempty"`
	// NoClobber: 目标已存在时拒绝写入。
	NoClobber bool        `json:"no_clobber,omitempty"`
	PermFile  os.FileMode `json:"perm_file,omitempty"`
	PermDir   os.FileMode `json:"perm_dir,omitempty"`
	BufSize   int         `json:"buf_size,omitempty"`
}

// FS 将报告写入本地文件系统。
type FS struct {
	root      string
	atomic    bool
	flat      bool
	noClobber bool
	permF     os.FileMode
	permD     os.FileMode
	bufSize   int
}

func New(opts *Options) (*FS, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	root := strings.TrimSpace(o.OutputDir)
	if root == "" {
		root = DefaultOutputDir
	}
	if o.BufSize < 0 {
		return nil, fmt.Errorf("writer fs: buf_size %d: %w", o.BufSize, os.ErrInvalid)
	}
	w := &FS{
		root:      root,
		atomic:    o.Atomic == nil || *o.Atomic,
		flat:      o.Flat == nil || *o.Flat,
		noClobber: o.NoClobber,
		permF:     o.PermFile,
		permD:     o.PermDir,
		bufSize:   o.BufSize,
	}
	if w.permF == 0 {
		w.permF = 0o644
	}
	if w.permD == 0 {
		w.permD = 0o755
	}
	if w.bufSize == 0 {
		w.bufSize = 32 * 1024
	}
	return w, nil
}

var _ contract.Writer = (*FS)(nil)

// Root 返回输出根目录。
func (w *FS) Root() string { return w.root }

// Write 将 r 全部写入 id 对应的目标路径。
func (w *FS) Write(ctx context.Context, id contract.ArtifactID, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest, err := w.mapPath(id)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), w.permD); err != nil {
		return err
	}
	if w.noClobber {
		if _, err := os.Lstat(dest); err == nil {
			return fmt.Errorf("writer fs: %s: %w", dest, fs.ErrExist)
		}
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, r)
	}
	return w.writeDirect(ctx, dest, r)
}

// mapPath 计算目标路径并拒绝越出根目录的 id。
func (w *FS) mapPath(id contract.ArtifactID) (string, error) {
	rel := filepath.Clean(string(id))
	if w.flat {
		rel = filepath.Base(rel)
	}
	switch {
	case rel == "" || rel == "." || rel == "..":
		return "", contract.ErrPathInvalid
	case filepath.IsAbs(rel), filepath.VolumeName(rel) != "":
		return "", contract.ErrPathInvalid
	case strings.HasPrefix(rel, ".."+string(filepath.Separator)):
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeDirect(ctx context.Context, dest string, r io.Reader) error {
	flag := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if w.noClobber {
		flag = os.O_CREATE | os.O_WRONLY | os.O_EXCL
	}
	f, err := os.OpenFile(dest, flag, w.permF)
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(f, w.bufSize)
	if _, err := io.Copy(bw, ctxReader{ctx: ctx, r: r}); err != nil {
		_ = f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func (w *FS) writeAtomic(ctx context.Context, dest string, r io.Reader) (err error) {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(dest)+"-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()
	if err = tmp.Chmod(w.permF); err != nil && !errors.Is(err, errors.ErrUnsupported) {
		return err
	}
	bw := bufio.NewWriterSize(tmp, w.bufSize)
	if _, err = io.Copy(bw, ctxReader{ctx: ctx, r: r}); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	// Windows 上 os.Rename 同样覆盖已存在目标
	if err = os.Rename(tmpPath, dest); err != nil {
		return err
	}
	_ = syncDir(dir)
	return nil
}

// ctxReader 每次 Read 前检查 ctx。
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr ctxReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
