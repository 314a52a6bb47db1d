//go:build !windows

package filesystem

import "os"

// syncDir 刷新父目录元数据，失败可忽略。
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
