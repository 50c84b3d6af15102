package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// LocalStore 本地磁盘存储
type LocalStore struct {
	root       string
	removeTemp func(string) error
}

// NewLocalStore 创建本地存储
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &LocalStore{root: root, removeTemp: os.Remove}, nil
}

// Root 存储根目录
func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) abs(rel string) (string, error) {
	cleaned, err := cleanRel(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// List 列出目录下的文件名
func (s *LocalStore) List(ctx context.Context, dir string) ([]string, error) {
	abs, err := s.abs(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Place 移动临时文件到目标位置。
// 先尝试硬链接（目标存在时原子失败），跨设备时退化为 O_EXCL 复制。
// 文件放置成功后即视为成功，临时文件删不掉时留给调用方的 Discard 清理。
func (s *LocalStore) Place(ctx context.Context, srcPath, relPath string) error {
	dst, err := s.abs(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	err = os.Link(srcPath, dst)
	if errors.Is(err, fs.ErrExist) {
		return ErrExists
	}
	if err != nil {
		if err := copyExclusive(srcPath, dst); err != nil {
			return err
		}
	}

	_ = s.removeTemp(srcPath)
	return nil
}

func copyExclusive(srcPath, dst string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("打开临时文件失败: %w", err)
	}
	defer src.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("创建文件失败: %w", err)
	}

	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("写入文件失败: %w", err)
	}
	return out.Close()
}

// Remove 删除文件
func (s *LocalStore) Remove(ctx context.Context, relPath string) error {
	abs, err := s.abs(relPath)
	if err != nil {
		return err
	}
	err = os.Remove(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotExist
	}
	return err
}

// Exists 文件是否存在
func (s *LocalStore) Exists(ctx context.Context, relPath string) (bool, error) {
	abs, err := s.abs(relPath)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return !info.IsDir(), nil
}

// Open 打开文件
func (s *LocalStore) Open(ctx context.Context, relPath string) (io.ReadCloser, int64, error) {
	abs, err := s.abs(relPath)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, 0, ErrNotExist
	}
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, ErrNotExist
	}
	return f, info.Size(), nil
}
