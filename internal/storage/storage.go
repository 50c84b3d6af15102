// Package storage 管理上传文件的物理存储区。
//
// 路径一律使用以 "/" 分隔的相对路径，形如 "学生名/分类/文件名"。
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var (
	// ErrExists 目标位置已有文件，Place 不会覆盖
	ErrExists = errors.New("storage: file already exists")
	// ErrNotExist 文件不存在
	ErrNotExist = errors.New("storage: file does not exist")
	// ErrInvalidPath 路径越出存储根目录
	ErrInvalidPath = errors.New("storage: invalid path")
)

// Store 物理存储接口
type Store interface {
	// List 列出目录下的文件名，目录不存在时返回空列表
	List(ctx context.Context, dir string) ([]string, error)
	// Place 把本地临时文件移动到 relPath，目标已存在时返回 ErrExists
	Place(ctx context.Context, srcPath, relPath string) error
	// Remove 删除文件，不存在时返回 ErrNotExist
	Remove(ctx context.Context, relPath string) error
	// Exists 文件是否存在
	Exists(ctx context.Context, relPath string) (bool, error)
	// Open 打开文件读取，返回内容和字节数
	Open(ctx context.Context, relPath string) (io.ReadCloser, int64, error)
}

// Join 拼接相对路径
func Join(elem ...string) string {
	return path.Join(elem...)
}

// cleanRel 校验并规范化相对路径
func cleanRel(rel string) (string, error) {
	if rel == "" || strings.Contains(rel, "\\") || strings.HasPrefix(rel, "/") {
		return "", ErrInvalidPath
	}
	cleaned := path.Clean(rel)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}
