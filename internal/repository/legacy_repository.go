package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LegacyEntry 旧版 data.json 中的单条记录
type LegacyEntry struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimetype"`
	Size         int64  `json:"size"`
	UploadTime   string `json:"uploadTime"`
}

// LegacyRepository 旧版扁平 JSON 存储，只读
type LegacyRepository struct {
	path string
}

// NewLegacyRepository 创建旧版存储Repository
func NewLegacyRepository(path string) *LegacyRepository {
	return &LegacyRepository{path: path}
}

// GetByID 每次调用都重新读取文件，文件不存在视为空表
func (r *LegacyRepository) GetByID(ctx context.Context, id string) (*LegacyEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取旧版数据失败: %w", err)
	}

	var entries map[string]LegacyEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("解析旧版数据失败: %w", err)
	}

	entry, ok := entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if entry.ID == "" {
		entry.ID = id
	}
	return &entry, nil
}
