package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"qrcard/internal/metrics"
	"qrcard/internal/models"
	"qrcard/internal/storage"
	"qrcard/internal/utils"

	"github.com/sirupsen/logrus"
)

// maxPlaceAttempts 放置文件遇到同名文件时最多重新分配的次数
const maxPlaceAttempts = 5

// Locker 按键互斥，进程内或跨进程实现均可
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// UploadInput 上传入口交给核心的数据，文件内容已写入 TempPath
type UploadInput struct {
	TempPath     string `validate:"required"`
	OwnerName    string `validate:"required,max=100,ownername"`
	Category     string `validate:"required,category"`
	OriginalName string `validate:"required,max=255"`
	MimeType     string `validate:"required"`
	Size         int64  `validate:"gte=0"`
}

// UploadResult 上传结果
type UploadResult struct {
	ID           string
	DisplayName  string
	RelativePath string
	Record       *models.FileRecord
}

// UploadLimits 上传限制
type UploadLimits struct {
	MaxFileSize      int64
	AllowedMimeTypes []string
}

// UploadService 上传服务：分配文件名、移动文件、保存记录
type UploadService struct {
	registry *Registry
	store    storage.Store
	locker   Locker
	limits   UploadLimits
	allowed  map[string]struct{}
	logger   logrus.FieldLogger
}

// NewUploadService 创建上传服务
func NewUploadService(registry *Registry, store storage.Store, locker Locker, limits UploadLimits, logger logrus.FieldLogger) *UploadService {
	allowed := make(map[string]struct{}, len(limits.AllowedMimeTypes))
	for _, m := range limits.AllowedMimeTypes {
		allowed[strings.ToLower(m)] = struct{}{}
	}
	return &UploadService{
		registry: registry,
		store:    store,
		locker:   locker,
		limits:   limits,
		allowed:  allowed,
		logger:   logger,
	}
}

// Validate 校验上传参数，不做任何存储变更
func (s *UploadService) Validate(in *UploadInput) error {
	in.OwnerName = strings.TrimSpace(in.OwnerName)
	if err := utils.ValidateStruct(in); err != nil {
		return validationError("", err.Error())
	}
	if _, ok := s.allowed[strings.ToLower(in.MimeType)]; !ok {
		return validationError("mimetype", "不支持的文件格式")
	}
	if s.limits.MaxFileSize > 0 && in.Size > s.limits.MaxFileSize {
		return validationError("size", SizeLimitMessage(s.limits.MaxFileSize))
	}
	return nil
}

// Upload 顺序为：分配文件名 → 移动文件 → 保存记录。
// 同一学生同一分类的上传串行执行，放置文件时不覆盖已有文件。
func (s *UploadService) Upload(ctx context.Context, auth AuthContext, in UploadInput) (*UploadResult, error) {
	if err := auth.require(); err != nil {
		return nil, err
	}
	if err := s.Validate(&in); err != nil {
		metrics.UploadsTotal.WithLabelValues("", "invalid").Inc()
		return nil, err
	}

	category, _ := models.ParseCategory(in.Category)
	dir := storage.Join(in.OwnerName, category.Label())

	unlock, err := s.locker.Lock(ctx, in.OwnerName+"|"+string(category))
	if err != nil {
		return nil, fmt.Errorf("获取文件名分配锁失败: %w", err)
	}
	defer unlock()

	displayName, relPath, err := s.place(ctx, in, category, dir)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(category), "error").Inc()
		return nil, err
	}

	record := &models.FileRecord{
		OriginalName: in.OriginalName,
		DisplayName:  displayName,
		OwnerName:    in.OwnerName,
		Category:     category,
		MimeType:     in.MimeType,
		Size:         in.Size,
		RelativePath: relPath,
	}
	id, err := s.registry.Create(ctx, record)
	if err != nil {
		// 记录未保存，清理已放置的文件，避免孤儿文件
		if rmErr := s.store.Remove(ctx, relPath); rmErr != nil {
			s.logger.WithError(rmErr).WithField("path", relPath).Warn("回滚已放置的文件失败")
		}
		metrics.UploadsTotal.WithLabelValues(string(category), "error").Inc()
		return nil, err
	}

	metrics.UploadsTotal.WithLabelValues(string(category), "ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"file_id":  id,
		"owner":    in.OwnerName,
		"category": category,
		"path":     relPath,
		"by":       auth.Username,
	}).Info("文件已上传")

	return &UploadResult{
		ID:           id,
		DisplayName:  displayName,
		RelativePath: relPath,
		Record:       record,
	}, nil
}

// place 读取目录、分配文件名并独占放置；其他进程抢先占用同名时重新分配
func (s *UploadService) place(ctx context.Context, in UploadInput, category models.Category, dir string) (string, string, error) {
	for attempt := 0; attempt < maxPlaceAttempts; attempt++ {
		names, err := s.store.List(ctx, dir)
		if err != nil {
			return "", "", fmt.Errorf("读取目录失败: %w", err)
		}

		displayName := AllocateFilename(in.OwnerName, category, in.OriginalName, NameSet(names))
		relPath := storage.Join(dir, displayName)

		err = s.store.Place(ctx, in.TempPath, relPath)
		if err == nil {
			return displayName, relPath, nil
		}
		if !errors.Is(err, storage.ErrExists) {
			return "", "", fmt.Errorf("保存文件失败: %w", err)
		}
		metrics.AllocationRetries.Inc()
	}
	return "", "", fmt.Errorf("保存文件失败: 重试%d次后文件名仍冲突", maxPlaceAttempts)
}

// Discard 删除未被使用的临时文件
func (s *UploadService) Discard(tempPath string) {
	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WithError(err).WithField("path", tempPath).Warn("删除临时文件失败")
	}
}
