package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrcard/internal/metrics"
	"qrcard/internal/models"
	"qrcard/internal/repository"
	"qrcard/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Registry 文件身份登记表，是 ID 到存储路径的唯一来源
type Registry struct {
	files  *repository.FileRecordRepository
	store  storage.Store
	logger logrus.FieldLogger
	newID  func() string
}

// NewRegistry 创建登记表
func NewRegistry(files *repository.FileRecordRepository, store storage.Store, logger logrus.FieldLogger) *Registry {
	return &Registry{
		files:  files,
		store:  store,
		logger: logger,
		newID:  uuid.NewString,
	}
}

// Create 分配新 ID 并保存记录，不检查 ID 冲突，依赖 uuid v4 的随机性
func (r *Registry) Create(ctx context.Context, record *models.FileRecord) (string, error) {
	record.ID = r.newID()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	if err := r.files.Create(ctx, record); err != nil {
		return "", fmt.Errorf("保存文件记录失败: %w", err)
	}
	return record.ID, nil
}

// Lookup 只读查询
func (r *Registry) Lookup(ctx context.Context, id string) (*models.FileRecord, error) {
	record, err := r.files.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询文件记录失败: %w", err)
	}
	return record, nil
}

// Delete 删除记录（级联删除卡片）并删除物理文件。
// 物理文件已不存在时只记警告，删除仍视为成功。
func (r *Registry) Delete(ctx context.Context, auth AuthContext, id string) error {
	if err := auth.require(); err != nil {
		return err
	}

	record, err := r.Lookup(ctx, id)
	if err != nil {
		metrics.DeletesTotal.WithLabelValues("not_found").Inc()
		return err
	}

	if err := r.files.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.DeletesTotal.WithLabelValues("not_found").Inc()
			return ErrNotFound
		}
		metrics.DeletesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("删除文件记录失败: %w", err)
	}

	entry := r.logger.WithFields(logrus.Fields{
		"file_id": id,
		"path":    record.RelativePath,
	})
	if err := r.store.Remove(ctx, record.RelativePath); err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			entry.Warn("删除文件时物理文件已不存在")
		} else {
			entry.WithError(err).Warn("删除物理文件失败")
		}
	}

	metrics.DeletesTotal.WithLabelValues("ok").Inc()
	entry.WithField("by", auth.Username).Info("文件已删除")
	return nil
}

// ListByOwner 按分类统计学生的文件数，所有分类都会出现在结果中
func (r *Registry) ListByOwner(ctx context.Context, auth AuthContext, ownerName string) (map[models.Category]int64, error) {
	if err := auth.require(); err != nil {
		return nil, err
	}

	counts, err := r.files.CountByOwner(ctx, ownerName)
	if err != nil {
		return nil, fmt.Errorf("统计文件失败: %w", err)
	}

	result := make(map[models.Category]int64, len(models.AllCategories()))
	for _, c := range models.AllCategories() {
		result[c] = 0
	}
	for _, c := range counts {
		result[c.Category] = c.Count
	}
	return result, nil
}

// ListFilesByOwner 按分类分组返回学生的文件，组内最新的在前
func (r *Registry) ListFilesByOwner(ctx context.Context, auth AuthContext, ownerName string) (map[models.Category][]models.FileRecord, error) {
	if err := auth.require(); err != nil {
		return nil, err
	}

	files, err := r.files.ListByOwner(ctx, ownerName)
	if err != nil {
		return nil, fmt.Errorf("查询文件失败: %w", err)
	}

	grouped := make(map[models.Category][]models.FileRecord, len(models.AllCategories()))
	for _, c := range models.AllCategories() {
		grouped[c] = []models.FileRecord{}
	}
	for _, f := range files {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	return grouped, nil
}

// ListOwners 列出所有学生
func (r *Registry) ListOwners(ctx context.Context, auth AuthContext) ([]repository.OwnerSummary, error) {
	if err := auth.require(); err != nil {
		return nil, err
	}
	owners, err := r.files.ListOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询学生列表失败: %w", err)
	}
	return owners, nil
}
