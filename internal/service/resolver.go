package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"qrcard/internal/metrics"
	"qrcard/internal/models"
	"qrcard/internal/repository"
	"qrcard/internal/storage"

	"github.com/sirupsen/logrus"
)

// RecordResolver 按 ID 查找记录，未找到返回 ErrNotFound
type RecordResolver interface {
	Lookup(ctx context.Context, id string) (*models.FileRecord, error)
}

// LegacyResolver 只读访问旧版 data.json，不回写、不迁移
type LegacyResolver struct {
	repo *repository.LegacyRepository
}

// NewLegacyResolver 创建旧版解析器
func NewLegacyResolver(repo *repository.LegacyRepository) *LegacyResolver {
	return &LegacyResolver{repo: repo}
}

// Lookup 旧版记录没有分类，显示名回退为原始文件名
func (l *LegacyResolver) Lookup(ctx context.Context, id string) (*models.FileRecord, error) {
	entry, err := l.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	record := &models.FileRecord{
		ID:           entry.ID,
		OriginalName: entry.OriginalName,
		DisplayName:  entry.OriginalName,
		Category:     models.CategoryNone,
		MimeType:     entry.MimeType,
		Size:         entry.Size,
		RelativePath: entry.Filename,
		Legacy:       true,
	}
	if t, err := time.Parse(time.RFC3339Nano, entry.UploadTime); err == nil {
		record.CreatedAt = t
	}
	return record, nil
}

// ResolverChain 按优先级依次查找，直到命中或全部未命中
type ResolverChain struct {
	resolvers []RecordResolver
	sources   []string
}

// NewResolverChain 主库在前，旧版存储在后
func NewResolverChain(primary RecordResolver, fallbacks ...RecordResolver) *ResolverChain {
	c := &ResolverChain{
		resolvers: []RecordResolver{primary},
		sources:   []string{metrics.SourcePrimary},
	}
	for _, f := range fallbacks {
		c.resolvers = append(c.resolvers, f)
		c.sources = append(c.sources, metrics.SourceLegacy)
	}
	return c
}

// Resolve 不重试，全部未命中时返回 ErrNotFound
func (c *ResolverChain) Resolve(ctx context.Context, id string) (*models.FileRecord, error) {
	for i, r := range c.resolvers {
		record, err := r.Lookup(ctx, id)
		if err == nil {
			metrics.LookupsTotal.WithLabelValues(c.sources[i]).Inc()
			return record, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	metrics.LookupsTotal.WithLabelValues(metrics.SourceMiss).Inc()
	return nil, ErrNotFound
}

// FileAccess 供文件下载使用：解析 ID 并打开物理文件
type FileAccess struct {
	chain  *ResolverChain
	store  storage.Store
	logger logrus.FieldLogger
}

// NewFileAccess 创建文件访问服务
func NewFileAccess(chain *ResolverChain, store storage.Store, logger logrus.FieldLogger) *FileAccess {
	return &FileAccess{chain: chain, store: store, logger: logger}
}

// Info 只返回记录
func (a *FileAccess) Info(ctx context.Context, id string) (*models.FileRecord, error) {
	return a.chain.Resolve(ctx, id)
}

// Open 物理文件缺失时返回 ErrFileMissing
func (a *FileAccess) Open(ctx context.Context, id string) (*models.FileRecord, io.ReadCloser, int64, error) {
	record, err := a.chain.Resolve(ctx, id)
	if err != nil {
		return nil, nil, 0, err
	}

	body, size, err := a.store.Open(ctx, record.RelativePath)
	if errors.Is(err, storage.ErrNotExist) || errors.Is(err, storage.ErrInvalidPath) {
		metrics.FileMissingTotal.Inc()
		a.logger.WithFields(logrus.Fields{
			"file_id": id,
			"path":    record.RelativePath,
			"legacy":  record.Legacy,
		}).Warn("记录存在但文件已不存在")
		return record, nil, 0, ErrFileMissing
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("打开文件失败: %w", err)
	}
	return record, body, size, nil
}
