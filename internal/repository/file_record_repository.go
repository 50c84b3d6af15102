package repository

import (
	"context"
	"errors"

	"qrcard/internal/models"

	"gorm.io/gorm"
)

// OwnerSummary 学生文件汇总
type OwnerSummary struct {
	OwnerName string `json:"owner_name"`
	FileCount int64  `json:"file_count"`
}

// CategoryCount 分类计数
type CategoryCount struct {
	Category models.Category
	Count    int64
}

// FileRecordRepository 文件记录数据访问层
type FileRecordRepository struct {
	db *gorm.DB
}

// NewFileRecordRepository 创建文件记录Repository
func NewFileRecordRepository(db *gorm.DB) *FileRecordRepository {
	return &FileRecordRepository{db: db}
}

// Create 创建记录
func (r *FileRecordRepository) Create(ctx context.Context, file *models.FileRecord) error {
	return r.db.WithContext(ctx).Create(file).Error
}

// GetByID 根据ID获取记录
func (r *FileRecordRepository) GetByID(ctx context.Context, id string) (*models.FileRecord, error) {
	var file models.FileRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Delete 删除记录及其卡片，记录不存在时返回 ErrNotFound
func (r *FileRecordRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("file_id = ?", id).Delete(&models.CardRecord{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.FileRecord{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ListByOwner 获取学生的全部文件，最新的在前
func (r *FileRecordRepository) ListByOwner(ctx context.Context, ownerName string) ([]models.FileRecord, error) {
	var files []models.FileRecord
	err := r.db.WithContext(ctx).
		Where("owner_name = ?", ownerName).
		Order("created_at DESC").
		Find(&files).Error
	return files, err
}

// CountByOwner 按分类统计学生的文件数
func (r *FileRecordRepository) CountByOwner(ctx context.Context, ownerName string) ([]CategoryCount, error) {
	var counts []CategoryCount
	err := r.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Select("category, COUNT(*) AS count").
		Where("owner_name = ?", ownerName).
		Group("category").
		Scan(&counts).Error
	return counts, err
}

// ListOwners 列出所有学生及文件数
func (r *FileRecordRepository) ListOwners(ctx context.Context) ([]OwnerSummary, error) {
	var owners []OwnerSummary
	err := r.db.WithContext(ctx).
		Model(&models.FileRecord{}).
		Select("owner_name, COUNT(*) AS file_count").
		Group("owner_name").
		Order("owner_name ASC").
		Scan(&owners).Error
	return owners, err
}
