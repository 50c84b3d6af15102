package repository

import (
	"context"
	"errors"

	"qrcard/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CardRecordRepository 卡片数据访问层
type CardRecordRepository struct {
	db *gorm.DB
}

// NewCardRecordRepository 创建卡片Repository
func NewCardRecordRepository(db *gorm.DB) *CardRecordRepository {
	return &CardRecordRepository{db: db}
}

// Save 保存卡片，已存在则覆盖
func (r *CardRecordRepository) Save(ctx context.Context, card *models.CardRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "file_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_url", "qr_code", "metadata", "updated_at"}),
	}).Create(card).Error
}

// GetByFileID 根据文件ID获取卡片
func (r *CardRecordRepository) GetByFileID(ctx context.Context, fileID string) (*models.CardRecord, error) {
	var card models.CardRecord
	err := r.db.WithContext(ctx).Where("file_id = ?", fileID).First(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}
