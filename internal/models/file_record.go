package models

import (
	"time"
)

// FileRecord 上传文件记录，ID 创建后不可变
type FileRecord struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	DisplayName  string    `gorm:"size:255;not null" json:"display_name"`
	OwnerName    string    `gorm:"size:100;not null;index:idx_owner_category" json:"owner_name"`
	Category     Category  `gorm:"size:20;index:idx_owner_category" json:"category"`
	MimeType     string    `gorm:"size:100" json:"mime_type"`
	Size         int64     `gorm:"not null;default:0" json:"size"`
	RelativePath string    `gorm:"size:500;not null;uniqueIndex" json:"relative_path"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	// Legacy 来自旧版 data.json，不入库
	Legacy bool `gorm:"-" json:"legacy,omitempty"`

	// 关联
	Card *CardRecord `gorm:"foreignKey:FileID;references:ID;constraint:OnDelete:CASCADE" json:"card,omitempty"`
}

// TableName 指定表名
func (FileRecord) TableName() string {
	return "file_records"
}

// CategoryLabel 分类显示名称
func (f *FileRecord) CategoryLabel() string {
	return f.Category.Label()
}
