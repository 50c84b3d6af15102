package models

import (
	"time"
)

// CardRecord 文件对应的二维码卡片，随文件记录级联删除
type CardRecord struct {
	FileID    string    `gorm:"primaryKey;size:36" json:"file_id"`
	AccessURL string    `gorm:"size:500;not null" json:"access_url"`
	QRCode    string    `gorm:"type:text;not null" json:"qr_code"` // data:image/png;base64,...
	Metadata  JSONMap   `gorm:"type:text" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (CardRecord) TableName() string {
	return "card_records"
}
