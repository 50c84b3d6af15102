package dto

import (
	"qrcard/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// FileInfoResponse 文件信息
type FileInfoResponse struct {
	ID            string `json:"id"`
	OriginalName  string `json:"original_name"`
	DisplayName   string `json:"display_name"`
	OwnerName     string `json:"owner_name,omitempty"`
	Category      string `json:"category,omitempty"`
	CategoryLabel string `json:"category_label,omitempty"`
	MimeType      string `json:"mime_type"`
	Size          int64  `json:"size"`
	RelativePath  string `json:"relative_path"`
	CreatedAt     string `json:"created_at,omitempty"`
	Legacy        bool   `json:"legacy,omitempty"`
}

// NewFileInfoResponse 由记录构建响应
func NewFileInfoResponse(f *models.FileRecord) FileInfoResponse {
	resp := FileInfoResponse{
		ID:            f.ID,
		OriginalName:  f.OriginalName,
		DisplayName:   f.DisplayName,
		OwnerName:     f.OwnerName,
		Category:      string(f.Category),
		CategoryLabel: f.CategoryLabel(),
		MimeType:      f.MimeType,
		Size:          f.Size,
		RelativePath:  f.RelativePath,
		Legacy:        f.Legacy,
	}
	if !f.CreatedAt.IsZero() {
		resp.CreatedAt = f.CreatedAt.Format(timeLayout)
	}
	return resp
}

// UploadResponse 上传响应
type UploadResponse struct {
	FileInfo  FileInfoResponse `json:"fileInfo"`
	QRCode    string           `json:"qrCode,omitempty"`
	AccessURL string           `json:"accessUrl"`
}

// CardResponse 卡片响应
type CardResponse struct {
	FileID    string                 `json:"file_id"`
	AccessURL string                 `json:"access_url"`
	QRCode    string                 `json:"qr_code"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt string                 `json:"created_at"`
}

// NewCardResponse 由卡片记录构建响应
func NewCardResponse(c *models.CardRecord) CardResponse {
	return CardResponse{
		FileID:    c.FileID,
		AccessURL: c.AccessURL,
		QRCode:    c.QRCode,
		Metadata:  c.Metadata,
		CreatedAt: c.UpdatedAt.Format(timeLayout),
	}
}

// CategorySummary 分类计数
type CategorySummary struct {
	Category string `json:"category"`
	Label    string `json:"label"`
	Count    int64  `json:"count"`
}

// CategoryFiles 分类下的文件
type CategoryFiles struct {
	Category string             `json:"category"`
	Label    string             `json:"label"`
	Files    []FileInfoResponse `json:"files"`
}

// StudentSummaryResponse 学生分类汇总
type StudentSummaryResponse struct {
	OwnerName  string            `json:"owner_name"`
	Categories []CategorySummary `json:"categories"`
	Total      int64             `json:"total"`
}

// StudentFilesResponse 学生文件分组
type StudentFilesResponse struct {
	OwnerName  string          `json:"owner_name"`
	Categories []CategoryFiles `json:"categories"`
}
