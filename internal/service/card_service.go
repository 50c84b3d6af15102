package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"qrcard/internal/models"
	"qrcard/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

// QREncoder 二维码编码器，返回 PNG 字节
type QREncoder interface {
	Encode(content string, size int) ([]byte, error)
}

// PNGEncoder 使用 go-qrcode 生成 PNG
type PNGEncoder struct {
	Level qrcode.RecoveryLevel
}

// Encode 生成 size×size 的 PNG
func (e PNGEncoder) Encode(content string, size int) ([]byte, error) {
	return qrcode.Encode(content, e.Level, size)
}

// CardOptions 卡片参数
type CardOptions struct {
	PublicBaseURL string
	QRSize        int
	Title         string
}

// CardService 为文件生成二维码卡片
type CardService struct {
	registry *Registry
	cards    *repository.CardRecordRepository
	encoder  QREncoder
	opts     CardOptions
	logger   logrus.FieldLogger
}

// NewCardService 创建卡片服务
func NewCardService(registry *Registry, cards *repository.CardRecordRepository, encoder QREncoder, opts CardOptions, logger logrus.FieldLogger) *CardService {
	return &CardService{
		registry: registry,
		cards:    cards,
		encoder:  encoder,
		opts:     opts,
		logger:   logger,
	}
}

// AccessURL 文件访问地址，配置了外部地址时优先使用
func (s *CardService) AccessURL(requestBase, id string) string {
	base := s.opts.PublicBaseURL
	if base == "" {
		base = requestBase
	}
	return strings.TrimRight(base, "/") + "/file/" + id
}

// Generate 生成（或重新生成）卡片并保存
func (s *CardService) Generate(ctx context.Context, auth AuthContext, id, requestBase string) (*models.CardRecord, error) {
	if err := auth.require(); err != nil {
		return nil, err
	}

	record, err := s.registry.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	accessURL := s.AccessURL(requestBase, record.ID)
	png, err := s.encoder.Encode(accessURL, s.opts.QRSize)
	if err != nil {
		return nil, fmt.Errorf("生成二维码失败: %w", err)
	}

	card := &models.CardRecord{
		FileID:    record.ID,
		AccessURL: accessURL,
		QRCode:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		Metadata: models.JSONMap{
			"title":          s.opts.Title,
			"owner_name":     record.OwnerName,
			"category":       string(record.Category),
			"category_label": record.CategoryLabel(),
			"display_name":   record.DisplayName,
			"mime_type":      record.MimeType,
			"size":           record.Size,
			"uploaded_at":    record.CreatedAt.Format("2006-01-02 15:04:05"),
		},
	}
	if err := s.cards.Save(ctx, card); err != nil {
		return nil, fmt.Errorf("保存卡片失败: %w", err)
	}

	s.logger.WithField("file_id", record.ID).Debug("卡片已生成")
	return card, nil
}

// Get 查询卡片
func (s *CardService) Get(ctx context.Context, id string) (*models.CardRecord, error) {
	card, err := s.cards.GetByFileID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询卡片失败: %w", err)
	}
	return card, nil
}
