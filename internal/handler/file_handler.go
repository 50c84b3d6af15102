package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"

	"qrcard/internal/dto"
	"qrcard/internal/middleware"
	"qrcard/internal/service"
	"qrcard/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// multipartOverhead 请求体上限在文件上限之外留给表单字段和分隔符的余量
const multipartOverhead = 1 << 20

// FileHandler 文件上传、访问和删除
type FileHandler struct {
	uploads  *service.UploadService
	registry *service.Registry
	access   *service.FileAccess
	cards    *service.CardService
	tempDir  string
	maxSize  int64
	logger   logrus.FieldLogger
	errs     *utils.ErrorResponder
}

// NewFileHandler 创建文件处理器
func NewFileHandler(
	uploads *service.UploadService,
	registry *service.Registry,
	access *service.FileAccess,
	cards *service.CardService,
	tempDir string,
	maxSize int64,
	logger logrus.FieldLogger,
) *FileHandler {
	return &FileHandler{
		uploads:  uploads,
		registry: registry,
		access:   access,
		cards:    cards,
		tempDir:  tempDir,
		maxSize:  maxSize,
		logger:   logger,
		errs:     newErrorResponder(logger),
	}
}

// Upload 上传文件并生成二维码
// @Router /api/upload [post]
func (h *FileHandler) Upload(c *gin.Context) {
	authCtx := middleware.GetAuthContext(c)

	// 超限的请求体在读取过程中中断，不会整体落到临时目录
	if h.maxSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxSize+multipartOverhead)
	}

	file, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.Fail(c, http.StatusBadRequest, service.SizeLimitMessage(h.maxSize))
			return
		}
		utils.Fail(c, http.StatusBadRequest, "没有上传文件")
		return
	}

	input := service.UploadInput{
		OwnerName:    c.PostForm("studentName"),
		Category:     c.PostForm("category"),
		OriginalName: file.Filename,
		MimeType:     file.Header.Get("Content-Type"),
		Size:         file.Size,
		TempPath:     filepath.Join(h.tempDir, uuid.NewString()+filepath.Ext(file.Filename)),
	}

	// 先校验再落盘，校验失败不产生任何文件
	if err := h.uploads.Validate(&input); err != nil {
		h.errs.Respond(c, err)
		return
	}

	if err := c.SaveUploadedFile(file, input.TempPath); err != nil {
		h.logger.WithError(err).Error("保存临时文件失败")
		utils.Fail(c, http.StatusInternalServerError, "服务器内部错误")
		return
	}
	defer h.uploads.Discard(input.TempPath)

	result, err := h.uploads.Upload(c.Request.Context(), authCtx, input)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	resp := dto.UploadResponse{
		FileInfo:  dto.NewFileInfoResponse(result.Record),
		AccessURL: h.cards.AccessURL(requestBaseURL(c), result.ID),
	}

	// 卡片生成失败不影响上传结果，可稍后重新生成
	card, err := h.cards.Generate(c.Request.Context(), authCtx, result.ID, requestBaseURL(c))
	if err != nil {
		h.logger.WithError(err).WithField("file_id", result.ID).Warn("生成卡片失败")
	} else {
		resp.QRCode = card.QRCode
		resp.AccessURL = card.AccessURL
	}

	utils.OK(c, "文件上传成功", resp)
}

// Serve 按ID访问文件
// @Router /file/{id} [get]
func (h *FileHandler) Serve(c *gin.Context) {
	record, body, size, err := h.access.Open(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	defer body.Close()

	encoded := url.PathEscape(record.DisplayName)
	headers := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=\"%s\"; filename*=UTF-8''%s", encoded, encoded),
	}
	c.DataFromReader(http.StatusOK, size, record.MimeType, body, headers)
}

// Info 获取文件信息
// @Router /api/file/{id}/info [get]
func (h *FileHandler) Info(c *gin.Context) {
	record, err := h.access.Info(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	utils.OK(c, "", dto.NewFileInfoResponse(record))
}

// Delete 删除文件
// @Router /api/file/{id} [delete]
func (h *FileHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Request.Context(), middleware.GetAuthContext(c), c.Param("id")); err != nil {
		h.errs.Respond(c, err)
		return
	}
	utils.OK(c, "文件已删除", gin.H{"success": true})
}

// GetCard 获取文件卡片
// @Router /api/file/{id}/card [get]
func (h *FileHandler) GetCard(c *gin.Context) {
	card, err := h.cards.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	utils.OK(c, "", dto.NewCardResponse(card))
}

// RegenerateCard 重新生成卡片
// @Router /api/file/{id}/card [post]
func (h *FileHandler) RegenerateCard(c *gin.Context) {
	card, err := h.cards.Generate(c.Request.Context(), middleware.GetAuthContext(c), c.Param("id"), requestBaseURL(c))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	utils.OK(c, "卡片已生成", dto.NewCardResponse(card))
}
