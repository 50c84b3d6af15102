package handler

import (
	"qrcard/internal/dto"
	"qrcard/internal/middleware"
	"qrcard/internal/models"
	"qrcard/internal/service"
	"qrcard/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StudentHandler 按学生查看文件
type StudentHandler struct {
	registry *service.Registry
	errs     *utils.ErrorResponder
}

// NewStudentHandler 创建学生处理器
func NewStudentHandler(registry *service.Registry, logger logrus.FieldLogger) *StudentHandler {
	return &StudentHandler{registry: registry, errs: newErrorResponder(logger)}
}

// ListStudents 学生列表
// @Router /api/students [get]
func (h *StudentHandler) ListStudents(c *gin.Context) {
	owners, err := h.registry.ListOwners(c.Request.Context(), middleware.GetAuthContext(c))
	if err != nil {
		h.errs.Respond(c, err)
		return
	}
	utils.OK(c, "", owners)
}

// Summary 学生各分类文件数
// @Router /api/students/{name}/summary [get]
func (h *StudentHandler) Summary(c *gin.Context) {
	name := c.Param("name")
	counts, err := h.registry.ListByOwner(c.Request.Context(), middleware.GetAuthContext(c), name)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	resp := dto.StudentSummaryResponse{OwnerName: name}
	for _, category := range models.AllCategories() {
		resp.Categories = append(resp.Categories, dto.CategorySummary{
			Category: string(category),
			Label:    category.Label(),
			Count:    counts[category],
		})
		resp.Total += counts[category]
	}
	utils.OK(c, "", resp)
}

// Files 学生文件，按分类分组
// @Router /api/students/{name}/files [get]
func (h *StudentHandler) Files(c *gin.Context) {
	name := c.Param("name")
	grouped, err := h.registry.ListFilesByOwner(c.Request.Context(), middleware.GetAuthContext(c), name)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	resp := dto.StudentFilesResponse{OwnerName: name}
	for _, category := range models.AllCategories() {
		files := make([]dto.FileInfoResponse, 0, len(grouped[category]))
		for i := range grouped[category] {
			files = append(files, dto.NewFileInfoResponse(&grouped[category][i]))
		}
		resp.Categories = append(resp.Categories, dto.CategoryFiles{
			Category: string(category),
			Label:    category.Label(),
			Files:    files,
		})
	}
	utils.OK(c, "", resp)
}
