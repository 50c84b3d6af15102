package handler

import (
	"net/http"

	"qrcard/internal/service"
	"qrcard/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// newErrorResponder 服务层错误到HTTP响应的映射，文件缺失需排在未找到之前
func newErrorResponder(logger logrus.FieldLogger) *utils.ErrorResponder {
	return utils.NewErrorResponder(logger,
		utils.ErrorRule{Target: service.ErrValidation, Status: http.StatusBadRequest},
		utils.ErrorRule{Target: service.ErrUnauthenticated, Status: http.StatusUnauthorized},
		utils.ErrorRule{Target: service.ErrInvalidCredentials, Status: http.StatusUnauthorized},
		utils.ErrorRule{Target: service.ErrFileMissing, Status: http.StatusNotFound, Message: service.ErrFileMissing.Error()},
		utils.ErrorRule{Target: service.ErrNotFound, Status: http.StatusNotFound, Message: service.ErrNotFound.Error()},
	)
}

// requestBaseURL 按请求拼接 scheme://host
func requestBaseURL(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
