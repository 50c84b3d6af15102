package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response 统一响应格式，code 与 HTTP 状态码一致
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// OK 成功响应，message 为空时为"成功"
func OK(c *gin.Context, message string, data interface{}) {
	if message == "" {
		message = "成功"
	}
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: message,
		Data:    data,
	})
}

// Fail 错误响应
func Fail(c *gin.Context, status int, message string) {
	c.JSON(status, Response{
		Code:    status,
		Message: message,
	})
}

// ErrorRule 一类业务错误对应的响应
type ErrorRule struct {
	Target  error
	Status  int
	Message string // 为空时使用错误本身的信息
}

// ErrorResponder 按规则顺序匹配错误，未命中的按500处理并记录日志
type ErrorResponder struct {
	rules  []ErrorRule
	logger logrus.FieldLogger
}

// NewErrorResponder 创建错误响应器
func NewErrorResponder(logger logrus.FieldLogger, rules ...ErrorRule) *ErrorResponder {
	return &ErrorResponder{rules: rules, logger: logger}
}

// Respond 写出错误响应
func (r *ErrorResponder) Respond(c *gin.Context, err error) {
	for _, rule := range r.rules {
		if !errors.Is(err, rule.Target) {
			continue
		}
		message := rule.Message
		if message == "" {
			message = err.Error()
		}
		Fail(c, rule.Status, message)
		return
	}

	r.logger.WithError(err).WithField("path", c.Request.URL.Path).Error("请求处理失败")
	Fail(c, http.StatusInternalServerError, "服务器内部错误")
}
