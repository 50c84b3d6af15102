package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation 参数校验失败，任何存储变更前返回
	ErrValidation = errors.New("参数校验失败")
	// ErrNotFound 主库和旧版存储中都不存在
	ErrNotFound = errors.New("文件不存在")
	// ErrFileMissing 记录存在但物理文件已不存在
	ErrFileMissing = errors.New("文件已被删除")
	// ErrUnauthenticated 未登录
	ErrUnauthenticated = errors.New("未认证")
)

// ValidationError 校验错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is 使 errors.Is(err, ErrValidation) 成立
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func validationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// SizeLimitMessage 文件超过大小限制时的提示
func SizeLimitMessage(limit int64) string {
	return fmt.Sprintf("文件大小超过限制（最大%dMB）", limit/1024/1024)
}
