package utils

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"qrcard/internal/models"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// InitValidator 初始化验证器
func InitValidator() {
	validate = validator.New()

	// 注册自定义验证函数
	validate.RegisterValidation("category", validateCategory)
	validate.RegisterValidation("ownername", validateOwnerName)
}

// GetValidator 获取验证器实例
func GetValidator() *validator.Validate {
	validateOnce.Do(InitValidator)
	return validate
}

// validateCategory 分类必须是已知分类键或显示名
func validateCategory(fl validator.FieldLevel) bool {
	_, ok := models.ParseCategory(fl.Field().String())
	return ok
}

// validateOwnerName 学生名会作为目录名：不能包含路径分隔符，不能以 . 开头
func validateOwnerName(fl validator.FieldLevel) bool {
	name := strings.TrimSpace(fl.Field().String())
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, "/\\\x00")
}

// ValidateStruct 验证结构体
func ValidateStruct(s interface{}) error {
	v := GetValidator()
	if err := v.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError 格式化验证错误
func formatValidationError(err error) error {
	var messages []string

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			field := e.Field()
			param := e.Param()

			var message string
			switch e.Tag() {
			case "required":
				message = fmt.Sprintf("%s是必填字段", field)
			case "max":
				message = fmt.Sprintf("%s长度不能大于%s", field, param)
			case "gte":
				message = fmt.Sprintf("%s不能小于%s", field, param)
			case "category":
				message = fmt.Sprintf("%s必须是自我介绍、家庭介绍或职业介绍", field)
			case "ownername":
				message = fmt.Sprintf("%s不能为空、不能以.开头且不能包含路径分隔符", field)
			default:
				message = fmt.Sprintf("%s验证失败: %s", field, e.Tag())
			}

			messages = append(messages, message)
		}
	}

	if len(messages) > 0 {
		return errors.New(strings.Join(messages, "; "))
	}

	return err
}
