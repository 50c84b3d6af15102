package handler

import (
	"net/http"

	"qrcard/internal/dto"
	"qrcard/internal/middleware"
	"qrcard/internal/service"
	"qrcard/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	authService *service.AuthService
	errs        *utils.ErrorResponder
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(authService *service.AuthService, logger logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		errs:        newErrorResponder(logger),
	}
}

// Login 管理员登录，同时写入会话并返回Token
// @Router /api/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		h.errs.Respond(c, err)
		return
	}

	if err := middleware.Login(c, req.Username); err != nil {
		h.errs.Respond(c, err)
		return
	}

	utils.OK(c, "登录成功", dto.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User: dto.UserInfo{
			Username:      req.Username,
			Authenticated: true,
		},
	})
}

// GetMe 获取当前登录状态
// @Router /api/me [get]
func (h *AuthHandler) GetMe(c *gin.Context) {
	authCtx := middleware.GetAuthContext(c)
	utils.OK(c, "", dto.UserInfo{
		Username:      authCtx.Username,
		Authenticated: authCtx.Authenticated,
	})
}

// Logout 退出登录
// @Router /api/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.Logout(c); err != nil {
		h.errs.Respond(c, err)
		return
	}
	utils.OK(c, "登出成功", nil)
}
