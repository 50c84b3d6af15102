package middleware

import (
	"net/http"
	"strings"

	"qrcard/internal/service"
	"qrcard/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	authContextKey     = "auth_context"
	sessionUsernameKey = "username"
)

// Authenticator 校验 Bearer Token
type Authenticator interface {
	Authenticate(token string) (service.AuthContext, error)
}

// SessionAuth 从会话 Cookie 或 Bearer Token 中识别登录状态，不拦截请求
func SessionAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authCtx := service.Anonymous

		session := sessions.Default(c)
		if username, ok := session.Get(sessionUsernameKey).(string); ok && username != "" {
			authCtx = service.AuthContext{Authenticated: true, Username: username}
		} else if header := c.GetHeader("Authorization"); header != "" {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" {
				if ac, err := auth.Authenticate(parts[1]); err == nil {
					authCtx = ac
				}
			}
		}

		c.Set(authContextKey, authCtx)
		c.Next()
	}
}

// RequireAuth 未登录时返回401
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetAuthContext(c).Authenticated {
			utils.Fail(c, http.StatusUnauthorized, "未认证")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetAuthContext 从上下文获取认证信息
func GetAuthContext(c *gin.Context) service.AuthContext {
	v, exists := c.Get(authContextKey)
	if !exists {
		return service.Anonymous
	}
	authCtx, ok := v.(service.AuthContext)
	if !ok {
		return service.Anonymous
	}
	return authCtx
}

// Login 把用户名写入会话
func Login(c *gin.Context, username string) error {
	session := sessions.Default(c)
	session.Set(sessionUsernameKey, username)
	return session.Save()
}

// Logout 清除会话
func Logout(c *gin.Context) error {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	return session.Save()
}
