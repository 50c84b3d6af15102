package service

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"qrcard/internal/config"
	"qrcard/internal/utils"
)

// ErrInvalidCredentials 用户名或密码错误
var ErrInvalidCredentials = errors.New("用户名或密码错误")

// AuthService 管理员认证，凭据来自配置
type AuthService struct {
	username     string
	passwordHash string
	jwtManager   *utils.JWTManager
}

// NewAuthService 创建认证服务，明文密码在启动时做 bcrypt 哈希
func NewAuthService(cfg config.AdminConfig, jwtManager *utils.JWTManager) (*AuthService, error) {
	passwordHash := cfg.Password
	if !utils.IsBcryptHash(passwordHash) {
		hashed, err := utils.HashPassword(cfg.Password)
		if err != nil {
			return nil, fmt.Errorf("密码哈希失败: %w", err)
		}
		passwordHash = hashed
	}

	return &AuthService{
		username:     cfg.Username,
		passwordHash: passwordHash,
		jwtManager:   jwtManager,
	}, nil
}

// Login 校验凭据并签发Token
func (s *AuthService) Login(username, password string) (string, error) {
	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return "", ErrInvalidCredentials
	}
	if err := utils.CheckPassword(password, s.passwordHash); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := s.jwtManager.GenerateToken(username)
	if err != nil {
		return "", fmt.Errorf("生成Token失败: %w", err)
	}
	return token, nil
}

// Authenticate 校验Bearer Token，返回认证上下文
func (s *AuthService) Authenticate(token string) (AuthContext, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return Anonymous, err
	}
	if claims.Username != s.username {
		return Anonymous, ErrInvalidCredentials
	}
	return AuthContext{Authenticated: true, Username: claims.Username}, nil
}

// Username 管理员用户名
func (s *AuthService) Username() string {
	return s.username
}
