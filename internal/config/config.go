package config

import (
	"fmt"
	"time"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Session  SessionConfig  `mapstructure:"session"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Card     CardConfig     `mapstructure:"card"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	ProductionMode bool   `mapstructure:"production_mode"`
	PublicDir      string `mapstructure:"public_dir"`
	// PublicBaseURL 二维码中使用的外部访问地址，为空时按请求的 scheme+host 拼接
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// GetAddress 获取服务器地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// RedisConfig Redis配置，仅用于多实例部署时的文件名分配锁
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	LockTTL  int    `mapstructure:"lock_ttl_seconds"`
}

// GetAddress 获取Redis地址
func (r *RedisConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// GetLockTTL 获取锁的过期时间
func (r *RedisConfig) GetLockTTL() time.Duration {
	return time.Duration(r.LockTTL) * time.Second
}

// StorageConfig 文件存储配置
type StorageConfig struct {
	Driver         string   `mapstructure:"driver"` // local, s3
	UploadDir      string   `mapstructure:"upload_dir"`
	TempDir        string   `mapstructure:"temp_dir"`
	LegacyDataFile string   `mapstructure:"legacy_data_file"`
	S3             S3Config `mapstructure:"s3"`
}

// S3Config 对象存储配置
type S3Config struct {
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Endpoint  string `mapstructure:"endpoint"`
	Prefix    string `mapstructure:"prefix"`
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxFileSizeMB    int64    `mapstructure:"max_file_size_mb"`
	AllowedMimeTypes []string `mapstructure:"allowed_mime_types"`
}

// MaxFileSize 最大文件字节数
func (u *UploadConfig) MaxFileSize() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// SessionConfig 会话配置
type SessionConfig struct {
	Secret     string `mapstructure:"secret"`
	CookieName string `mapstructure:"cookie_name"`
	MaxAge     int    `mapstructure:"max_age_seconds"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

// GetExpireDuration 获取过期时间
func (j *JWTConfig) GetExpireDuration() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// AdminConfig 管理员配置
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CORSConfig CORS配置
type CORSConfig struct {
	Origins          []string `mapstructure:"origins"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
}

// CardConfig 学生卡片配置
type CardConfig struct {
	QRSize int    `mapstructure:"qr_size"`
	Title  string `mapstructure:"title"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// DefaultAllowedMimeTypes 默认允许上传的文件类型
var DefaultAllowedMimeTypes = []string{
	// 图片格式
	"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/bmp", "image/svg+xml",
	// 视频格式
	"video/mp4", "video/avi", "video/mov", "video/wmv", "video/flv", "video/webm", "video/mkv",
	// 音频格式
	"audio/mp3", "audio/wav", "audio/ogg", "audio/aac", "audio/flac", "audio/m4a", "audio/wma",
	// 文档格式
	"application/pdf", "application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"text/plain", "text/csv",
}
