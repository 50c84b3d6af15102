package middleware

import (
	"time"

	"qrcard/internal/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS 跨域中间件
func CORS(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     cfg.CORS.AllowMethods,
		AllowHeaders:     cfg.CORS.AllowHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}

	origins := cfg.CORS.Origins
	if len(origins) == 0 {
		// 未配置时只允许同源
		corsCfg.AllowOriginFunc = func(string) bool { return false }
	} else {
		for _, o := range origins {
			// 配置加载时已拒绝 * 与 allow_credentials 同时开启
			if o == "*" {
				corsCfg.AllowAllOrigins = true
				origins = nil
				break
			}
		}
		corsCfg.AllowOrigins = origins
	}

	return cors.New(corsCfg)
}
