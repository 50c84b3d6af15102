package router

import (
	"net/http"
	"os"

	"qrcard/internal/config"
	"qrcard/internal/handler"
	"qrcard/internal/middleware"
	"qrcard/internal/repository"
	"qrcard/internal/service"
	"qrcard/internal/storage"
	"qrcard/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// SetupRouter 设置路由
func SetupRouter(
	cfg *config.Config,
	logger *logrus.Logger,
	db *gorm.DB,
	store storage.Store,
	locker service.Locker,
) (*gin.Engine, error) {
	// 设置Gin模式
	if cfg.Server.ProductionMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化Repository
	fileRepo := repository.NewFileRecordRepository(db)
	cardRepo := repository.NewCardRecordRepository(db)
	legacyRepo := repository.NewLegacyRepository(cfg.Storage.LegacyDataFile)

	// 初始化Service
	jwtManager := utils.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Algorithm, cfg.JWT.GetExpireDuration())
	authService, err := service.NewAuthService(cfg.Admin, jwtManager)
	if err != nil {
		return nil, err
	}
	registry := service.NewRegistry(fileRepo, store, logger)
	chain := service.NewResolverChain(registry, service.NewLegacyResolver(legacyRepo))
	access := service.NewFileAccess(chain, store, logger)
	uploads := service.NewUploadService(registry, store, locker, service.UploadLimits{
		MaxFileSize:      cfg.Upload.MaxFileSize(),
		AllowedMimeTypes: cfg.Upload.AllowedMimeTypes,
	}, logger)
	cards := service.NewCardService(registry, cardRepo, service.PNGEncoder{Level: qrcode.Medium}, service.CardOptions{
		PublicBaseURL: cfg.Server.PublicBaseURL,
		QRSize:        cfg.Card.QRSize,
		Title:         cfg.Card.Title,
	}, logger)

	// 初始化Handler
	authHandler := handler.NewAuthHandler(authService, logger)
	fileHandler := handler.NewFileHandler(uploads, registry, access, cards, cfg.Storage.TempDir, cfg.Upload.MaxFileSize(), logger)
	studentHandler := handler.NewStudentHandler(registry, logger)

	sessionStore := cookie.NewStore([]byte(cfg.Session.Secret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   cfg.Session.MaxAge,
		HttpOnly: true,
		Secure:   cfg.Server.ProductionMode,
		SameSite: http.SameSiteLaxMode,
	})

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20

	// 全局中间件
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg))
	r.Use(sessions.Sessions(cfg.Session.CookieName, sessionStore))
	r.Use(middleware.SessionAuth(authService))
	r.Use(middleware.LoggerMiddleware(logger))

	// 前端页面
	if info, err := os.Stat(cfg.Server.PublicDir); err == nil && info.IsDir() {
		r.Use(static.Serve("/", static.LocalFile(cfg.Server.PublicDir, true)))
	}

	// 健康检查与监控
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 通过ID访问文件
	r.GET("/file/:id", fileHandler.Serve)

	api := r.Group("/api")
	{
		// 公开路由
		api.POST("/login", authHandler.Login)
		api.POST("/logout", authHandler.Logout)
		api.GET("/me", authHandler.GetMe)
		api.GET("/file/:id/info", fileHandler.Info)
		api.GET("/file/:id/card", fileHandler.GetCard)

		// 认证路由
		authorized := api.Group("")
		authorized.Use(middleware.RequireAuth())
		{
			authorized.POST("/upload", fileHandler.Upload)
			authorized.DELETE("/file/:id", fileHandler.Delete)
			authorized.POST("/file/:id/card", fileHandler.RegenerateCard)

			authorized.GET("/students", studentHandler.ListStudents)
			authorized.GET("/students/:name/summary", studentHandler.Summary)
			authorized.GET("/students/:name/files", studentHandler.Files)
		}
	}

	return r, nil
}
