package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"mediavault/api/internal/config"
	"mediavault/api/internal/middleware"
	"mediavault/api/internal/repository"
	"mediavault/api/internal/service"
	"mediavault/api/internal/storage"
)

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	authService  *service.AuthService
	mediaService *service.MediaService
	db           *pgxpool.Pool
	cache        *redis.Client
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.ObjectStore, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	auth := service.NewAuthService(userRepo, cfg, log)
	media := service.NewMediaService(mediaRepo, store, cache, cfg, log)

	return HandlerSet{
		log:          log,
		cfg:          cfg,
		authService:  auth,
		mediaService: media,
		db:           db,
		cache:        cache,
	}
}

func (h HandlerSet) Mount(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)

	users := v1.Group("/users")
	users.Use(middleware.Auth(h.cfg))
	users.GET("/me", h.Me)

	media := v1.Group("/media")
	media.Use(middleware.Auth(h.cfg))
	media.POST("/upload", h.UploadMedia)
	media.GET("/my", h.ListMyMedia)
	media.GET("/:id", h.GetMedia)
	media.GET("/:id/download", h.DownloadMedia)
	media.DELETE("/:id", h.DeleteMedia)
	media.GET("/:id/permissions", h.GetMediaPermissions)
	media.POST("/:id/permissions", h.SetMediaPermissions)
}
