package handler

import (
	"log/slog"
	"net/http"

	"yamdb/internal/config"
	"yamdb/internal/events"
	"yamdb/internal/http-api/middleware"
	"yamdb/internal/http-api/repository"
	"yamdb/internal/http-api/service"
	"yamdb/internal/mailer"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Dependencies carries everything NewRouter wires into the handlers.
// Redis is optional and only backs the auth rate limiter.
type Dependencies struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *slog.Logger
	Mailer    mailer.Mailer
	Publisher events.Publisher
	Redis     *redis.Client
}

func NewRouter(deps Dependencies) *gin.Engine {
	cfg := deps.Config

	// Repositories
	userRepo := repository.NewUserRepository(deps.DB)
	categoryRepo := repository.NewCategoryRepository(deps.DB)
	genreRepo := repository.NewGenreRepository(deps.DB)
	titleRepo := repository.NewTitleRepository(deps.DB)
	reviewRepo := repository.NewReviewRepository(deps.DB)
	commentRepo := repository.NewCommentRepository(deps.DB)

	// Services
	codes := service.NewCodeGenerator(cfg.SecretKey, cfg.ConfirmationCodeTTL)
	tokens := service.NewTokenIssuer(cfg.SecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := service.NewAuthService(userRepo, codes, tokens, deps.Mailer, cfg.DefaultFromEmail, deps.Logger)
	userService := service.NewUserService(userRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	genreService := service.NewGenreService(genreRepo)
	titleService := service.NewTitleService(titleRepo, categoryRepo, genreRepo)
	reviewService := service.NewReviewService(reviewRepo, titleRepo, deps.Publisher, deps.Logger)
	commentService := service.NewCommentService(commentRepo, reviewRepo, deps.Publisher, deps.Logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))

	r.GET("/check-conn", func(c *gin.Context) {
		sqlDB, err := deps.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1", middleware.Authenticate(authService))

	var authLimit []gin.HandlerFunc
	if cfg.RateLimitEnabled {
		authLimit = append(authLimit, middleware.RateLimit(middleware.RateLimitConfig{
			RPS:    cfg.RateLimitRPS,
			Burst:  cfg.RateLimitBurst,
			Prefix: "ratelimit:auth",
		}, deps.Redis, deps.Logger))
	}

	NewAuthHandler(authService).RegisterRoutes(v1, authLimit...)
	NewUserHandler(userService, cfg.PageSize).RegisterRoutes(v1)
	NewCategoryHandler(categoryService, cfg.PageSize).RegisterRoutes(v1)
	NewGenreHandler(genreService, cfg.PageSize).RegisterRoutes(v1)
	NewTitleHandler(titleService, cfg.PageSize).RegisterRoutes(v1)
	NewReviewHandler(reviewService, cfg.PageSize).RegisterRoutes(v1)
	NewCommentHandler(commentService, cfg.PageSize).RegisterRoutes(v1)

	return r
}
