package router

import (
	"log"
	"net/http"
	"time"

	"github.com/clearcity/api/internal/auth"
	"github.com/clearcity/api/internal/config"
	"github.com/clearcity/api/internal/handler"
	"github.com/clearcity/api/internal/middleware"
	"github.com/clearcity/api/internal/repository"
	"github.com/clearcity/api/internal/service"
	"github.com/clearcity/api/internal/storage"
	"github.com/clearcity/api/internal/validator"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps are the long-lived collaborators shared by every request. Cache and
// Limiter are optional; leave them nil when Redis is not configured.
type Deps struct {
	Config     *config.Config
	DB         *gorm.DB
	Classifier service.Classifier
	Images     storage.ImageStore
	Cache      handler.JSONCache
	Limiter    middleware.RateChecker
}

func init() {
	binding.EnableDecoderDisallowUnknownFields = true
}

// New assembles the gin engine with every API route.
func New(d Deps) *gin.Engine {
	cfg := d.Config

	users := repository.NewUserRepository(d.DB)
	reports := repository.NewReportRepository(d.DB)
	achievements := repository.NewAchievementRepository(d.DB)
	stats := repository.NewStatsRepository(d.DB)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	hasher := auth.NewHasher(cfg.BcryptCost)
	images := validator.NewImageValidator(cfg.MaxUploadBytes)

	rewards := service.NewGamification(users, achievements, cfg.ReportXP)
	submission := service.NewSubmission(reports, d.Classifier, d.Images, rewards)

	authHandler := handler.NewAuthHandler(users, tokens, hasher)
	reportHandler := handler.NewReportHandler(reports, users, submission, d.Images, images)
	userHandler := handler.NewUserHandler(users, d.Images, images, d.Cache)
	adminHandler := handler.NewAdminHandler(users, service.NewStatsService(stats), d.Cache)

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Printf("Panic serving %s %s: %v", c.Request.Method, c.Request.URL.Path, recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
	}))
	r.Use(middleware.MetricsMiddleware())
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	// multipart bodies beyond this are not buffered in memory
	r.MaxMultipartMemory = cfg.MaxUploadBytes

	if cfg.StorageDriver == "" || cfg.StorageDriver == "local" {
		r.Static("/uploads", cfg.UploadDir)
	}
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	requireAuth := middleware.AuthMiddleware(tokens)
	requireAdmin := middleware.AdminMiddleware(users)

	api := r.Group("/api")
	{
		api.GET("/health", handler.Health)

		api.POST("/auth/register", authHandler.Register)
		api.POST("/auth/login", authHandler.Login)

		api.GET("/reports", reportHandler.List)
		api.POST("/reports", requireAuth, middleware.RateLimitMiddleware(d.Limiter, "report"), reportHandler.Create)
		api.GET("/reports/:id", reportHandler.Get)
		api.PATCH("/reports/:id", requireAuth, reportHandler.UpdateStatus)
		api.DELETE("/reports/:id", requireAuth, reportHandler.Delete)

		api.GET("/users/profile", requireAuth, userHandler.Profile)
		api.PATCH("/users/profile", requireAuth, userHandler.UpdateProfile)
		api.POST("/users/profile/image", requireAuth, userHandler.UploadImage)
		api.GET("/users/leaderboard", userHandler.Leaderboard)

		admin := api.Group("/admin", requireAuth, requireAdmin)
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/admins", adminHandler.ListAdmins)
			admin.POST("/promote/:email", adminHandler.Promote)
			admin.POST("/demote/:email", adminHandler.Demote)
		}
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	return c
}
