package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chhs/grades-backend/internal/config"
	"github.com/chhs/grades-backend/internal/handler"
	"github.com/chhs/grades-backend/internal/middleware"
	"github.com/chhs/grades-backend/internal/model"
	"github.com/chhs/grades-backend/internal/response"
	"github.com/chhs/grades-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	Grade   *handler.GradeHandler
	Admin   *handler.AdminHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background work owned by the router, such as rate limiter cleanup.
func SetupRouter(
	ctx context.Context,
	sessions *service.SessionService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// Restrict to ALLOWED_ORIGINS when set; otherwise allow all for development.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.BrotliWithConfig(middleware.BrotliConfig{
		Quality:   middleware.DefaultBrotliConfig.Quality,
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		SkipPaths: []string{"/ws/"},
	}))

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	authLimiter := middleware.NewRateLimiter(ctx, cfg.AuthRateLimit, time.Minute)
	requireSession := []gin.HandlerFunc{
		middleware.RequireJWT(sessions),
		middleware.CheckActiveSession(sessions),
	}

	// ─── 1. Session Group ──────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.CacheControl("no-store"))
	{
		auth.POST("/session", authLimiter.Middleware(), handlers.Session.StartStaff)
		auth.POST("/viewer", authLimiter.Middleware(), handlers.Session.StartViewer)

		auth.GET("/me", append(requireSession, handlers.Session.Me)...)
		auth.DELETE("/session", append(requireSession, handlers.Session.End)...)
	}

	// ─── 2. Grades Group (any session, scoped by role) ─────────────────
	grades := router.Group("/api/v1/grades")
	grades.Use(requireSession...)
	grades.Use(middleware.CacheControl("no-store"))
	{
		grades.GET("", middleware.RequirePermission(model.PermissionGradesRead), handlers.Grade.List)
		grades.GET("/options", middleware.RequirePermission(model.PermissionGradesRead), handlers.Grade.Options)
		grades.GET("/report", middleware.RequirePermission(model.PermissionGradesRead), handlers.Grade.Report)

		grades.POST("", middleware.RequirePermission(model.PermissionGradesWrite), handlers.Grade.Create)
		grades.POST("/locate", middleware.RequirePermission(model.PermissionGradesWrite), handlers.Grade.Locate)
		grades.PATCH("", middleware.RequirePermission(model.PermissionGradesWrite), handlers.Grade.Update)
	}

	// ─── 3. Admin Group ────────────────────────────────────────────────
	admin := router.Group("/api/v1/admin")
	admin.Use(requireSession...)
	admin.Use(middleware.CacheControl("no-store"))
	{
		admin.GET("/audit", middleware.RequirePermission(model.PermissionAuditRead), handlers.Admin.ListAudit)
		admin.POST("/snapshot/refresh", middleware.RequirePermission(model.PermissionSheetAdmin), handlers.Admin.RefreshSnapshot)
		admin.GET("/schema", middleware.RequirePermission(model.PermissionSheetAdmin), handlers.Admin.Schema)
	}

	// ─── 4. WebSocket Group (token in query) ───────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(requireSession...)
	{
		ws.GET("/grades/stream", handlers.WS.GradeStream)
	}

	return router
}
