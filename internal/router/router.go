package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/tooltrack-backend/internal/config"
	"github.com/stemsi/tooltrack-backend/internal/handler"
	"github.com/stemsi/tooltrack-backend/internal/middleware"
	"github.com/stemsi/tooltrack-backend/internal/model"
	"github.com/stemsi/tooltrack-backend/internal/response"
	"github.com/stemsi/tooltrack-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth        *handler.AuthHandler
	Permission  *handler.PermissionHandler
	User        *handler.UserHandler
	Setting     *handler.SettingHandler
	Master      *handler.MasterHandler
	Item        *handler.ItemHandler
	Spreadsheet *handler.SpreadsheetHandler
	Issue       *handler.IssueHandler
	Dashboard   *handler.DashboardHandler
	Live        *handler.LiveHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds background helpers such as the login rate limiter.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	permissionService *service.PermissionService,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(
		response.RequestIDMiddleware(),
		middleware.RequestLogger(log),
		middleware.Recover(log),
		cors.New(corsConfig),
		middleware.SecureHeaders(cfg.GinMode != gin.ReleaseMode),
		middleware.Brotli(),
	)

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	requireSession := []gin.HandlerFunc{
		middleware.RequireJWT(authService),
		middleware.RequireActiveSession(authService),
	}
	can := func(capability model.Capability) gin.HandlerFunc {
		return middleware.RequireCapability(permissionService, capability)
	}

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1/public")
	publicAPI.Use(middleware.CacheControl(60))
	{
		publicAPI.GET("/settings", handlers.Setting.GetPublicSettings)
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	loginLimiter := middleware.NewRateLimiter(ctx, cfg.LoginRatePerMin, time.Minute)

	auth := router.Group("/api/v1/auth")
	auth.Use(middleware.NoStore())
	{
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)

		session := auth.Group("", requireSession...)
		session.POST("/logout", handlers.Auth.Logout)
		session.GET("/me", handlers.Auth.GetProfile)
		session.GET("/landing", handlers.Auth.GetLanding)
	}

	api := router.Group("/api/v1", requireSession...)

	// ─── 2. Settings (permissions, app settings, users) ────────────────
	settings := api.Group("/settings")
	settings.Use(middleware.NoStore())
	{
		// Every signed-in user may read their own set.
		settings.GET("/permissions/me", handlers.Permission.GetMine)

		settings.GET("/permissions", can(model.CapAccessSettings), handlers.Permission.List)
		settings.PATCH("/permissions", can(model.CapAccessSettings), handlers.Permission.Update)

		settings.GET("/app", can(model.CapAccessSettings), handlers.Setting.GetAllSettings)
		settings.PUT("/app", can(model.CapAccessSettings), handlers.Setting.UpdateSettings)

		users := settings.Group("/users", can(model.CapAccessSettings))
		users.GET("", handlers.User.ListUsers)
		users.POST("", handlers.User.CreateUser)
		users.GET("/:id", handlers.User.GetUser)
		users.PUT("/:id", handlers.User.UpdateUser)
		users.DELETE("/:id", handlers.User.DeleteUser)
	}

	// ─── 3. Dashboard ──────────────────────────────────────────────────
	api.GET("/dashboard", can(model.CapViewDashboard), handlers.Dashboard.GetSummary)

	// ─── 4. Master Data ────────────────────────────────────────────────
	master := api.Group("/master")
	{
		items := master.Group("/items",
			middleware.RequireAllCapabilities(permissionService, model.CapViewMaster, model.CapViewItemMaster),
		)
		items.GET("", handlers.Item.List)
		items.POST("", handlers.Item.Create)
		items.GET("/export", handlers.Spreadsheet.ExportItems)
		items.POST("/import", handlers.Spreadsheet.ImportItems)
		items.GET("/:id", handlers.Item.Get)
		items.PUT("/:id", handlers.Item.Update)
		items.DELETE("/:id", handlers.Item.Delete)

		entity := master.Group("/:entity", middleware.RequireMasterEntity(permissionService))
		entity.GET("", handlers.Master.List)
		entity.POST("", handlers.Master.Create)
		entity.GET("/export", handlers.Spreadsheet.ExportMaster)
		entity.POST("/import", handlers.Spreadsheet.ImportMaster)
		entity.GET("/:id", handlers.Master.Get)
		entity.PUT("/:id", handlers.Master.Update)
		entity.DELETE("/:id", handlers.Master.Delete)
	}

	// ─── 5. Outward / Inward ───────────────────────────────────────────
	issues := api.Group("/issues", can(model.CapViewOutward))
	{
		issues.GET("", handlers.Issue.ListIssues)
		issues.POST("", handlers.Issue.CreateIssue)
		issues.GET("/:id", handlers.Issue.GetIssue)
	}

	returns := api.Group("/returns", can(model.CapViewInward))
	{
		returns.GET("", handlers.Issue.ListReturns)
		returns.POST("", handlers.Issue.CreateReturn)
	}

	// ─── 6. Reports ────────────────────────────────────────────────────
	reports := api.Group("/reports", can(model.CapViewReports))
	{
		reports.GET("/issues", handlers.Issue.ListIssues)
		reports.GET("/issues/export", handlers.Spreadsheet.ExportIssues)
	}

	// ─── 7. WebSocket Group (token in query string) ────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireWSAuth(authService),
		middleware.RequireActiveSession(authService),
	)
	{
		ws.GET("/dashboard/live", can(model.CapViewDashboard), handlers.Live.DashboardStream)
	}

	return router
}
