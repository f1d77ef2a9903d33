package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/streamline-hs/enrollment-portal-api/internal/handler"
	"github.com/streamline-hs/enrollment-portal-api/internal/middleware"
	"github.com/streamline-hs/enrollment-portal-api/internal/models"
	"github.com/streamline-hs/enrollment-portal-api/internal/service"
	"github.com/streamline-hs/enrollment-portal-api/pkg/config"
	"github.com/streamline-hs/enrollment-portal-api/pkg/logger"
	corsmiddleware "github.com/streamline-hs/enrollment-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/streamline-hs/enrollment-portal-api/pkg/middleware/requestid"

	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Enrollment *handler.EnrollmentHandler
	Admin      *handler.AdminHandler
	Metrics    *handler.MetricsHandler
}

// New builds the gin engine with all middleware and routes mounted.
func New(cfg *config.Config, logr *zap.Logger, authService *service.AuthService, metricsService *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/register", h.Auth.Register)
		auth.POST("/logout", middleware.JWT(authService), h.Auth.Logout)
		auth.GET("/session", middleware.JWT(authService), h.Auth.Session)
	}

	enrollment := api.Group("/enrollment", middleware.JWT(authService), middleware.RequireRoles(models.RoleStudent))
	{
		enrollment.GET("", h.Enrollment.View)
		enrollment.POST("/documents/:id", h.Enrollment.ToggleDocument)
		enrollment.POST("/continue", h.Enrollment.Continue)
		enrollment.PUT("/draft", h.Enrollment.SaveDraft)
		enrollment.DELETE("/form", h.Enrollment.ClearForm)
		enrollment.POST("/submit", h.Enrollment.Submit)
		enrollment.POST("/payment", h.Enrollment.CompletePayment)
		enrollment.POST("/payment/cancel", h.Enrollment.CancelPayment)
		enrollment.GET("/application", h.Enrollment.Application)
	}

	admin := api.Group("/admin", middleware.JWT(authService), middleware.RequireRoles(models.RoleAdmin), middleware.Audit(logr))
	{
		admin.GET("/applications", h.Admin.ListApplications)
		admin.GET("/applications/:id", h.Admin.GetApplication)
		admin.PATCH("/applications/:id/status", h.Admin.ChangeStatus)
		admin.POST("/applications/:id/notes", h.Admin.AppendNote)
		admin.PATCH("/applications/:id/documents", h.Admin.SetDocumentStatus)
		admin.DELETE("/applications/:id", h.Admin.DeleteApplication)
		admin.GET("/summary", h.Admin.Summary)
		admin.POST("/exports", h.Admin.RequestExport)
		admin.GET("/exports/:id", h.Admin.GetExport)
		admin.GET("/exports/:id/download", h.Admin.DownloadExport)
	}

	return r
}
