package api

import (
	"github.com/gin-gonic/gin"
	"github.com/perchhost/panel/internal/middleware"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/pkg/config"
	"gorm.io/gorm"
)

func SetupRouter(
	activityHandler *RemoteActivityHandler,
	backupHandler *RemoteBackupHandler,
	transferHandler *RemoteTransferHandler,
	sftpHandler *RemoteSftpHandler,
	serverHandler *RemoteServerHandler,
	powerHandler *PowerHandler,
	adminTransferHandler *AdminTransferHandler,
	adminNodeHandler *AdminNodeHandler,
	prometheusHandler *PrometheusHandler,
	nodes *repository.NodeRepository,
	users *repository.UserRepository,
	db *gorm.DB,
	cfg *config.Config,
) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (in order)
	router.Use(gin.Recovery())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.RateLimitMiddleware(middleware.GlobalRateLimiter))

	// Health check endpoints (no auth required)
	healthHandler := NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)
	router.HEAD("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// Prometheus metrics endpoint (no auth required for scraping)
	router.GET("/prometheus", prometheusHandler.MetricsEndpoint)

	// Agent-facing endpoints, authenticated by node credential pair
	remote := router.Group("/api/remote")
	remote.Use(middleware.NodeAuth(nodes))
	{
		remote.POST("/activity", activityHandler.Ingest)

		remote.GET("/servers", serverHandler.List)
		remote.POST("/servers/reset", serverHandler.ResetStatus)

		remote.GET("/backups/:uuid/upload", backupHandler.UploadInfo)
		remote.POST("/backups/:uuid", backupHandler.Complete)
		remote.POST("/backups/:uuid/restore", backupHandler.Restore)

		sftpGroup := remote.Group("/sftp")
		sftpGroup.Use(middleware.RateLimitMiddleware(middleware.SftpAuthRateLimiter))
		{
			sftpGroup.POST("/auth", sftpHandler.Authenticate)
		}
	}

	// Transfer callbacks authenticate by server uuid: during a transfer
	// both agents must be able to report, and only the destination holds
	// a node-scoped token.
	transfers := router.Group("/api/remote/servers/:uuid/transfer")
	{
		transfers.POST("", transferHandler.Status)
		transfers.POST("/archive", transferHandler.Archive)
		transfers.POST("/failure", transferHandler.Failure)
	}

	// Panel user endpoints
	servers := router.Group("/api/servers")
	servers.Use(middleware.PanelAuth(cfg.TokenSecret, users))
	servers.Use(middleware.RateLimitMiddleware(middleware.ExpensiveRateLimiter))
	{
		servers.POST("/:uuidShort/power/:action", powerHandler.Power)
	}

	// Admin endpoints
	admin := router.Group("/api/admin")
	admin.Use(middleware.PanelAuth(cfg.TokenSecret, users))
	admin.Use(middleware.RequireAdmin())
	admin.Use(middleware.RateLimitMiddleware(middleware.ExpensiveRateLimiter))
	{
		admin.POST("/servers/:id/transfer", adminTransferHandler.Initiate)
		admin.GET("/servers/:id/transfer", adminTransferHandler.Status)
		admin.DELETE("/servers/:id/transfer", adminTransferHandler.Cancel)

		admin.GET("/nodes", adminNodeHandler.List)
		admin.GET("/nodes/:id/health", adminNodeHandler.Health)
	}

	return router
}
