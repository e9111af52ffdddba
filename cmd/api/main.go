package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/perchhost/panel/internal/activity"
	"github.com/perchhost/panel/internal/api"
	"github.com/perchhost/panel/internal/events"
	"github.com/perchhost/panel/internal/models"
	"github.com/perchhost/panel/internal/power"
	"github.com/perchhost/panel/internal/repository"
	"github.com/perchhost/panel/internal/sftp"
	"github.com/perchhost/panel/internal/transfer"
	"github.com/perchhost/panel/internal/wings"
	"github.com/perchhost/panel/pkg/config"
	"github.com/perchhost/panel/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.NewLogger(logger.ParseLevel(cfg.LogLevel), os.Stdout, cfg.LogJSON)
	logger.SetDefault(appLogger)

	logger.Info("Starting application", map[string]interface{}{
		"app":   cfg.AppName,
		"debug": cfg.Debug,
		"port":  cfg.Port,
	})

	// Initialize database
	db, err := repository.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize database", err, nil)
	}
	logger.Info("Database initialized", nil)

	// Initialize repositories
	nodeRepo := repository.NewNodeRepository(db)
	serverRepo := repository.NewServerRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	backupRepo := repository.NewBackupRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	userRepo := repository.NewUserRepository(db)
	subuserRepo := repository.NewSubuserRepository(db)

	// Event bus
	bus := events.NewBus()
	bus.Subscribe(events.EventTransferFailed, func(e events.Event) {
		logger.Warn("Transfer failed", map[string]interface{}{
			"server_id": e.ServerID,
			"error":     e.Data["error"],
		})
	})

	// Agent client factories; each service sees only the slice of the
	// client it drives
	transferClients := func(node *models.Node) transfer.AgentClient {
		return wings.NewClient(node.Scheme, node.FQDN, node.DaemonPort, node.TokenID+"."+node.TokenSecret, cfg.AgentTimeout)
	}
	powerClients := func(node *models.Node) power.AgentClient {
		return wings.NewClient(node.Scheme, node.FQDN, node.DaemonPort, node.TokenID+"."+node.TokenSecret, cfg.AgentTimeout)
	}
	nodeAgents := func(node *models.Node) api.NodeAgent {
		return wings.NewClient(node.Scheme, node.FQDN, node.DaemonPort, node.TokenID+"."+node.TokenSecret, cfg.AgentTimeout)
	}

	// Initialize services
	coordinator := transfer.NewCoordinator(serverRepo, transferRepo, nodeRepo, backupRepo, transferClients, bus, cfg.BaseURL, cfg.TransferTokenExpiry)
	powerService := power.NewService(nodeRepo, subuserRepo, powerClients, bus)
	sftpAuth := sftp.NewAuthService(userRepo, serverRepo, subuserRepo, bus)
	activitySink := activity.NewSink(serverRepo, userRepo, activityRepo, bus)

	// Initialize handlers
	activityHandler := api.NewRemoteActivityHandler(activitySink)
	backupHandler := api.NewRemoteBackupHandler(backupRepo, serverRepo, bus, cfg)
	transferHandler := api.NewRemoteTransferHandler(serverRepo, coordinator)
	sftpHandler := api.NewRemoteSftpHandler(sftpAuth)
	serverHandler := api.NewRemoteServerHandler(serverRepo)
	powerHandler := api.NewPowerHandler(serverRepo, powerService)
	adminTransferHandler := api.NewAdminTransferHandler(serverRepo, transferRepo, coordinator)
	adminNodeHandler := api.NewAdminNodeHandler(nodeRepo, nodeAgents)
	prometheusHandler := api.NewPrometheusHandler()

	// Setup router
	router := api.SetupRouter(
		activityHandler,
		backupHandler,
		transferHandler,
		sftpHandler,
		serverHandler,
		powerHandler,
		adminTransferHandler,
		adminNodeHandler,
		prometheusHandler,
		nodeRepo,
		userRepo,
		db,
		cfg,
	)

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down gracefully...", nil)
		logger.Info("Shutdown complete", nil)
		os.Exit(0)
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("Server starting", map[string]interface{}{
		"address":      addr,
		"health_check": fmt.Sprintf("http://localhost%s/health", addr),
	})

	if err := router.Run(addr); err != nil {
		logger.Fatal("Failed to start server", err, nil)
	}
}
