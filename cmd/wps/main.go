package main

import (
	authservice "github.com/marketpi/wps/internal/application/auth"
	"github.com/marketpi/wps/internal/application/paymentservice"
	"github.com/marketpi/wps/internal/infrastructure/database"
	"github.com/marketpi/wps/internal/infrastructure/http/clients"
	"github.com/marketpi/wps/internal/repositories/paymentrepo"
	"github.com/marketpi/wps/internal/server"
	"github.com/marketpi/wps/internal/server/websocket"
	"github.com/marketpi/wps/pkg/config"
	"github.com/marketpi/wps/pkg/logger"
)

func main() {
	logger := logger.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.ShutDown()

	paymentRepo := paymentrepo.New(db, logger)
	settlementClient := clients.NewSettlementClient(cfg.Settlement, logger)

	statusHub := websocket.NewStatusHub(logger)
	go statusHub.Run()

	authSvc := authservice.New(cfg, logger)
	paymentMgr := paymentservice.NewManager(
		settlementClient,
		paymentRepo,
		statusHub,
		cfg.Payment,
		logger,
	)

	srv := server.New(cfg, paymentMgr, authSvc, paymentRepo, statusHub, logger)
	srv.Start()
}
