package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	authservice "github.com/marketpi/wps/internal/application/auth"
	"github.com/marketpi/wps/internal/application/paymentservice"
	"github.com/marketpi/wps/internal/repositories/paymentrepo"
	"github.com/marketpi/wps/internal/server/handlers"
	"github.com/marketpi/wps/internal/server/websocket"
	"github.com/marketpi/wps/pkg/config"
)

type Server struct {
	PaymentMgr  *paymentservice.Manager
	AuthSvc     authservice.IAuthService
	PaymentRepo paymentrepo.IPaymentRepository
	StatusHub   *websocket.StatusHub
	Cfg         *config.Config
	Logger      zerolog.Logger
	Router      *gin.Engine
	httpServer  *http.Server
}

func New(
	cfg *config.Config,
	paymentMgr *paymentservice.Manager,
	authSvc authservice.IAuthService,
	paymentRepo paymentrepo.IPaymentRepository,
	statusHub *websocket.StatusHub,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	return &Server{
		Cfg:         cfg,
		PaymentMgr:  paymentMgr,
		AuthSvc:     authSvc,
		PaymentRepo: paymentRepo,
		StatusHub:   statusHub,
		Logger:      logger,
		Router:      router,
	}
}

func (s *Server) SetupRouter() {
	handler := handlers.New(
		s.PaymentMgr,
		s.AuthSvc,
		s.PaymentRepo,
		s.StatusHub,
		s.Logger,
		s.Cfg,
	)
	handler.SetupHandlers(s.Router)
}

func (s *Server) Start() {
	s.SetupRouter()

	s.httpServer = &http.Server{
		Addr:        s.Cfg.Server.Host + ":" + s.Cfg.Server.Port,
		Handler:     s.Router,
		ReadTimeout: 20 * time.Second,
		// No write timeout: payment requests block until the wallet
		// flow settles, which can span minutes of user interaction.
		WriteTimeout: 0,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	s.Logger.Info().Msgf("Starting server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-stopChan
	s.Logger.Info().Msg("Shutdown signal received, shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.Logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	s.Logger.Info().Msg("Server exited gracefully")
}
