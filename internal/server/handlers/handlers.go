package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	authservice "github.com/marketpi/wps/internal/application/auth"
	"github.com/marketpi/wps/internal/application/paymentservice"
	"github.com/marketpi/wps/internal/repositories/paymentrepo"
	"github.com/marketpi/wps/internal/server/middleware"
	"github.com/marketpi/wps/internal/server/websocket"
	"github.com/marketpi/wps/pkg/config"
)

type Handlers struct {
	PaymentMgr  *paymentservice.Manager
	AuthSvc     authservice.IAuthService
	PaymentRepo paymentrepo.IPaymentRepository
	StatusHub   *websocket.StatusHub
	Logger      zerolog.Logger
	Config      *config.Config
}

func New(
	paymentMgr *paymentservice.Manager,
	authSvc authservice.IAuthService,
	paymentRepo paymentrepo.IPaymentRepository,
	statusHub *websocket.StatusHub,
	logger zerolog.Logger,
	config *config.Config,
) *Handlers {
	return &Handlers{
		PaymentMgr:  paymentMgr,
		AuthSvc:     authSvc,
		PaymentRepo: paymentRepo,
		StatusHub:   statusHub,
		Logger:      logger,
		Config:      config,
	}
}

func (h *Handlers) SetupHandlers(router *gin.Engine) {
	mw := middleware.NewMiddleware(h.AuthSvc, h.Logger)
	mw.SetupMiddleware(router)

	paymentHandler := NewPaymentHandler(h.PaymentMgr, h.PaymentRepo, h.Logger)
	authHandler := NewAuthHandler(h.PaymentMgr, h.AuthSvc, h.Logger)
	wsHandler := NewWebSocketHandler(h.PaymentMgr, h.StatusHub, h.Config.WebSocket, h.Logger)
	healthHandler := NewHealthHandler()

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// The wallet host connects here before any token exists.
	router.GET("/ws/wallet", wsHandler.HandleWalletConnection)
	router.GET("/ws/status", mw.AuthMiddleware(), wsHandler.HandleStatusConnection)

	v1 := router.Group("/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/token", authHandler.IssueToken)
		}

		payments := v1.Group("/payments", mw.AuthMiddleware())
		{
			payments.POST("/recharge", paymentHandler.Recharge)
			payments.POST("/order", paymentHandler.PayOrder)
			payments.POST("/deposit", paymentHandler.PayDeposit)
			payments.GET("/state", paymentHandler.GetState)
			payments.GET("/", paymentHandler.ListPayments)
			payments.GET("/:payment_id", paymentHandler.GetPayment)
		}
	}
}
