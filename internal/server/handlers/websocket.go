package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/application/paymentservice"
	"github.com/marketpi/wps/internal/infrastructure/wallet"
	ws "github.com/marketpi/wps/internal/server/websocket"
	"github.com/marketpi/wps/pkg/config"
)

type WebSocketHandler struct {
	paymentMgr *paymentservice.Manager
	statusHub  *ws.StatusHub
	upgrader   websocket.Upgrader
	wsConfig   config.WebSocketConfig
	logger     zerolog.Logger
}

func NewWebSocketHandler(paymentMgr *paymentservice.Manager, statusHub *ws.StatusHub, wsConfig config.WebSocketConfig, logger zerolog.Logger) *WebSocketHandler {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsConfig.ReadBufferSize,
		WriteBufferSize: wsConfig.WriteBufferSize,
	}
	// With check_origin enabled the upgrader's nil CheckOrigin applies
	// gorilla's same-origin policy; disabled means accept any origin.
	if !wsConfig.CheckOrigin {
		upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}

	return &WebSocketHandler{
		paymentMgr: paymentMgr,
		statusHub:  statusHub,
		upgrader:   upgrader,
		wsConfig:   wsConfig,
		logger:     logger,
	}
}

// HandleWalletConnection upgrades the wallet host connection and binds
// it to the user as their wallet capability for as long as it lives.
func (h *WebSocketHandler) HandleWalletConnection(c *gin.Context) {
	userUID := c.Query("uid")
	if userUID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "uid query parameter required"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("user_uid", userUID).Msg("Failed to upgrade wallet connection")
		return
	}

	bridge := wallet.NewHostBridge(userUID, conn, h.wsConfig, h.logger)
	h.paymentMgr.Attach(userUID, bridge)

	<-bridge.Done()
	h.paymentMgr.Detach(userUID, bridge)
}

// HandleStatusConnection upgrades a UI connection and registers it for
// payment status pushes. Runs behind the auth middleware.
func (h *WebSocketHandler) HandleStatusConnection(c *gin.Context) {
	userUID := c.GetString("user_uid")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("user_uid", userUID).Msg("Failed to upgrade status connection")
		return
	}

	client := &ws.StatusClient{UserUID: userUID, Conn: conn}
	h.statusHub.Register <- client

	defer func() {
		h.statusHub.Unregister <- client
	}()

	// Status connections are push-only; the read loop just detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
