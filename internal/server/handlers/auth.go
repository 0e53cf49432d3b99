package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	authservice "github.com/marketpi/wps/internal/application/auth"
	"github.com/marketpi/wps/internal/application/paymentservice"
	"github.com/marketpi/wps/internal/domain"
)

type AuthHandler struct {
	paymentMgr *paymentservice.Manager
	authSvc    authservice.IAuthService
	logger     zerolog.Logger
}

func NewAuthHandler(paymentMgr *paymentservice.Manager, authSvc authservice.IAuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		paymentMgr: paymentMgr,
		authSvc:    authSvc,
		logger:     logger,
	}
}

type tokenRequest struct {
	UserUID string `json:"user_uid" binding:"required"`
}

// IssueToken authenticates the user through their connected wallet
// bridge and exchanges the wallet identity for a service JWT.
// Incomplete payments from earlier sessions are recovered as a side
// effect of the wallet authentication.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coordinator, err := h.paymentMgr.CoordinatorFor(req.UserUID)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	auth, err := coordinator.Authenticate(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Str("user_uid", req.UserUID).Msg("Wallet authentication failed")
		status := http.StatusUnauthorized
		if errors.Is(err, domain.ErrWalletUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	token, err := h.authSvc.IssueToken(c.Request.Context(), auth.User)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "user": auth.User})
}
