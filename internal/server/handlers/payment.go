package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/application/paymentservice"
	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/repositories/paymentrepo"
	"github.com/marketpi/wps/pkg/currency"
)

type PaymentHandler struct {
	paymentMgr  *paymentservice.Manager
	paymentRepo paymentrepo.IPaymentRepository
	currency    *currency.CurrencyUtils
	logger      zerolog.Logger
}

func NewPaymentHandler(paymentMgr *paymentservice.Manager, paymentRepo paymentrepo.IPaymentRepository, logger zerolog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentMgr:  paymentMgr,
		paymentRepo: paymentRepo,
		currency:    currency.NewCurrencyUtils(),
		logger:      logger,
	}
}

type rechargeRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

type orderPaymentRequest struct {
	OrderID string  `json:"order_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"required"`
	OrderNo string  `json:"order_no" binding:"required"`
}

type depositRequest struct {
	Amount float64 `json:"amount" binding:"required"`
}

// Recharge starts a balance top-up payment and blocks until the wallet
// flow settles.
func (h *PaymentHandler) Recharge(c *gin.Context) {
	var req rechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.currency.ValidAmount(req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	coordinator, err := h.paymentMgr.CoordinatorFor(c.GetString("user_uid"))
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}

	result, err := coordinator.Recharge(c.Request.Context(), req.Amount)
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "result": result})
}

// PayOrder pays for an existing order.
func (h *PaymentHandler) PayOrder(c *gin.Context) {
	var req orderPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.currency.ValidAmount(req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	coordinator, err := h.paymentMgr.CoordinatorFor(c.GetString("user_uid"))
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}

	result, err := coordinator.PayOrder(c.Request.Context(), req.OrderID, req.Amount, req.OrderNo)
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "result": result})
}

// PayDeposit funds the trading deposit.
func (h *PaymentHandler) PayDeposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !h.currency.ValidAmount(req.Amount) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	coordinator, err := h.paymentMgr.CoordinatorFor(c.GetString("user_uid"))
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}

	result, err := coordinator.PayDeposit(c.Request.Context(), req.Amount)
	if err != nil {
		h.renderPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "completed", "result": result})
}

// GetState returns the observable loading/error snapshot.
func (h *PaymentHandler) GetState(c *gin.Context) {
	coordinator, err := h.paymentMgr.CoordinatorFor(c.GetString("user_uid"))
	if err != nil {
		// No wallet connection means nothing is loading.
		c.JSON(http.StatusOK, domain.PaymentState{})
		return
	}

	c.JSON(http.StatusOK, coordinator.State())
}

// ListPayments returns the user's local payment records.
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := h.paymentRepo.ListByUser(c.Request.Context(), c.GetString("user_uid"), limit, offset)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list payments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"payments": records, "count": len(records)})
}

// GetPayment returns one local payment record.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("payment_id")

	record, err := h.paymentRepo.GetByPaymentID(c.Request.Context(), paymentID)
	if err != nil {
		h.logger.Error().Err(err).Str("payment_id", paymentID).Msg("Failed to get payment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get payment"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}
	if record.UserUID != c.GetString("user_uid") {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *PaymentHandler) renderPaymentError(c *gin.Context, err error) {
	var completionErr *domain.CompletionError
	var walletErr *domain.WalletError

	switch {
	case errors.Is(err, domain.ErrUserCancelled):
		c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
	case errors.Is(err, domain.ErrWalletUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPaymentInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrPaymentTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrAuthenticationFailed):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.As(err, &completionErr), errors.As(err, &walletErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
