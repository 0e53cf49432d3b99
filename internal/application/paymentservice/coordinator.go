package paymentservice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/domain/interfaces"
	"github.com/marketpi/wps/internal/repositories/paymentrepo"
	"github.com/marketpi/wps/pkg/config"
	"github.com/marketpi/wps/pkg/currency"
)

// Coordinator owns the payment lifecycle for one wallet account. It
// holds at most one pending payment session at a time; a second
// CreatePayment while one is pending fails with ErrPaymentInFlight.
type Coordinator struct {
	userUID     string
	wallet      interfaces.WalletCapability
	settlement  interfaces.SettlementClient
	paymentRepo paymentrepo.IPaymentRepository
	notifier    interfaces.StatusNotifier
	cfg         config.PaymentConfig
	logger      zerolog.Logger
	state       *observableState
	currency    *currency.CurrencyUtils

	mu      sync.Mutex
	current *paymentSession
}

func NewCoordinator(
	userUID string,
	wallet interfaces.WalletCapability,
	settlement interfaces.SettlementClient,
	paymentRepo paymentrepo.IPaymentRepository,
	notifier interfaces.StatusNotifier,
	cfg config.PaymentConfig,
	logger zerolog.Logger,
) *Coordinator {
	return &Coordinator{
		userUID:     userUID,
		wallet:      wallet,
		settlement:  settlement,
		paymentRepo: paymentRepo,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger.With().Str("user_uid", userUID).Logger(),
		state:       newObservableState(userUID, notifier),
		currency:    currency.NewCurrencyUtils(),
	}
}

// State returns the current observable loading/error snapshot.
func (c *Coordinator) State() domain.PaymentState {
	return c.state.snapshot()
}

// Authenticate runs wallet authentication with the payments scope,
// supplying incomplete-payment recovery as the out-of-band callback.
func (c *Coordinator) Authenticate(ctx context.Context) (*domain.AuthResult, error) {
	if c.wallet == nil || !c.wallet.Available() {
		return nil, domain.ErrWalletUnavailable
	}

	authCtx, cancel := context.WithTimeout(ctx, c.cfg.AuthTimeout)
	defer cancel()

	auth, err := c.wallet.Authenticate(authCtx, c.cfg.Scopes, c.RecoverIncompletePayment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrAuthenticationFailed, err)
	}

	return auth, nil
}

// CreatePayment drives one payment through the wallet and blocks until
// the session settles: completion success, completion failure, user
// cancel, wallet error, or inactivity timeout. Approval failures do not
// settle; they surface through the observable error state only.
func (c *Coordinator) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (*domain.SettlementResult, error) {
	if c.wallet == nil || !c.wallet.Available() {
		return nil, domain.ErrWalletUnavailable
	}

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil, domain.ErrPaymentInFlight
	}
	c.mu.Unlock()

	c.state.setLoading(true)

	auth, err := c.Authenticate(ctx)
	if err != nil {
		c.state.setError(err.Error())
		c.state.setLoading(false)
		return nil, err
	}
	req.UserUID = auth.User.UID

	sess := newPaymentSession(req)

	c.mu.Lock()
	if c.current != nil {
		c.mu.Unlock()
		return nil, domain.ErrPaymentInFlight
	}
	c.current = sess
	c.mu.Unlock()

	sess.armTimeout(c.cfg.InactivityTimeout, func() {
		c.logger.Warn().
			Str("session_id", sess.id).
			Str("payment_id", sess.walletPaymentID()).
			Msg("Payment timed out with no wallet activity")
		c.finish(sess, nil, domain.ErrPaymentTimeout)
	})

	data := domain.PaymentData{
		Amount:   req.Amount,
		Memo:     req.Memo,
		Metadata: paymentMetadata(req),
	}

	c.logger.Info().
		Str("session_id", sess.id).
		Str("type", string(req.Type)).
		Float64("amount", req.Amount).
		Msg("Creating wallet payment")

	bridge := &callbackBridge{coordinator: c, session: sess}
	if err := c.wallet.CreatePayment(ctx, data, bridge); err != nil {
		werr := &domain.WalletError{Err: err}
		c.state.setError(werr.Error())
		c.finish(sess, nil, werr)
		return nil, werr
	}

	select {
	case <-sess.done:
		return sess.outcome()
	case <-ctx.Done():
		// The caller is gone but the wallet flow is not cancellable from
		// this side; the bridge or the inactivity timer settles the
		// session in the background.
		c.logger.Warn().
			Str("session_id", sess.id).
			Msg("Caller context done while payment still pending")
		return nil, ctx.Err()
	}
}

// Recharge tops up the user's marketplace balance.
func (c *Coordinator) Recharge(ctx context.Context, amount float64) (*domain.SettlementResult, error) {
	return c.CreatePayment(ctx, domain.CreatePaymentRequest{
		Amount: amount,
		Type:   domain.PaymentTypeRecharge,
		Memo:   c.currency.FormatMemo("Recharge", amount),
	})
}

// PayOrder pays for an existing order; the order number rides in the
// memo shown by the wallet UI.
func (c *Coordinator) PayOrder(ctx context.Context, orderID string, amount float64, orderNo string) (*domain.SettlementResult, error) {
	return c.CreatePayment(ctx, domain.CreatePaymentRequest{
		Amount:  amount,
		Type:    domain.PaymentTypeOrder,
		Memo:    fmt.Sprintf("Order %s", orderNo),
		OrderID: orderID,
	})
}

// PayDeposit funds the escrow deposit required for trading.
func (c *Coordinator) PayDeposit(ctx context.Context, amount float64) (*domain.SettlementResult, error) {
	return c.CreatePayment(ctx, domain.CreatePaymentRequest{
		Amount: amount,
		Type:   domain.PaymentTypeDeposit,
		Memo:   c.currency.FormatMemo("Deposit", amount),
	})
}

// finish settles the session exactly once, releases the single-session
// holder and pushes the terminal update. Safe to call from any handler;
// later calls for the same session are no-ops.
func (c *Coordinator) finish(sess *paymentSession, result *domain.SettlementResult, err error) {
	if !sess.settle(result, err) {
		return
	}

	c.mu.Lock()
	if c.current == sess {
		c.current = nil
	}
	c.mu.Unlock()

	c.state.setLoading(false)

	update := domain.PaymentUpdate{
		Type:      "payment_settled",
		UserUID:   c.userUID,
		PaymentID: sess.walletPaymentID(),
		Result:    result,
		Timestamp: time.Now(),
	}
	if err != nil {
		update.Error = err.Error()
	}
	if c.notifier != nil {
		c.notifier.PublishUpdate(update)
	}
}

// paymentMetadata merges caller metadata with the reconciliation keys
// the backend reads off the wallet payment later.
func paymentMetadata(req domain.CreatePaymentRequest) map[string]string {
	metadata := make(map[string]string, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["type"] = string(req.Type)
	if req.OrderID != "" {
		metadata["orderId"] = req.OrderID
	}
	return metadata
}
