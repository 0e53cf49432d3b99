package paymentservice

import (
	"context"
	"encoding/json"

	"github.com/marketpi/wps/internal/domain"
)

// callbackBridge receives the four wallet callbacks for one session.
// The wallet host enforces a responsiveness timeout on the approval and
// completion callbacks, so each handler returns immediately and fires
// the settlement round trip on its own goroutine. Outcomes reach the
// blocked caller only through Coordinator.finish, which settles the
// session at most once.
type callbackBridge struct {
	coordinator *Coordinator
	session     *paymentSession
}

// OnReadyForServerApproval fires once the wallet has created the
// payment and needs server approval before broadcasting.
func (b *callbackBridge) OnReadyForServerApproval(paymentID string) {
	c := b.coordinator
	b.session.touch(c.cfg.InactivityTimeout)
	b.session.notePaymentID(paymentID)

	c.logger.Info().
		Str("session_id", b.session.id).
		Str("payment_id", paymentID).
		Msg("Payment ready for server approval")

	go b.approve(paymentID)
}

func (b *callbackBridge) approve(paymentID string) {
	c := b.coordinator
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SettleTimeout)
	defer cancel()

	if err := c.settlement.Approve(ctx, paymentID); err != nil {
		// The wallet may retry or the user may cancel; approval failure
		// surfaces through the error state but never settles the session.
		c.logger.Error().Err(err).
			Str("payment_id", paymentID).
			Msg("Server approval failed")
		c.state.setError("server approval failed")
		return
	}

	c.logger.Info().Str("payment_id", paymentID).Msg("Payment approved")
	b.createLocalRecord(ctx, paymentID)
}

// createLocalRecord writes the bookkeeping row. Best-effort: a failure
// is logged and swallowed.
func (b *callbackBridge) createLocalRecord(ctx context.Context, paymentID string) {
	c := b.coordinator
	if c.paymentRepo == nil {
		return
	}

	req := b.session.request
	record := &domain.PaymentRecord{
		PaymentID: paymentID,
		UserUID:   req.UserUID,
		Type:      req.Type,
		Amount:    req.Amount,
		Memo:      req.Memo,
		Status:    domain.PaymentStatusApproved,
	}
	if req.OrderID != "" {
		orderID := req.OrderID
		record.OrderID = &orderID
	}
	if len(req.Metadata) > 0 {
		if metadata, err := json.Marshal(req.Metadata); err == nil {
			record.Metadata = metadata
		}
	}

	if err := c.paymentRepo.Create(ctx, record); err != nil {
		c.logger.Warn().Err(err).
			Str("payment_id", paymentID).
			Msg("Failed to create local payment record")
	}
}

// OnReadyForServerCompletion fires after the user authorized the
// transaction on-chain; the server must confirm completion.
func (b *callbackBridge) OnReadyForServerCompletion(paymentID, txid string) {
	c := b.coordinator
	b.session.touch(c.cfg.InactivityTimeout)
	b.session.notePaymentID(paymentID)

	c.logger.Info().
		Str("session_id", b.session.id).
		Str("payment_id", paymentID).
		Str("txid", txid).
		Msg("Payment ready for server completion")

	go b.complete(paymentID, txid)
}

func (b *callbackBridge) complete(paymentID, txid string) {
	c := b.coordinator
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SettleTimeout)
	defer cancel()

	result, err := c.settlement.Complete(ctx, paymentID, txid)
	if err != nil {
		// Funds may already have moved on-chain; flag loudly and reject.
		cerr := &domain.CompletionError{PaymentID: paymentID, TxID: txid, Err: err}
		c.logger.Error().Err(err).
			Str("payment_id", paymentID).
			Str("txid", txid).
			Msg("Server completion failed, payment needs manual reconciliation")
		c.state.setError(cerr.Error())
		c.finish(b.session, nil, cerr)
		b.updateLocalRecord(paymentID, domain.PaymentStatusFailed, txid)
		return
	}

	c.logger.Info().
		Str("payment_id", paymentID).
		Str("txid", txid).
		Msg("Payment completed")
	c.finish(b.session, result, nil)
	b.updateLocalRecord(paymentID, domain.PaymentStatusCompleted, txid)
}

// OnCancel fires when the user cancels inside the wallet UI. Loading
// and error state clear synchronously; the backend cancel is
// fire-and-forget.
func (b *callbackBridge) OnCancel(paymentID string) {
	c := b.coordinator
	b.session.notePaymentID(paymentID)
	c.state.clear()

	c.logger.Info().
		Str("session_id", b.session.id).
		Str("payment_id", paymentID).
		Msg("Payment cancelled by user")

	c.finish(b.session, nil, domain.ErrUserCancelled)
	go b.cancel(paymentID)
}

func (b *callbackBridge) cancel(paymentID string) {
	c := b.coordinator
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SettleTimeout)
	defer cancel()

	if err := c.settlement.Cancel(ctx, paymentID); err != nil {
		c.logger.Warn().Err(err).
			Str("payment_id", paymentID).
			Msg("Best-effort payment cancel failed")
	}
	b.updateLocalRecord(paymentID, domain.PaymentStatusCancelled, "")
}

// OnError fires on any wallet-level failure; it rejects the session
// with the wallet error.
func (b *callbackBridge) OnError(err error, payment *domain.WalletPayment) {
	c := b.coordinator
	if payment != nil {
		b.session.notePaymentID(payment.Identifier)
	}

	werr := &domain.WalletError{Err: err}
	c.logger.Error().Err(err).
		Str("session_id", b.session.id).
		Str("payment_id", b.session.walletPaymentID()).
		Msg("Wallet reported payment error")
	c.state.setError(werr.Error())
	c.finish(b.session, nil, werr)

	if paymentID := b.session.walletPaymentID(); paymentID != "" {
		go b.updateLocalRecord(paymentID, domain.PaymentStatusFailed, "")
	}
}

// updateLocalRecord is best-effort bookkeeping, never surfaced.
func (b *callbackBridge) updateLocalRecord(paymentID string, status domain.PaymentStatus, txid string) {
	c := b.coordinator
	if c.paymentRepo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SettleTimeout)
	defer cancel()

	if err := c.paymentRepo.UpdateStatus(ctx, paymentID, status, txid); err != nil {
		c.logger.Warn().Err(err).
			Str("payment_id", paymentID).
			Str("status", string(status)).
			Msg("Failed to update local payment record")
	}
}
