package paymentservice

import (
	"context"

	"github.com/marketpi/wps/internal/domain"
)

// RecoverIncompletePayment finishes settlement of a payment the wallet
// reports as left unresolved by a previous session (app crash,
// navigation away, network loss). It runs as a side effect of
// authentication, so every branch is best-effort: failures are logged
// and never block the new payment attempt. It settles an earlier
// session known only to the wallet and never touches the coordinator's
// current holder.
func (c *Coordinator) RecoverIncompletePayment(payment domain.WalletPayment) {
	logger := c.logger.With().
		Str("payment_id", payment.Identifier).
		Logger()

	if payment.Status.Cancelled || payment.Status.UserCancelled {
		logger.Info().Msg("Incomplete payment already cancelled, nothing to recover")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.SettleTimeout)
	defer cancel()

	switch {
	case payment.Status.DeveloperApproved && payment.Transaction != nil && payment.Transaction.TxID != "":
		// Broadcast happened but completion was never confirmed.
		txid := payment.Transaction.TxID
		if _, err := c.settlement.Complete(ctx, payment.Identifier, txid); err != nil {
			logger.Warn().Err(err).Str("txid", txid).Msg("Failed to complete incomplete payment")
			return
		}
		logger.Info().Str("txid", txid).Msg("Recovered incomplete payment via completion")
		if c.paymentRepo != nil {
			if err := c.paymentRepo.UpdateStatus(ctx, payment.Identifier, domain.PaymentStatusCompleted, txid); err != nil {
				logger.Warn().Err(err).Msg("Failed to update recovered payment record")
			}
		}

	case !payment.Status.DeveloperApproved:
		// Created but never server-approved.
		if err := c.settlement.Approve(ctx, payment.Identifier); err != nil {
			logger.Warn().Err(err).Msg("Failed to approve incomplete payment")
			return
		}
		logger.Info().Msg("Recovered incomplete payment via approval")

	default:
		// Approved but not yet broadcast; the wallet re-drives it.
		logger.Info().Msg("Incomplete payment awaiting wallet transaction, no recovery action")
	}
}
