package domain

import (
	"errors"
	"fmt"
)

// Only four outcomes ever settle a payment session: completion success,
// completion failure, user cancel, and wallet error. Approval failures
// and best-effort failures are reported through the observable error
// state instead, so the wallet flow can still be retried by the user.
var (
	// ErrWalletUnavailable means the user has no live wallet capability;
	// fatal, surfaced before any session is created.
	ErrWalletUnavailable = errors.New("wallet capability unavailable")

	// ErrAuthenticationFailed wraps a wallet authentication rejection.
	ErrAuthenticationFailed = errors.New("wallet authentication failed")

	// ErrPaymentInFlight is returned when a payment is requested while
	// another session is still pending for the same coordinator.
	ErrPaymentInFlight = errors.New("another payment is already in flight")

	// ErrUserCancelled means the user cancelled inside the wallet UI.
	// Callers match on it to skip error toasts.
	ErrUserCancelled = errors.New("payment cancelled by user")

	// ErrPaymentTimeout is raised when no wallet callback arrives within
	// the configured inactivity window.
	ErrPaymentTimeout = errors.New("payment timed out waiting for wallet activity")
)

// WalletError wraps any other wallet-reported failure; it rejects the
// session.
type WalletError struct {
	Err error
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("wallet error: %v", e.Err)
}

func (e *WalletError) Unwrap() error { return e.Err }

// CompletionError is the most serious failure class: the transaction may
// have moved funds on-chain without the backend recognizing it. It is
// flagged for manual reconciliation, never silently retried.
type CompletionError struct {
	PaymentID string
	TxID      string
	Err       error
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("server completion failed for payment %s (txid %s): %v", e.PaymentID, e.TxID, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }
