package interfaces

import (
	"context"

	"github.com/marketpi/wps/internal/domain"
)

// PaymentCallbacks is installed on the wallet when a payment is created.
// The wallet host enforces a responsiveness timeout on the approval and
// completion callbacks: implementations must return without waiting on
// any network work, firing settlement asynchronously instead.
type PaymentCallbacks interface {
	OnReadyForServerApproval(paymentID string)
	OnReadyForServerCompletion(paymentID, txid string)
	OnCancel(paymentID string)
	OnError(err error, payment *domain.WalletPayment)
}

// OnIncompletePayment is invoked during authentication when the wallet
// reports a payment left unresolved by a previous session.
type OnIncompletePayment func(payment domain.WalletPayment)

// WalletCapability is the third-party wallet surface the coordinator
// drives. Injected so a test double can stand in for the host wallet.
type WalletCapability interface {
	// Available reports whether the capability can currently reach the
	// host wallet.
	Available() bool

	// Authenticate requests the given scopes. The wallet may call
	// onIncomplete as a side effect before returning.
	Authenticate(ctx context.Context, scopes []string, onIncomplete OnIncompletePayment) (*domain.AuthResult, error)

	// CreatePayment starts the wallet payment flow. Results are
	// communicated only through the installed callbacks, never through
	// the return value; a non-nil error means the flow never started.
	CreatePayment(ctx context.Context, data domain.PaymentData, callbacks PaymentCallbacks) error
}

// SettlementClient is the marketplace backend surface for settling
// payments. The backend deduplicates by payment id, which the
// coordinator relies on when recovery and a new payment interleave.
type SettlementClient interface {
	Approve(ctx context.Context, paymentID string) error
	Complete(ctx context.Context, paymentID, txid string) (*domain.SettlementResult, error)
	Cancel(ctx context.Context, paymentID string) error
}

// StatusNotifier pushes observable payment state to the user's UI
// connections. Implementations must not block the caller.
type StatusNotifier interface {
	PublishState(userUID string, state domain.PaymentState)
	PublishUpdate(update domain.PaymentUpdate)
}
