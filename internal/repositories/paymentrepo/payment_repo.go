package paymentrepo

import (
	"context"

	"github.com/marketpi/wps/internal/domain"
)

// IPaymentRepository stores the service's local payment records. Writes
// are best-effort from the coordinator's point of view: callers log
// failures and move on.
type IPaymentRepository interface {
	Create(ctx context.Context, record *domain.PaymentRecord) error
	UpdateStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, txid string) error
	GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error)
	ListByUser(ctx context.Context, userUID string, limit, offset int) ([]domain.PaymentRecord, error)
}
