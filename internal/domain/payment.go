package domain

import (
	"encoding/json"
	"time"
)

// PaymentType represents the business intent behind a payment.
type PaymentType string

const (
	PaymentTypeRecharge PaymentType = "recharge"
	PaymentTypeOrder    PaymentType = "order"
	PaymentTypeDeposit  PaymentType = "deposit"
)

// PaymentStatus represents the lifecycle status of a local payment record.
type PaymentStatus string

const (
	PaymentStatusInitiated PaymentStatus = "initiated"
	PaymentStatusApproved  PaymentStatus = "approved"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// CreatePaymentRequest carries everything needed to start one payment
// attempt through the coordinator.
type CreatePaymentRequest struct {
	UserUID  string            `json:"user_uid"`
	Amount   float64           `json:"amount" binding:"required"`
	Type     PaymentType       `json:"type" binding:"required"`
	Memo     string            `json:"memo"`
	Metadata map[string]string `json:"metadata,omitempty"`
	OrderID  string            `json:"order_id,omitempty"`
}

// SettlementResult is what the settlement backend returns once a payment
// is completed and business effects (balance credit, order paid) applied.
type SettlementResult struct {
	PaymentID string  `json:"payment_id"`
	TxID      string  `json:"txid"`
	Status    string  `json:"status"`
	Balance   float64 `json:"balance"`
	Message   string  `json:"message,omitempty"`
}

// PaymentRecord is the service's bookkeeping row for one payment
// attempt. Creation is best-effort: a failed insert never affects the
// wallet flow.
type PaymentRecord struct {
	ID        string          `json:"id" db:"id"`
	PaymentID string          `json:"payment_id" db:"payment_id"`
	UserUID   string          `json:"user_uid" db:"user_uid"`
	Type      PaymentType     `json:"type" db:"type"`
	Amount    float64         `json:"amount" db:"amount"`
	Memo      string          `json:"memo" db:"memo"`
	OrderID   *string         `json:"order_id,omitempty" db:"order_id"`
	TxID      *string         `json:"txid,omitempty" db:"txid"`
	Status    PaymentStatus   `json:"status" db:"status"`
	Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// PaymentState is the observable loading/error state the UI consumes.
type PaymentState struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// PaymentUpdate is pushed to the user's status connections at session
// transition points.
type PaymentUpdate struct {
	Type      string            `json:"type"`
	UserUID   string            `json:"user_uid"`
	PaymentID string            `json:"payment_id,omitempty"`
	State     *PaymentState     `json:"state,omitempty"`
	Result    *SettlementResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
