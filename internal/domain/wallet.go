package domain

// WalletUser identifies the authenticated wallet account.
type WalletUser struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
}

// AuthResult is returned by the wallet after a successful authenticate
// call with the payments scope.
type AuthResult struct {
	AccessToken string     `json:"access_token"`
	User        WalletUser `json:"user"`
}

// PaymentData is what the coordinator hands to the wallet to create a
// payment. Metadata carries type and order id for later reconciliation.
type PaymentData struct {
	Amount   float64           `json:"amount"`
	Memo     string            `json:"memo"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// WalletPaymentStatus is the wallet-owned flag set describing how far a
// payment got. The flags are independent; recovery branches on them.
type WalletPaymentStatus struct {
	DeveloperApproved   bool `json:"developer_approved"`
	TransactionVerified bool `json:"transaction_verified"`
	DeveloperCompleted  bool `json:"developer_completed"`
	Cancelled           bool `json:"cancelled"`
	UserCancelled       bool `json:"user_cancelled"`
}

// WalletTransaction is present once the payment was broadcast on-chain.
type WalletTransaction struct {
	TxID     string `json:"txid"`
	Verified bool   `json:"verified"`
	Link     string `json:"_link,omitempty"`
}

// WalletPayment is the wallet's record of a payment, surfaced through
// callbacks and through incomplete-payment recovery at authentication.
type WalletPayment struct {
	Identifier  string              `json:"identifier"`
	UserUID     string              `json:"user_uid"`
	Amount      float64             `json:"amount"`
	Memo        string              `json:"memo"`
	Metadata    map[string]string   `json:"metadata,omitempty"`
	Status      WalletPaymentStatus `json:"status"`
	Transaction *WalletTransaction  `json:"transaction,omitempty"`
}
