package authservice

import (
	"context"

	"github.com/marketpi/wps/internal/domain"
)

type IAuthService interface {
	// IssueToken mints a service JWT for a wallet-authenticated user.
	IssueToken(ctx context.Context, user domain.WalletUser) (string, error)
	// VerifyToken validates a service JWT and returns its claims.
	VerifyToken(ctx context.Context, tokenString string) (*domain.Claim, error)
}
