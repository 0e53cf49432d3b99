package paymentservice

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/domain/interfaces"
	"github.com/marketpi/wps/internal/repositories/paymentrepo"
	"github.com/marketpi/wps/pkg/config"
)

// Manager keeps one Coordinator per connected wallet account. A
// coordinator lives as long as its wallet bridge connection; when the
// wallet reconnects, a fresh coordinator replaces the old one and
// incomplete-payment recovery picks up anything the old session left
// behind.
type Manager struct {
	settlement  interfaces.SettlementClient
	paymentRepo paymentrepo.IPaymentRepository
	notifier    interfaces.StatusNotifier
	cfg         config.PaymentConfig
	logger      zerolog.Logger

	mu           sync.Mutex
	coordinators map[string]*Coordinator
}

func NewManager(
	settlement interfaces.SettlementClient,
	paymentRepo paymentrepo.IPaymentRepository,
	notifier interfaces.StatusNotifier,
	cfg config.PaymentConfig,
	logger zerolog.Logger,
) *Manager {
	return &Manager{
		settlement:   settlement,
		paymentRepo:  paymentRepo,
		notifier:     notifier,
		cfg:          cfg,
		logger:       logger,
		coordinators: make(map[string]*Coordinator),
	}
}

// Attach binds a wallet capability to the user, replacing any previous
// coordinator for the same account.
func (m *Manager) Attach(userUID string, wallet interfaces.WalletCapability) *Coordinator {
	coordinator := NewCoordinator(userUID, wallet, m.settlement, m.paymentRepo, m.notifier, m.cfg, m.logger)

	m.mu.Lock()
	m.coordinators[userUID] = coordinator
	m.mu.Unlock()

	m.logger.Info().Str("user_uid", userUID).Msg("Wallet capability attached")
	return coordinator
}

// Detach removes the user's coordinator if it is still bound to the
// given wallet; a newer attachment is left alone.
func (m *Manager) Detach(userUID string, wallet interfaces.WalletCapability) {
	m.mu.Lock()
	coordinator, ok := m.coordinators[userUID]
	removed := ok && coordinator.wallet == wallet
	if removed {
		delete(m.coordinators, userUID)
	}
	m.mu.Unlock()

	if removed {
		m.logger.Info().Str("user_uid", userUID).Msg("Wallet capability detached")
	}
}

// CoordinatorFor returns the user's coordinator, or ErrWalletUnavailable
// when no wallet bridge is connected for the account.
func (m *Manager) CoordinatorFor(userUID string) (*Coordinator, error) {
	m.mu.Lock()
	coordinator, ok := m.coordinators[userUID]
	m.mu.Unlock()

	if !ok || coordinator.wallet == nil || !coordinator.wallet.Available() {
		return nil, domain.ErrWalletUnavailable
	}
	return coordinator, nil
}
