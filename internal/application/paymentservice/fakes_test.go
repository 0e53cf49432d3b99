package paymentservice

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/domain/interfaces"
	"github.com/marketpi/wps/pkg/config"
)

// Fake wallet capability; callbacks installed by the coordinator are
// exposed so tests can play the wallet host.
type fakeWallet struct {
	mu           sync.Mutex
	available    bool
	authErr      error
	authResult   *domain.AuthResult
	createErr    error
	authCalls    int
	lastScopes   []string
	lastData     domain.PaymentData
	callbacks    interfaces.PaymentCallbacks
	onIncomplete interfaces.OnIncompletePayment
}

func newFakeWallet() *fakeWallet {
	return &fakeWallet{
		available: true,
		authResult: &domain.AuthResult{
			AccessToken: "token_1",
			User:        domain.WalletUser{UID: "user_1", Username: "alice"},
		},
	}
}

func (w *fakeWallet) Available() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.available
}

func (w *fakeWallet) Authenticate(ctx context.Context, scopes []string, onIncomplete interfaces.OnIncompletePayment) (*domain.AuthResult, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.authCalls++
	w.lastScopes = scopes
	w.onIncomplete = onIncomplete
	if w.authErr != nil {
		return nil, w.authErr
	}
	return w.authResult, nil
}

func (w *fakeWallet) CreatePayment(ctx context.Context, data domain.PaymentData, callbacks interfaces.PaymentCallbacks) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.createErr != nil {
		return w.createErr
	}
	w.lastData = data
	w.callbacks = callbacks
	return nil
}

func (w *fakeWallet) installedCallbacks() interfaces.PaymentCallbacks {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.callbacks
}

func (w *fakeWallet) authCallCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.authCalls
}

func (w *fakeWallet) paymentData() domain.PaymentData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastData
}

// Fake settlement client recording every call.
type fakeSettlement struct {
	mu           sync.Mutex
	approveFunc  func(ctx context.Context, paymentID string) error
	completeFunc func(ctx context.Context, paymentID, txid string) (*domain.SettlementResult, error)
	cancelFunc   func(ctx context.Context, paymentID string) error
	approved     []string
	completed    []string
	cancelled    []string
}

func (s *fakeSettlement) Approve(ctx context.Context, paymentID string) error {
	if s.approveFunc != nil {
		if err := s.approveFunc(ctx, paymentID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.approved = append(s.approved, paymentID)
	s.mu.Unlock()
	return nil
}

func (s *fakeSettlement) Complete(ctx context.Context, paymentID, txid string) (*domain.SettlementResult, error) {
	var result *domain.SettlementResult
	if s.completeFunc != nil {
		res, err := s.completeFunc(ctx, paymentID, txid)
		if err != nil {
			return nil, err
		}
		result = res
	} else {
		result = &domain.SettlementResult{PaymentID: paymentID, TxID: txid, Status: "completed"}
	}
	s.mu.Lock()
	s.completed = append(s.completed, paymentID)
	s.mu.Unlock()
	return result, nil
}

func (s *fakeSettlement) Cancel(ctx context.Context, paymentID string) error {
	if s.cancelFunc != nil {
		if err := s.cancelFunc(ctx, paymentID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.cancelled = append(s.cancelled, paymentID)
	s.mu.Unlock()
	return nil
}

func (s *fakeSettlement) approveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.approved)
}

func (s *fakeSettlement) completeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

func (s *fakeSettlement) cancelCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cancelled)
}

// Fake payment record store.
type fakeRepo struct {
	mu      sync.Mutex
	created []domain.PaymentRecord
	updated []string
}

func (r *fakeRepo) Create(ctx context.Context, record *domain.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *record)
	return nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, paymentID string, status domain.PaymentStatus, txid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, paymentID+":"+string(status))
	return nil
}

func (r *fakeRepo) GetByPaymentID(ctx context.Context, paymentID string) (*domain.PaymentRecord, error) {
	return nil, nil
}

func (r *fakeRepo) ListByUser(ctx context.Context, userUID string, limit, offset int) ([]domain.PaymentRecord, error) {
	return nil, nil
}

func (r *fakeRepo) createdCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.created)
}

// Fake notifier capturing published state transitions.
type fakeNotifier struct {
	mu      sync.Mutex
	states  []domain.PaymentState
	updates []domain.PaymentUpdate
}

func (n *fakeNotifier) PublishState(userUID string, state domain.PaymentState) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
}

func (n *fakeNotifier) PublishUpdate(update domain.PaymentUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
}

func (n *fakeNotifier) lastState() (domain.PaymentState, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.states) == 0 {
		return domain.PaymentState{}, false
	}
	return n.states[len(n.states)-1], true
}

func testPaymentConfig() config.PaymentConfig {
	return config.PaymentConfig{
		Scopes:            []string{"payments"},
		InactivityTimeout: time.Minute,
		SettleTimeout:     5 * time.Second,
		AuthTimeout:       5 * time.Second,
	}
}

func newTestCoordinator(wallet *fakeWallet, settlement *fakeSettlement, repo *fakeRepo, notifier *fakeNotifier) *Coordinator {
	return NewCoordinator("user_1", wallet, settlement, repo, notifier, testPaymentConfig(), zerolog.Nop())
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

type paymentOutcome struct {
	result *domain.SettlementResult
	err    error
}

// startPayment runs CreatePayment on its own goroutine and returns the
// outcome channel plus the installed callbacks once the wallet flow is
// live.
func startPayment(t *testing.T, c *Coordinator, wallet *fakeWallet, req domain.CreatePaymentRequest) (chan paymentOutcome, interfaces.PaymentCallbacks) {
	t.Helper()

	outcome := make(chan paymentOutcome, 1)
	go func() {
		result, err := c.CreatePayment(context.Background(), req)
		outcome <- paymentOutcome{result: result, err: err}
	}()

	waitFor(t, func() bool { return wallet.installedCallbacks() != nil }, "wallet callbacks to be installed")
	return outcome, wallet.installedCallbacks()
}
