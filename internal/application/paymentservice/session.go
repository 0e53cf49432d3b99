package paymentservice

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketpi/wps/internal/domain"
)

type sessionState int

const (
	sessionPending sessionState = iota
	sessionSettled
)

// paymentSession is the single-slot record of one payment attempt. It
// bridges the wallet's callbacks back to the blocked CreatePayment
// caller: settle transitions pending -> settled exactly once and closes
// done; every later settle attempt is a no-op.
type paymentSession struct {
	id      string
	request domain.CreatePaymentRequest

	mu        sync.Mutex
	state     sessionState
	paymentID string
	result    *domain.SettlementResult
	err       error
	timer     *time.Timer

	done chan struct{}
}

func newPaymentSession(req domain.CreatePaymentRequest) *paymentSession {
	return &paymentSession{
		id:      uuid.New().String(),
		request: req,
		done:    make(chan struct{}),
	}
}

// settle records the terminal outcome. Returns false if the session was
// already settled, in which case nothing changes.
func (s *paymentSession) settle(result *domain.SettlementResult, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == sessionSettled {
		return false
	}
	s.state = sessionSettled
	s.result = result
	s.err = err
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.done)
	return true
}

func (s *paymentSession) outcome() (*domain.SettlementResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.err
}

func (s *paymentSession) settled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == sessionSettled
}

// armTimeout starts the inactivity timer. fn fires once if no callback
// touches the session for the whole window.
func (s *paymentSession) armTimeout(d time.Duration, fn func()) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == sessionSettled {
		return
	}
	s.timer = time.AfterFunc(d, fn)
}

// touch resets the inactivity timer; called on every wallet callback.
func (s *paymentSession) touch(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == sessionSettled || s.timer == nil {
		return
	}
	s.timer.Reset(d)
}

// notePaymentID records the wallet-assigned payment identifier once the
// first callback carries it.
func (s *paymentSession) notePaymentID(paymentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paymentID == "" {
		s.paymentID = paymentID
	}
}

func (s *paymentSession) walletPaymentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paymentID
}
