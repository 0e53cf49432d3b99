package wallet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/pkg/config"
)

// fakeHost plays the wallet host browser on the far end of the socket.
type fakeHost struct {
	mu   sync.Mutex
	conn *websocket.Conn
	recv chan frame
}

func newBridgePair(t *testing.T) (*HostBridge, *fakeHost) {
	t.Helper()

	host := &fakeHost{recv: make(chan frame, 16)}
	upgrader := websocket.Upgrader{}

	ready := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		host.mu.Lock()
		host.conn = conn
		host.mu.Unlock()
		close(ready)

		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			host.recv <- f
		}
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}

	bridge := NewHostBridge("user_1", conn, config.WebSocketConfig{PingPeriod: 50 * time.Second}, zerolog.Nop())
	t.Cleanup(func() { bridge.Close() })

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("host connection never established")
	}
	return bridge, host
}

func (h *fakeHost) send(t *testing.T, f frame) {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.conn.WriteJSON(f); err != nil {
		t.Fatalf("host write failed: %v", err)
	}
}

func (h *fakeHost) next(t *testing.T) frame {
	t.Helper()
	select {
	case f := <-h.recv:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame from bridge")
		return frame{}
	}
}

// recordingCallbacks collects dispatched wallet callbacks.
type recordingCallbacks struct {
	mu          sync.Mutex
	approvals   []string
	completions [][2]string
	cancels     []string
	errs        []error
}

func (r *recordingCallbacks) OnReadyForServerApproval(paymentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.approvals = append(r.approvals, paymentID)
}

func (r *recordingCallbacks) OnReadyForServerCompletion(paymentID, txid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completions = append(r.completions, [2]string{paymentID, txid})
}

func (r *recordingCallbacks) OnCancel(paymentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels = append(r.cancels, paymentID)
}

func (r *recordingCallbacks) OnError(err error, payment *domain.WalletPayment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

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

func TestAuthenticateRoundTrip(t *testing.T) {
	bridge, host := newBridgePair(t)

	type authOutcome struct {
		result *domain.AuthResult
		err    error
	}
	outcome := make(chan authOutcome, 1)
	go func() {
		res, err := bridge.Authenticate(context.Background(), []string{"payments"}, nil)
		outcome <- authOutcome{result: res, err: err}
	}()

	req := host.next(t)
	if req.Type != frameAuthenticate {
		t.Fatalf("frame type = %s, want %s", req.Type, frameAuthenticate)
	}
	if len(req.Scopes) != 1 || req.Scopes[0] != "payments" {
		t.Fatalf("scopes = %v, want [payments]", req.Scopes)
	}

	host.send(t, frame{
		Type: frameAuthResult,
		ID:   req.ID,
		Auth: &domain.AuthResult{
			AccessToken: "token_1",
			User:        domain.WalletUser{UID: "user_1", Username: "alice"},
		},
	})

	select {
	case got := <-outcome:
		if got.err != nil {
			t.Fatalf("Authenticate returned error: %v", got.err)
		}
		if got.result.User.UID != "user_1" {
			t.Errorf("user uid = %s, want user_1", got.result.User.UID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Authenticate never returned")
	}
}

func TestAuthenticateRejection(t *testing.T) {
	bridge, host := newBridgePair(t)

	errCh := make(chan error, 1)
	go func() {
		_, err := bridge.Authenticate(context.Background(), []string{"payments"}, nil)
		errCh <- err
	}()

	req := host.next(t)
	host.send(t, frame{Type: frameAuthResult, ID: req.ID, Error: "user declined"})

	select {
	case err := <-errCh:
		if err == nil || !strings.Contains(err.Error(), "user declined") {
			t.Fatalf("error = %v, want wallet rejection", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Authenticate never returned")
	}
}

func TestCreatePaymentRelaysAndDispatchesCallbacks(t *testing.T) {
	bridge, host := newBridgePair(t)
	cb := &recordingCallbacks{}

	data := domain.PaymentData{Amount: 10, Memo: "Recharge 10"}
	if err := bridge.CreatePayment(context.Background(), data, cb); err != nil {
		t.Fatalf("CreatePayment returned error: %v", err)
	}

	req := host.next(t)
	if req.Type != frameCreatePayment {
		t.Fatalf("frame type = %s, want %s", req.Type, frameCreatePayment)
	}
	if req.Payment == nil || req.Payment.Memo != "Recharge 10" {
		t.Fatalf("payment payload = %+v", req.Payment)
	}

	host.send(t, frame{Type: frameApprovalReady, PaymentID: "pay_1"})
	waitFor(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.approvals) == 1 && cb.approvals[0] == "pay_1"
	}, "approval callback")

	host.send(t, frame{Type: frameCompletionReady, PaymentID: "pay_1", TxID: "tx_1"})
	waitFor(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.completions) == 1 && cb.completions[0] == [2]string{"pay_1", "tx_1"}
	}, "completion callback")
}

func TestCancelAndErrorFramesDispatch(t *testing.T) {
	bridge, host := newBridgePair(t)
	cb := &recordingCallbacks{}

	if err := bridge.CreatePayment(context.Background(), domain.PaymentData{Amount: 1}, cb); err != nil {
		t.Fatalf("CreatePayment returned error: %v", err)
	}
	host.next(t)

	host.send(t, frame{Type: frameCancelled, PaymentID: "pay_1"})
	waitFor(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.cancels) == 1
	}, "cancel callback")

	host.send(t, frame{Type: frameWalletError, Error: "insufficient balance"})
	waitFor(t, func() bool {
		cb.mu.Lock()
		defer cb.mu.Unlock()
		return len(cb.errs) == 1 && cb.errs[0].Error() == "insufficient balance"
	}, "error callback")
}

func TestIncompletePaymentDispatchedDuringAuthentication(t *testing.T) {
	bridge, host := newBridgePair(t)

	var mu sync.Mutex
	var recovered []domain.WalletPayment
	onIncomplete := func(p domain.WalletPayment) {
		mu.Lock()
		defer mu.Unlock()
		recovered = append(recovered, p)
	}

	go func() {
		bridge.Authenticate(context.Background(), []string{"payments"}, onIncomplete)
	}()
	req := host.next(t)

	host.send(t, frame{
		Type: frameIncompletePayment,
		Record: &domain.WalletPayment{
			Identifier: "pay_old",
			Status:     domain.WalletPaymentStatus{DeveloperApproved: true},
		},
	})
	host.send(t, frame{Type: frameAuthResult, ID: req.ID, Auth: &domain.AuthResult{AccessToken: "t"}})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(recovered) == 1 && recovered[0].Identifier == "pay_old"
	}, "incomplete payment dispatch")
}

func TestClosedBridgeReportsUnavailable(t *testing.T) {
	bridge, _ := newBridgePair(t)

	if !bridge.Available() {
		t.Fatal("fresh bridge should be available")
	}
	if err := bridge.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if bridge.Available() {
		t.Fatal("closed bridge should not be available")
	}

	select {
	case <-bridge.Done():
	case <-time.After(time.Second):
		t.Fatal("Done channel not closed")
	}

	if _, err := bridge.Authenticate(context.Background(), nil, nil); !errors.Is(err, domain.ErrWalletUnavailable) {
		t.Fatalf("Authenticate error = %v, want ErrWalletUnavailable", err)
	}
	if err := bridge.CreatePayment(context.Background(), domain.PaymentData{}, nil); !errors.Is(err, domain.ErrWalletUnavailable) {
		t.Fatalf("CreatePayment error = %v, want ErrWalletUnavailable", err)
	}
}

func TestPongWaitTracksPingPeriod(t *testing.T) {
	tests := []struct {
		name       string
		pingPeriod time.Duration
		wantWait   time.Duration
	}{
		{"configured period", 90 * time.Second, 100 * time.Second},
		{"long period still exceeds the ping interval", 5 * time.Minute, 5 * time.Minute * 10 / 9},
		{"zero falls back to the default", 0, defaultPingPeriod * 10 / 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				upgrader := websocket.Upgrader{}
				conn, err := upgrader.Upgrade(w, r, nil)
				if err != nil {
					return
				}
				for {
					if _, _, err := conn.ReadMessage(); err != nil {
						return
					}
				}
			}))
			defer server.Close()

			url := "ws" + strings.TrimPrefix(server.URL, "http")
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatalf("dial failed: %v", err)
			}

			bridge := NewHostBridge("user_1", conn, config.WebSocketConfig{PingPeriod: tt.pingPeriod}, zerolog.Nop())
			defer bridge.Close()

			if bridge.pongWait != tt.wantWait {
				t.Errorf("pongWait = %v, want %v", bridge.pongWait, tt.wantWait)
			}
			if bridge.pongWait <= bridge.pingPeriod {
				t.Errorf("pongWait %v must exceed ping period %v or healthy connections die between pings",
					bridge.pongWait, bridge.pingPeriod)
			}
		})
	}
}

func TestHostDisconnectClosesBridge(t *testing.T) {
	bridge, host := newBridgePair(t)

	host.mu.Lock()
	host.conn.Close()
	host.mu.Unlock()

	select {
	case <-bridge.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not close after host disconnect")
	}
	if bridge.Available() {
		t.Fatal("bridge still available after host disconnect")
	}
}
