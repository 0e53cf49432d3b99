package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/domain"
	"github.com/marketpi/wps/internal/domain/interfaces"
	"github.com/marketpi/wps/pkg/config"
)

// Frame types exchanged with the wallet host. Outbound frames carry
// commands (authenticate, create_payment); inbound frames carry the
// authenticate reply and the wallet's payment callbacks.
const (
	frameAuthenticate      = "authenticate"
	frameAuthResult        = "auth_result"
	frameCreatePayment     = "create_payment"
	frameApprovalReady     = "approval_ready"
	frameCompletionReady   = "completion_ready"
	frameCancelled         = "cancelled"
	frameWalletError       = "wallet_error"
	frameIncompletePayment = "incomplete_payment"
)

type frame struct {
	Type      string                `json:"type"`
	ID        string                `json:"id,omitempty"`
	Scopes    []string              `json:"scopes,omitempty"`
	Payment   *domain.PaymentData   `json:"payment,omitempty"`
	PaymentID string                `json:"payment_id,omitempty"`
	TxID      string                `json:"txid,omitempty"`
	Auth      *domain.AuthResult    `json:"auth,omitempty"`
	Record    *domain.WalletPayment `json:"record,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// HostBridge implements interfaces.WalletCapability over one websocket
// connection to the wallet host browser. Commands are relayed to the
// embedded SDK; its callbacks come back as frames and are dispatched on
// the read pump, which is why callback handlers must return without
// blocking.
const defaultPingPeriod = 54 * time.Second

type HostBridge struct {
	userUID    string
	conn       *websocket.Conn
	send       chan frame
	pingPeriod time.Duration
	pongWait   time.Duration
	logger     zerolog.Logger

	mu           sync.Mutex
	active       bool
	pending      map[string]chan frame
	callbacks    interfaces.PaymentCallbacks
	onIncomplete interfaces.OnIncompletePayment

	done chan struct{}
}

func NewHostBridge(userUID string, conn *websocket.Conn, cfg config.WebSocketConfig, logger zerolog.Logger) *HostBridge {
	pingPeriod := cfg.PingPeriod
	if pingPeriod <= 0 {
		pingPeriod = defaultPingPeriod
	}
	// The pong must arrive within one ping interval plus slack, or the
	// connection is considered dead.
	pongWait := pingPeriod * 10 / 9

	b := &HostBridge{
		userUID:    userUID,
		conn:       conn,
		send:       make(chan frame, 32),
		pingPeriod: pingPeriod,
		pongWait:   pongWait,
		active:     true,
		pending:    make(map[string]chan frame),
		done:       make(chan struct{}),
		logger:     logger.With().Str("user_uid", userUID).Logger(),
	}

	go b.writePump()
	go b.readPump()

	return b
}

// UserUID returns the wallet account this bridge serves.
func (b *HostBridge) UserUID() string {
	return b.userUID
}

// Done is closed when the bridge connection is gone.
func (b *HostBridge) Done() <-chan struct{} {
	return b.done
}

// Available reports whether the host connection is still alive.
func (b *HostBridge) Available() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}

// Authenticate relays an authenticate command to the wallet host and
// waits for its reply. Incomplete-payment frames arriving meanwhile are
// dispatched to onIncomplete.
func (b *HostBridge) Authenticate(ctx context.Context, scopes []string, onIncomplete interfaces.OnIncompletePayment) (*domain.AuthResult, error) {
	id := uuid.New().String()
	reply := make(chan frame, 1)

	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return nil, domain.ErrWalletUnavailable
	}
	b.onIncomplete = onIncomplete
	b.pending[id] = reply
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	if err := b.enqueue(frame{Type: frameAuthenticate, ID: id, Scopes: scopes}); err != nil {
		return nil, err
	}

	select {
	case f := <-reply:
		if f.Error != "" {
			return nil, fmt.Errorf("wallet rejected authentication: %s", f.Error)
		}
		if f.Auth == nil {
			return nil, errors.New("wallet returned empty authentication result")
		}
		return f.Auth, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-b.done:
		return nil, domain.ErrWalletUnavailable
	}
}

// CreatePayment installs the callback bridge and relays the payment to
// the wallet host. Results flow back only through the callbacks.
func (b *HostBridge) CreatePayment(ctx context.Context, data domain.PaymentData, callbacks interfaces.PaymentCallbacks) error {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return domain.ErrWalletUnavailable
	}
	b.callbacks = callbacks
	b.mu.Unlock()

	return b.enqueue(frame{Type: frameCreatePayment, Payment: &data})
}

// Close tears the bridge down. Idempotent.
func (b *HostBridge) Close() error {
	b.mu.Lock()
	if !b.active {
		b.mu.Unlock()
		return nil
	}
	b.active = false
	b.mu.Unlock()

	close(b.done)
	return b.conn.Close()
}

func (b *HostBridge) enqueue(f frame) error {
	select {
	case b.send <- f:
		return nil
	case <-b.done:
		return domain.ErrWalletUnavailable
	default:
		b.logger.Warn().Str("frame_type", f.Type).Msg("Wallet bridge send channel full, dropping frame")
		return errors.New("wallet bridge send channel full")
	}
}

// readPump handles incoming frames from the wallet host. Callback
// frames are dispatched inline: the callback contract guarantees the
// handlers return without blocking, so the pump stays responsive.
func (b *HostBridge) readPump() {
	defer b.Close()

	b.conn.SetReadLimit(4096)
	b.conn.SetReadDeadline(time.Now().Add(b.pongWait))
	b.conn.SetPongHandler(func(string) error {
		b.conn.SetReadDeadline(time.Now().Add(b.pongWait))
		return nil
	})

	for {
		var f frame
		if err := b.conn.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				b.logger.Error().Err(err).Msg("Unexpected wallet bridge close error")
			}
			return
		}

		b.dispatch(f)
	}
}

func (b *HostBridge) dispatch(f frame) {
	b.mu.Lock()
	reply := b.pending[f.ID]
	callbacks := b.callbacks
	onIncomplete := b.onIncomplete
	b.mu.Unlock()

	switch f.Type {
	case frameAuthResult:
		if reply != nil {
			reply <- f
		} else {
			b.logger.Warn().Str("id", f.ID).Msg("Auth result frame without pending request")
		}

	case frameIncompletePayment:
		if onIncomplete != nil && f.Record != nil {
			// Recovery talks to the backend; keep it off the read pump.
			go onIncomplete(*f.Record)
		}

	case frameApprovalReady:
		if callbacks != nil {
			callbacks.OnReadyForServerApproval(f.PaymentID)
		}

	case frameCompletionReady:
		if callbacks != nil {
			callbacks.OnReadyForServerCompletion(f.PaymentID, f.TxID)
		}

	case frameCancelled:
		if callbacks != nil {
			callbacks.OnCancel(f.PaymentID)
		}

	case frameWalletError:
		if callbacks != nil {
			callbacks.OnError(errors.New(f.Error), f.Record)
		}

	default:
		b.logger.Warn().Str("frame_type", f.Type).Msg("Unknown wallet bridge frame")
	}
}

// writePump handles outgoing frames to the wallet host.
func (b *HostBridge) writePump() {
	ticker := time.NewTicker(b.pingPeriod)
	defer func() {
		ticker.Stop()
		b.Close()
	}()

	for {
		select {
		case f := <-b.send:
			b.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := b.conn.WriteJSON(f); err != nil {
				b.logger.Error().Err(err).Str("frame_type", f.Type).Msg("Failed to write wallet bridge frame")
				return
			}

		case <-ticker.C:
			b.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := b.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-b.done:
			return
		}
	}
}
