package websocket

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/marketpi/wps/internal/domain"
)

// StatusHub pushes payment state and settlement updates to the user's
// open UI connections. It implements interfaces.StatusNotifier; both
// publish methods are non-blocking so callback handlers can use them.
type StatusHub struct {
	Clients    map[string]map[*websocket.Conn]bool
	Broadcast  chan domain.PaymentUpdate
	Register   chan *StatusClient
	Unregister chan *StatusClient
	Logger     zerolog.Logger
}

type StatusClient struct {
	UserUID string
	Conn    *websocket.Conn
}

func NewStatusHub(logger zerolog.Logger) *StatusHub {
	return &StatusHub{
		Clients:    make(map[string]map[*websocket.Conn]bool),
		Broadcast:  make(chan domain.PaymentUpdate, 100),
		Register:   make(chan *StatusClient, 100),
		Unregister: make(chan *StatusClient, 100),
		Logger:     logger,
	}
}

func (h *StatusHub) Run() {
	for {
		select {
		case client := <-h.Register:
			if h.Clients[client.UserUID] == nil {
				h.Clients[client.UserUID] = make(map[*websocket.Conn]bool)
			}
			h.Clients[client.UserUID][client.Conn] = true
			h.Logger.Info().
				Str("user_uid", client.UserUID).
				Int("connection_count", len(h.Clients[client.UserUID])).
				Msg("Status client registered")

		case client := <-h.Unregister:
			if clients, ok := h.Clients[client.UserUID]; ok {
				delete(clients, client.Conn)
				if len(clients) == 0 {
					delete(h.Clients, client.UserUID)
				}
				client.Conn.Close()
				h.Logger.Info().
					Str("user_uid", client.UserUID).
					Int("connection_count", len(clients)).
					Msg("Status client unregistered")
			}

		case update := <-h.Broadcast:
			clients, ok := h.Clients[update.UserUID]
			if !ok || update.UserUID == "" {
				continue
			}

			for conn := range clients {
				if err := conn.WriteJSON(update); err != nil {
					h.Logger.Err(err).
						Str("user_uid", update.UserUID).
						Str("type", update.Type).
						Msg("Failed to send status update")
					conn.Close()
					delete(clients, conn)
				}
			}
			if len(clients) == 0 {
				delete(h.Clients, update.UserUID)
			}
		}
	}
}

// PublishState pushes the observable loading/error state.
func (h *StatusHub) PublishState(userUID string, state domain.PaymentState) {
	h.publish(domain.PaymentUpdate{
		Type:      "payment_state",
		UserUID:   userUID,
		State:     &state,
		Timestamp: time.Now(),
	})
}

// PublishUpdate pushes a settlement update.
func (h *StatusHub) PublishUpdate(update domain.PaymentUpdate) {
	if update.Timestamp.IsZero() {
		update.Timestamp = time.Now()
	}
	h.publish(update)
}

func (h *StatusHub) publish(update domain.PaymentUpdate) {
	select {
	case h.Broadcast <- update:
	default:
		// Never block a payment callback on a slow UI connection.
		h.Logger.Warn().
			Str("user_uid", update.UserUID).
			Str("type", update.Type).
			Msg("Status broadcast channel full, dropping update")
	}
}
