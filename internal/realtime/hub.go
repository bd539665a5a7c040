// internal/realtime/hub.go
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"civic-reports/internal/models"
	"civic-reports/pkg/logger"
	"civic-reports/pkg/metrics"
)

// ErrHubStopped повертається, коли хаб уже не приймає повідомлень.
var ErrHubStopped = errors.New("realtime hub stopped")

const MessageTypeNotification = "notification"

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type delivery struct {
	userID  primitive.ObjectID
	payload []byte
}

// Hub тримає кімнату на кожного користувача: userID -> множина з'єднань.
type Hub struct {
	clients map[primitive.ObjectID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	done     chan struct{}
	stopOnce sync.Once
	mutex    sync.RWMutex
	log      *zap.Logger
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		log:        logger.WithModule("realtime"),
	}
}

// Run обробляє реєстрацію і доставку до скасування ctx.
// Після зупинки всі з'єднання закриваються.
func (h *Hub) Run(ctx context.Context) {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mutex.Lock()
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]bool)
			}
			h.clients[client.userID][client] = true
			h.mutex.Unlock()
			metrics.WebsocketConnected()
			h.log.Debug("Client registered", zap.String("user_id", client.userID.Hex()))

		case client := <-h.unregister:
			if h.drop(client) {
				h.log.Debug("Client unregistered", zap.String("user_id", client.userID.Hex()))
			}

		case d := <-h.deliver:
			h.mutex.RLock()
			room := make([]*Client, 0, len(h.clients[d.userID]))
			for client := range h.clients[d.userID] {
				room = append(room, client)
			}
			h.mutex.RUnlock()

			for _, client := range room {
				select {
				case client.send <- d.payload:
				default:
					// Повільний клієнт: відключаємо, щоб не блокувати інших
					h.drop(client)
					metrics.RecordPushFailure()
					h.log.Warn("Evicted slow client", zap.String("user_id", d.userID.Hex()))
				}
			}
		}
	}
}

// drop видаляє клієнта і закриває його канал. Повертає false, якщо клієнт уже видалений.
func (h *Hub) drop(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	room, ok := h.clients[client.userID]
	if !ok || !room[client] {
		return false
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.clients, client.userID)
	}
	metrics.WebsocketDisconnected()
	return true
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for userID, room := range h.clients {
		for client := range room {
			close(client.send)
			metrics.WebsocketDisconnected()
		}
		delete(h.clients, userID)
	}
	h.log.Info("Realtime hub stopped")
}

// Publish ставить сповіщення в чергу на доставку в кімнату отримувача.
// Доставка best-effort: офлайн-отримувач просто нічого не отримає.
func (h *Hub) Publish(ctx context.Context, notification *models.Notification) error {
	payload, err := json.Marshal(WSMessage{Type: MessageTypeNotification, Data: notification})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	select {
	case <-h.done:
		return ErrHubStopped
	default:
	}

	select {
	case h.deliver <- delivery{userID: notification.Recipient, payload: payload}:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connections повертає кількість відкритих з'єднань користувача.
func (h *Hub) Connections(userID primitive.ObjectID) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) add(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
