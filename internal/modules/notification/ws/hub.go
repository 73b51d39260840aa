package ws

import (
	"encoding/json"
	"sync"

	"log/slog"

	"server/internal/modules/notification/dispatcher"
)

// Hub держит активных подписчиков операционного канала и раздает им
// события диспетчеризации. Канал односторонний: клиенты только читают.
type Hub struct {
	clients    map[uint]map[*Client]bool // по userID
	mu         sync.RWMutex
	Register   chan *Client
	Unregister chan *Client
	Log        *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Log:        log.With(slog.String("component", "notification_hub")),
	}
}

// Run запускает основной цикл хаба.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; !ok {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.mu.Unlock()
			client.Log.Info("Client registered")

		case client := <-h.Unregister:
			h.mu.Lock()
			if userClients, ok := h.clients[client.UserID]; ok {
				if _, clientExists := userClients[client]; clientExists {
					close(client.Send)
					delete(userClients, client)
					if len(userClients) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			h.mu.Unlock()
			client.Log.Info("Client unregistered")
		}
	}
}

// Publish отправляет событие подписчикам. События диспетчеризации
// уходят только клиентам владельца заказа, остальное - всем.
func (h *Hub) Publish(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		h.Log.Error("failed to marshal event", "error", err)
		return
	}

	if event, ok := v.(dispatcher.DispatchEvent); ok {
		h.sendToUser(event.UserID, data)
		return
	}
	h.broadcast(data)
}

func (h *Hub) sendToUser(userID uint, data []byte) {
	h.mu.RLock()
	userClients, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	clientsToSend := make([]*Client, 0, len(userClients))
	for c := range userClients {
		clientsToSend = append(clientsToSend, c)
	}
	h.mu.RUnlock()

	for _, c := range clientsToSend {
		select {
		case c.Send <- data:
		default:
			c.Log.Warn("Send channel full, dropping event")
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.RLock()
	clientsToSend := make([]*Client, 0)
	for _, userClients := range h.clients {
		for c := range userClients {
			clientsToSend = append(clientsToSend, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clientsToSend {
		select {
		case c.Send <- data:
		default:
			c.Log.Warn("Send channel full, dropping event")
		}
	}
}
