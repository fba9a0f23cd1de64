package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrHubBusy = errors.New("hub broadcast buffer full")

type Event struct {
	Topic string    `json:"topic"`
	Type  string    `json:"type"`
	Data  any       `json:"data,omitempty"`
	At    time.Time `json:"at"`
}

type Client struct {
	ID     string
	UserID uuid.UUID
	Topics map[string]bool
	Send   chan []byte
}

type topicMessage struct {
	topic string
	data  []byte
}

// Hub fans published events out to the clients subscribed to their topic.
// Slow clients miss events instead of blocking the hub.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicMessage
	mu         sync.RWMutex
	now        func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicMessage, 256),
		now:        time.Now,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Topics == nil {
				client.Topics = make(map[string]bool)
			}
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				if client.Topics[msg.topic] {
					select {
					case client.Send <- msg.data:
					default:
						// Client buffer full, skip
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Subscribe(clientID, topic string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return false
	}
	client.Topics[topic] = true
	return true
}

func (h *Hub) Unsubscribe(clientID, topic string) {
	h.mu.Lock()
	if client, ok := h.clients[clientID]; ok {
		delete(client.Topics, topic)
	}
	h.mu.Unlock()
}

func (h *Hub) IsSubscribed(clientID, topic string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	return ok && client.Topics[topic]
}

// ClientUser reports the user a connected client belongs to.
func (h *Hub) ClientUser(clientID string) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[clientID]
	if !ok {
		return uuid.Nil, false
	}
	return client.UserID, true
}

// Publish queues an event for topic. It does not wait for delivery and fails
// with ErrHubBusy when the broadcast buffer is full.
func (h *Hub) Publish(ctx context.Context, topic, eventType string, payload any) error {
	data, err := json.Marshal(Event{Topic: topic, Type: eventType, Data: payload, At: h.now().UTC()})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- &topicMessage{topic: topic, data: data}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrHubBusy
	}
}
