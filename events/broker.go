package events

import (
	"encoding/json"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"
)

// EventBroker manages SSE connections and broadcasts events
type EventBroker struct {
	clients map[chan string]bool
	mu      sync.RWMutex
}

// NewBroker creates an event broker with no clients
func NewBroker() *EventBroker {
	return &EventBroker{
		clients: make(map[chan string]bool),
	}
}

// Register adds a new SSE client
func (b *EventBroker) Register(client chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = true
	log.Debugf("📡 SSE client connected (total: %d)", len(b.clients))
}

// Unregister removes an SSE client
func (b *EventBroker) Unregister(client chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; !ok {
		return
	}
	delete(b.clients, client)
	close(client)
	log.Debugf("📡 SSE client disconnected (total: %d)", len(b.clients))
}

// ClientCount returns the number of connected clients
func (b *EventBroker) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Broadcast sends an event to all connected clients
func (b *EventBroker) Broadcast(eventType string, data interface{}) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Warnf("Failed to marshal event data: %v", err)
		return
	}

	message := fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, string(jsonData))

	for client := range b.clients {
		select {
		case client <- message:
		default:
			// Client buffer full, skip
		}
	}

	log.Debugf("📢 Broadcast event: %s to %d client(s)", eventType, len(b.clients))
}
