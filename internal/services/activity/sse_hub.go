package activity

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/onegreenvn/bizdoc-services-backend/internal/metrics"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// FeedAll is the hub key for the admin feed that sees every event
const FeedAll = "all"

// UserFeed returns the hub key for one user's events
func UserFeed(userID string) string {
	return "user:" + userID
}

// SSEHub fans activity events out to Server-Sent Events clients
type SSEHub struct {
	// Key is FeedAll or UserFeed(id)
	clients map[string]map[chan []byte]bool
	mu      sync.RWMutex
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients: make(map[string]map[chan []byte]bool),
	}
}

// RegisterClient registers a new SSE client on a feed
func (h *SSEHub) RegisterClient(key string) chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientChan := make(chan []byte, 16)
	if h.clients[key] == nil {
		h.clients[key] = make(map[chan []byte]bool)
	}
	h.clients[key][clientChan] = true
	metrics.SSEClients.Inc()

	logrus.Debugf("SSE client registered for %s (total clients: %d)", key, len(h.clients[key]))
	return clientChan
}

// UnregisterClient removes and closes a client channel
func (h *SSEHub) UnregisterClient(key string, clientChan chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[key] == nil || !h.clients[key][clientChan] {
		return
	}
	delete(h.clients[key], clientChan)
	close(clientChan)
	metrics.SSEClients.Dec()
	if len(h.clients[key]) == 0 {
		delete(h.clients, key)
	}
	logrus.Debugf("SSE client unregistered for %s (remaining clients: %d)", key, len(h.clients[key]))
}

// Broadcast sends an event to the admin feed and to its user's feed
func (h *SSEHub) Broadcast(entry *models.ActivityLog) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		logrus.Errorf("Failed to marshal activity for SSE: %v", err)
		return
	}
	message := []byte(fmt.Sprintf("event: activity\ndata: %s\n\n", payload))

	h.sendLocked(FeedAll, message)
	if entry.UserID != "" {
		h.sendLocked(UserFeed(entry.UserID), message)
	}
}

// sendLocked delivers without blocking; slow clients miss events
func (h *SSEHub) sendLocked(key string, message []byte) {
	for clientChan := range h.clients[key] {
		select {
		case clientChan <- message:
		default:
			logrus.Warnf("SSE client channel full, skipping: %s", key)
		}
	}
}

// ClientCount returns the number of clients on a feed
func (h *SSEHub) ClientCount(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[key])
}
