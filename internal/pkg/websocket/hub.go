// Package websocket pushes live community updates (pins, announcements) to
// connected members. Connections are receive-only: anything a client sends
// is discarded.
package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// Event is one live update delivered to a community's subscribers
type Event struct {
	Type        string    `json:"type"`
	CommunityID int64     `json:"communityId"`
	Payload     any       `json:"payload,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Hub maintains the set of active clients per community and fans events out
// to them. All client bookkeeping happens on the Run goroutine.
type Hub struct {
	// Registered clients organized by community ID
	clients map[int64]map[*Client]struct{}

	broadcast  chan Event
	register   chan *Client
	unregister chan *Client
	evict      chan eviction

	// closed when Run returns
	done chan struct{}

	// guards clients for ClientCount readers
	mu sync.RWMutex

	logger zerolog.Logger
}

// eviction disconnects one user's clients of a community, or all of them
// when userID is 0
type eviction struct {
	communityID int64
	userID      int64
}

// NewHub creates a hub whose publish queue holds bufferSize events
func NewHub(bufferSize int, logger zerolog.Logger) *Hub {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Hub{
		clients:    make(map[int64]map[*Client]struct{}),
		broadcast:  make(chan Event, bufferSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		evict:      make(chan eviction),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "feed").Logger(),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.removeAll()
			h.logger.Info().Msg("Feed hub stopped")
			return

		case client := <-h.register:
			h.add(client)

		case client := <-h.unregister:
			h.remove(client)

		case e := <-h.evict:
			h.evictClients(e)

		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

// Publish queues an event for the community's subscribers without blocking.
// Events are dropped when the queue is full or the hub has stopped.
func (h *Hub) Publish(communityID int64, kind string, payload any) {
	event := Event{Type: kind, CommunityID: communityID, Payload: payload, Timestamp: time.Now().UTC()}
	select {
	case <-h.done:
		return
	default:
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Int64("communityID", communityID).Str("type", kind).Msg("Feed queue full, event dropped")
	}
}

// ClientCount returns the number of connected clients for a community
func (h *Hub) ClientCount(communityID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[communityID])
}

// Register attaches client to the hub. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister detaches client; it is a no-op after the hub has stopped.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Evict disconnects userID's subscriptions to a community; userID 0
// disconnects every subscriber. It is a no-op after the hub has stopped.
func (h *Hub) Evict(communityID, userID int64) {
	select {
	case h.evict <- eviction{communityID: communityID, userID: userID}:
	case <-h.done:
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[client.communityID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[client.communityID] = set
	}
	set[client] = struct{}{}

	h.logger.Debug().
		Int64("communityID", client.communityID).
		Int64("userID", client.userID).
		Msg("Client registered")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client)
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.communityID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	close(client.send)
	if len(set) == 0 {
		delete(h.clients, client.communityID)
	}

	h.logger.Debug().
		Int64("communityID", client.communityID).
		Int64("userID", client.userID).
		Msg("Client unregistered")
}

func (h *Hub) evictClients(e eviction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients[e.communityID] {
		if e.userID == 0 || client.userID == e.userID {
			h.removeLocked(client)
		}
	}
	h.logger.Debug().Int64("communityID", e.communityID).Int64("userID", e.userID).Msg("Feed subscribers evicted")
}

func (h *Hub) removeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for client := range set {
			h.removeLocked(client)
		}
	}
}

// deliver sends event to every client of its community. Clients whose send
// buffer is full are disconnected.
func (h *Hub) deliver(event Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.clients[event.CommunityID]
	if len(set) == 0 {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Int64("communityID", event.CommunityID).Str("type", event.Type).Msg("Failed to marshal feed event")
		return
	}

	for client := range set {
		select {
		case client.send <- data:
		default:
			h.logger.Warn().Int64("userID", client.userID).Msg("Slow feed client disconnected")
			h.removeLocked(client)
		}
	}
}
