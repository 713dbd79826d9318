// Package live pushes full-collection snapshots to connected websocket
// clients whenever the event collection changes.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"dinoevent/derive"
	"dinoevent/models"
)

// Source supplies the collection and the clock snapshots are derived at.
type Source interface {
	Snapshot(ctx context.Context) ([]models.Event, error)
	Now() time.Time
}

type Client struct {
	Conn    *websocket.Conn
	Send    chan []byte
	Session models.Session
}

type snapshot struct {
	events []models.Event
	now    time.Time
}

// Message is what clients receive. Views are derived per client so that
// admin-only fields never reach guests.
type Message struct {
	Type string `json:"type"`
	derive.Listing
}

type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan snapshot
	refresh    chan struct{}
	quit       chan struct{}
	stopOnce   sync.Once

	source  Source
	timeout time.Duration
	logger  *slog.Logger
}

func NewHub(source Source, timeout time.Duration, logger *slog.Logger) *Hub {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan snapshot),
		refresh:    make(chan struct{}, 1),
		quit:       make(chan struct{}),
		source:     source,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run owns the client set. It returns after Stop.
func (h *Hub) Run() {
	go h.refreshLoop()
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug("live client connected", "viewer", c.Session.ViewerID, "clients", len(h.clients))

		case c := <-h.unregister:
			if h.clients[c] {
				delete(h.clients, c)
				close(c.Send)
			}

		case s := <-h.broadcast:
			for c := range h.clients {
				data, err := encode(s, c.Session)
				if err != nil {
					h.logger.Error("encode snapshot", "err", err)
					continue
				}
				select {
				case c.Send <- data:
				default:
					// Slow consumer; it reconnects and gets a fresh snapshot.
					close(c.Send)
					delete(h.clients, c)
				}
			}

		case <-h.quit:
			for c := range h.clients {
				close(c.Send)
				delete(h.clients, c)
			}
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Changed schedules a snapshot broadcast. Calls that arrive while one is
// pending are coalesced, so it never blocks.
func (h *Hub) Changed(context.Context) {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

func (h *Hub) refreshLoop() {
	for {
		select {
		case <-h.quit:
			return
		case <-h.refresh:
			ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
			events, err := h.source.Snapshot(ctx)
			cancel()
			if err != nil {
				h.logger.Warn("snapshot for live clients failed", "err", err)
				continue
			}
			h.Broadcast(events, h.source.Now())
		}
	}
}

// Broadcast sends events to every connected client.
func (h *Hub) Broadcast(events []models.Event, now time.Time) {
	select {
	case h.broadcast <- snapshot{events: events, now: now}:
	case <-h.quit:
	}
}

func encode(s snapshot, sess models.Session) ([]byte, error) {
	return json.Marshal(Message{Type: "snapshot", Listing: derive.BuildListing(s.events, s.now, sess)})
}
