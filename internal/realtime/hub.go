// Package realtime fans out post events to websocket subscribers.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/blog-engagement-api/internal/models"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// DefaultBufferSize is the number of events queued per subscriber
	// before it is considered too slow and dropped
	DefaultBufferSize = 32
)

// EventConnected is sent once when a subscription starts
const EventConnected models.EventType = "connected"

// Hub keeps websocket subscribers per post and fans out events to them
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*subscriber]struct{}
	bufSize  int
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

type subscriber struct {
	postID string
	send   chan models.Event
}

// NewHub creates a hub. Origins are matched exactly; "*" allows any.
func NewHub(log zerolog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		subs:    make(map[string]map[*subscriber]struct{}),
		bufSize: DefaultBufferSize,
		log:     log.With().Str("component", "realtime").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Publish delivers e to every subscriber of e.PostID without blocking.
// Subscribers whose queue is full are disconnected.
func (h *Hub) Publish(e models.Event) {
	var slow []*subscriber

	h.mu.RLock()
	for s := range h.subs[e.PostID] {
		select {
		case s.send <- e:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		h.log.Warn().Str("post_id", s.postID).Msg("Dropping slow subscriber")
		h.unregister(s)
	}
}

// SubscriberCount returns the number of live subscribers of a post
func (h *Hub) SubscriberCount(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[postID])
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for postID, subs := range h.subs {
		for s := range subs {
			close(s.send)
		}
		delete(h.subs, postID)
	}
}

// register adds a subscriber whose queue starts with the given events
func (h *Hub) register(postID string, initial ...models.Event) *subscriber {
	s := &subscriber{postID: postID, send: make(chan models.Event, h.bufSize+len(initial))}
	for _, e := range initial {
		s.send <- e
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[postID] == nil {
		h.subs[postID] = make(map[*subscriber]struct{})
	}
	h.subs[postID][s] = struct{}{}
	return s
}

// unregister removes s and closes its queue. Safe to call more than once.
func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.subs[s.postID]
	if !ok {
		return
	}
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	close(s.send)
	if len(subs) == 0 {
		delete(h.subs, s.postID)
	}
}

// ServeWS upgrades the request and streams the events of postID until the
// client goes away or the subscriber is dropped
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, postID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("post_id", postID).Msg("WebSocket upgrade failed")
		return
	}

	s := h.register(postID, models.Event{Type: EventConnected, PostID: postID, At: time.Now().UTC()})
	h.log.Debug().Str("post_id", postID).Msg("Subscriber connected")

	go h.writePump(conn, s)
	h.readPump(conn, s)
}

// readPump discards client messages and detects disconnects
func (h *Hub) readPump(conn *websocket.Conn, s *subscriber) {
	defer func() {
		h.unregister(s)
		conn.Close()
		h.log.Debug().Str("post_id", s.postID).Msg("Subscriber disconnected")
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(event); err != nil {
				h.log.Debug().Err(err).Str("post_id", s.postID).Msg("WebSocket write failed")
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
