package http

import (
	"log/slog"
	"sync"

	"live-quiz-service/internal/metrics"
)

const clientBuffer = 32

// client is one websocket connection. Messages are queued on send and written by a
// single writer goroutine, so the connection never sees concurrent writes.
type client struct {
	id            string
	sessionID     string
	participantID string

	mu     sync.Mutex
	closed bool
	send   chan outboundMessage
}

func newClient(id, sessionID, participantID string) *client {
	return &client{
		id:            id,
		sessionID:     sessionID,
		participantID: participantID,
		send:          make(chan outboundMessage, clientBuffer),
	}
}

// enqueue never blocks; a full buffer drops the message for this client only.
func (c *client) enqueue(msg outboundMessage) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type participantRef struct {
	sessionID     string
	participantID string
}

// Hub fans events out to every connection of a session and keeps the
// participant <-> connection registry in both directions.
type Hub struct {
	mu            sync.RWMutex
	sessions      map[string]map[string]*client // sessionID -> connID -> client
	byParticipant map[participantRef]string     // participant -> latest connID
	byConn        map[string]participantRef

	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		sessions:      make(map[string]map[string]*client),
		byParticipant: make(map[participantRef]string),
		byConn:        make(map[string]participantRef),
		logger:        logger.With("component", "hub"),
		metrics:       m,
	}
}

// register adds c. A participant that reconnects is addressed through the newest
// connection; the older one keeps receiving session broadcasts until it closes.
func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.sessions[c.sessionID]
	if !ok {
		conns = make(map[string]*client)
		h.sessions[c.sessionID] = conns
	}
	conns[c.id] = c
	ref := participantRef{sessionID: c.sessionID, participantID: c.participantID}
	h.byParticipant[ref] = c.id
	h.byConn[c.id] = ref
	h.metrics.ConnectionOpened()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if conns, ok := h.sessions[c.sessionID]; ok {
		if _, present := conns[c.id]; present {
			delete(conns, c.id)
			h.metrics.ConnectionClosed()
		}
		if len(conns) == 0 {
			delete(h.sessions, c.sessionID)
		}
	}
	ref := h.byConn[c.id]
	delete(h.byConn, c.id)
	if h.byParticipant[ref] == c.id {
		delete(h.byParticipant, ref)
	}
	h.mu.Unlock()
	c.close()
}

// Broadcast queues msg for every connection of the session.
func (h *Hub) Broadcast(sessionID string, msg outboundMessage) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.sessions[sessionID]))
	for _, c := range h.sessions[sessionID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg) {
			h.logger.Warn("dropped event for slow connection",
				"session_id", sessionID, "conn_id", c.id, "type", msg.Type)
		}
	}
}

// SendTo delivers msg to the participant's current connection only.
func (h *Hub) SendTo(sessionID, participantID string, msg outboundMessage) bool {
	h.mu.RLock()
	connID, ok := h.byParticipant[participantRef{sessionID: sessionID, participantID: participantID}]
	var c *client
	if ok {
		c = h.sessions[sessionID][connID]
	}
	h.mu.RUnlock()
	if c == nil {
		return false
	}
	return c.enqueue(msg)
}

// ConnectionFor returns the connection id currently addressing the participant.
func (h *Hub) ConnectionFor(sessionID, participantID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	connID, ok := h.byParticipant[participantRef{sessionID: sessionID, participantID: participantID}]
	return connID, ok
}

// ParticipantFor resolves a connection id back to its session and participant.
func (h *Hub) ParticipantFor(connID string) (sessionID, participantID string, ok bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ref, ok := h.byConn[connID]
	return ref.sessionID, ref.participantID, ok
}

// Connections counts the open connections of a session.
func (h *Hub) Connections(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
