package realtime

import "sync"

// Hub is the process-local presence registry and broadcast-group
// subscription table.
//
// It maps each authenticated user to the set of their live connections
// (multi-device correct by construction, no last-write-wins overwrite) and
// each match to the set of connections subscribed to its room. State is
// purely in-memory: it is rebuilt from zero on restart, when clients
// reconnect.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{} // userID -> connections
	rooms   map[string]map[*Client]struct{} // matchID -> subscribers
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		rooms:   make(map[string]map[*Client]struct{}),
	}
}

// Register adds a client to the presence registry.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.UserID] = set
	}
	set[c] = struct{}{}
}

// Unregister removes a client from the registry and from every room it
// joined. Other connections of the same user are untouched.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[c.UserID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.UserID)
		}
	}
	for matchID, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, matchID)
		}
	}
}

// Join subscribes a client to a match room.
func (h *Hub) Join(matchID string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[matchID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[matchID] = members
	}
	members[c] = struct{}{}
}

// SendToUser pushes payload to every live connection of the user and reports
// how many connections it reached. Zero is an expected outcome, not an
// error: an offline recipient picks the message up from history.
func (h *Hub) SendToUser(userID string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if err := c.Send(payload); err == nil {
			n++
		}
	}
	return n
}

// Broadcast pushes payload to every connection subscribed to the match room.
func (h *Hub) Broadcast(matchID string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[matchID]))
	for c := range h.rooms[matchID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	n := 0
	for _, c := range targets {
		if err := c.Send(payload); err == nil {
			n++
		}
	}
	return n
}

// IsOnline reports whether the user has at least one live connection.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Connections returns the number of live connections for a user.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}
