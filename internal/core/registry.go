package core

import "sync"

// session is the registry's private record for one live connection: the
// client endpoint, its identity, and the room it currently participates in.
// Group and conversation recipients are computed from durable membership,
// so no live subscription state is cached for them.
type session struct {
	client *Client
	roomID int64 // 0 means no room joined
}

// Registry owns all connected-session state. Every mutation and snapshot
// goes through its mutex so that registration, membership changes, and
// recipient-set computation are linearizable with respect to each other.
// It is a derived view over live connections only; durable membership
// stays in the store.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[int64]map[string]*Client
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*session),
		byUser:   make(map[int64]map[string]*Client),
	}
}

// Register adds a connection. A connection id may be registered at most
// once; a duplicate indicates broken transport semantics.
func (r *Registry) Register(c *Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[c.ConnID]; exists {
		return coreError(ErrCodeDuplicateConnection, "connection already registered")
	}

	r.sessions[c.ConnID] = &session{client: c}

	conns := r.byUser[c.Identity.UserID]
	if conns == nil {
		conns = make(map[string]*Client)
		r.byUser[c.Identity.UserID] = conns
	}
	conns[c.ConnID] = c

	return nil
}

// Unregister removes a connection and releases all channel memberships it
// held. It is idempotent: removing an unknown connection id is a no-op and
// reports removed=false.
func (r *Registry) Unregister(connID string) (Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[connID]
	if !exists {
		return Identity{}, false
	}

	delete(r.sessions, connID)

	userID := sess.client.Identity.UserID
	if conns := r.byUser[userID]; conns != nil {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, userID)
		}
	}

	return sess.client.Identity, true
}

// Lookup resolves a connection id to its identity.
func (r *Registry) Lookup(connID string) (Identity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[connID]
	if !exists {
		return Identity{}, false
	}
	return sess.client.Identity, true
}

// ActiveConnectionsFor returns the connection ids of every live session of
// the given user.
func (r *Registry) ActiveConnectionsFor(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	ids := make([]string, 0, len(conns))
	for id := range conns {
		ids = append(ids, id)
	}
	return ids
}

// CurrentRoom returns the room the connection has joined, 0 if none.
func (r *Registry) CurrentRoom(connID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, exists := r.sessions[connID]
	if !exists {
		return 0, false
	}
	return sess.roomID, true
}

// SetRoom switches the connection into roomID, implicitly leaving any
// previously joined room (single-room-at-a-time policy). roomID 0 leaves
// without joining. Returns the previous room id.
func (r *Registry) SetRoom(connID string, roomID int64) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, exists := r.sessions[connID]
	if !exists {
		return 0, false
	}

	prev := sess.roomID
	sess.roomID = roomID
	return prev, true
}

// AllClients snapshots every connected client.
func (r *Registry) AllClients() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.sessions))
	for _, sess := range r.sessions {
		clients = append(clients, sess.client)
	}
	return clients
}

// RoomClients snapshots every client currently joined to roomID.
func (r *Registry) RoomClients(roomID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clients []*Client
	for _, sess := range r.sessions {
		if sess.roomID == roomID {
			clients = append(clients, sess.client)
		}
	}
	return clients
}

// ClientsForUsers snapshots every live client belonging to any of the given
// user ids. Each connection appears exactly once.
func (r *Registry) ClientsForUsers(userIDs []int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var clients []*Client
	for _, userID := range userIDs {
		for _, c := range r.byUser[userID] {
			clients = append(clients, c)
		}
	}
	return clients
}

// OnlineUsers snapshots the identity of every user with at least one live
// session. Each user appears exactly once regardless of connection count.
func (r *Registry) OnlineUsers() []Identity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]Identity, 0, len(r.byUser))
	for _, conns := range r.byUser {
		for _, c := range conns {
			users = append(users, c.Identity)
			break
		}
	}
	return users
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
