package core

// Identity is the verified binding of a user id to a display name. It is
// established once at connection time and never trusted from client-supplied
// data afterwards.
type Identity struct {
	UserID   int64
	Username string
}

// Client is a live connection as seen by the core layer. Commands flow in
// from the transport; Events flow out to it.
type Client struct {
	ConnID   string
	Identity Identity
	Commands chan *Command
	Events   chan *Event

	// done is closed by the hub when the connection is unregistered,
	// stopping the command pump.
	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(connID string, identity Identity) *Client {
	return &Client{
		ConnID:   connID,
		Identity: identity,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, 32),
		done:     make(chan struct{}),
	}
}

// send delivers an event without blocking. Slow consumers drop; delivery is
// best-effort per recipient and never retried.
func (c *Client) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}

// Done is closed once the client has been unregistered.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
