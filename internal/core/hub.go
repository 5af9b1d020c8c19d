package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/apaluca/PrivateChat/internal/store"
)

// Options tunes hub behavior.
type Options struct {
	// CaseInsensitiveRooms controls the room name normalization policy.
	CaseInsensitiveRooms bool
	// MaxMessageLength rejects oversized message bodies; 0 disables the check.
	MaxMessageLength int
}

// Hub coordinates the session registry, channel resolver, fanout router,
// and membership synchronizer. One goroutine per registered client pumps
// that client's commands sequentially, which gives per-connection
// persist-then-broadcast ordering; cross-client state is only touched
// through the registry's lock or the store.
type Hub struct {
	store      store.Store
	registry   *Registry
	resolver   *Resolver
	router     *Router
	membership *Membership
	log        *zerolog.Logger

	register   chan *Client
	unregister chan *Client
	stopped    chan struct{}
}

// NewHub constructs a hub over the given store.
func NewHub(st store.Store, opts Options, logger *zerolog.Logger) *Hub {
	registry := NewRegistry()
	resolver := NewResolver(st, opts.CaseInsensitiveRooms)
	return &Hub{
		store:      st,
		registry:   registry,
		resolver:   resolver,
		router:     NewRouter(st, registry, opts.MaxMessageLength, logger),
		membership: NewMembership(st, registry, resolver, logger),
		log:        logger,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stopped:    make(chan struct{}),
	}
}

// Registry exposes presence queries.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// RegisterClient hands a verified connection to the hub.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.stopped:
	}
}

// UnregisterClient tears a connection down. Safe to call more than once,
// and safe after the hub has stopped.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.stopped:
	}
}

// Run processes client registration until the context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.stopped)
	for {
		select {
		case c := <-h.register:
			if err := h.registry.Register(c); err != nil {
				c.send(&Event{Kind: EventError, Error: AsCoreError(err)})
				close(c.done)
				continue
			}
			h.broadcastAll(&Event{Kind: EventUserJoined, User: c.Identity})
			h.log.Info().Str("conn_id", c.ConnID).Str("username", c.Identity.Username).Msg("client registered")
			go h.clientLoop(ctx, c)

		case c := <-h.unregister:
			if identity, removed := h.registry.Unregister(c.ConnID); removed {
				close(c.done)
				h.broadcastAll(&Event{Kind: EventUserLeft, User: identity})
				h.log.Info().Str("conn_id", c.ConnID).Str("username", identity.Username).Msg("client unregistered")
			}

		case <-ctx.Done():
			return
		}
	}
}

// clientLoop pumps one client's commands sequentially until the connection
// is unregistered or the hub stops. Sequential processing is what orders a
// connection's sends: the next command is not touched until the previous
// one was persisted and broadcast.
func (h *Hub) clientLoop(ctx context.Context, c *Client) {
	for {
		select {
		case cmd := <-c.Commands:
			h.handleCommand(ctx, c, cmd)
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	var err error

	switch cmd.Kind {
	case CommandSendGlobal:
		_, _, err = h.router.Deliver(ctx, c.Identity, GlobalChannel(), cmd.Content, nil)

	case CommandCreateRoom:
		err = h.handleCreateRoom(ctx, c, cmd.RoomName)

	case CommandJoinRoom:
		_, err = h.membership.JoinRoom(ctx, c, cmd.RoomName)

	case CommandLeaveRoom:
		err = h.membership.LeaveRoom(c)

	case CommandSendRoom:
		err = h.handleSendRoom(ctx, c, cmd)

	case CommandSendDirect:
		err = h.handleSendDirect(ctx, c, cmd)

	case CommandSendGroup:
		err = h.handleSendGroup(ctx, c, cmd)

	case CommandJoinGroup:
		_, err = h.membership.JoinGroup(ctx, c, cmd.GroupID)

	default:
		err = coreError(ErrCodeBadRequest, "unknown command")
	}

	if err != nil {
		var ce *CoreError
		if !errors.As(err, &ce) {
			h.log.Error().Err(err).Str("conn_id", c.ConnID).Msg("command failed")
		}
		c.send(&Event{Kind: EventError, Error: AsCoreError(err)})
	}
}

func (h *Hub) handleCreateRoom(ctx context.Context, c *Client, name string) error {
	room, created, err := h.resolver.ResolveOrCreateRoom(ctx, name)
	if err != nil {
		return err
	}

	ev := &Event{Kind: EventRoomCreated, Room: room}
	if created {
		h.broadcastAll(ev)
		h.log.Info().Str("room", room.Name).Str("username", c.Identity.Username).Msg("room created")
	} else {
		// The room was already there; the caller converges on it instead
		// of receiving a conflict.
		c.send(ev)
	}
	return nil
}

func (h *Hub) handleSendRoom(ctx context.Context, c *Client, cmd *Command) error {
	room, err := h.resolver.ResolveRoom(ctx, cmd.RoomName)
	if err != nil {
		return err
	}
	_, _, err = h.router.Deliver(ctx, c.Identity, RoomChannel(room.ID), cmd.Content, nil)
	return err
}

func (h *Hub) handleSendDirect(ctx context.Context, c *Client, cmd *Command) error {
	conv, created, err := h.resolver.ResolveOrCreateDirect(ctx, c.Identity.UserID, cmd.RecipientID)
	if err != nil {
		return err
	}

	if created {
		ev := &Event{Kind: EventConversationUpdated, Conversation: conv}
		for _, participant := range h.registry.ClientsForUsers(conv.Participants()) {
			participant.send(ev)
		}
	}

	_, _, err = h.router.Deliver(ctx, c.Identity, DirectChannel(conv.ID), cmd.Content, conv.Participants())
	return err
}

func (h *Hub) handleSendGroup(ctx context.Context, c *Client, cmd *Command) error {
	group, memberIDs, err := h.resolver.ResolveGroup(ctx, cmd.GroupID, c.Identity.UserID)
	if err != nil {
		return err
	}
	_, _, err = h.router.Deliver(ctx, c.Identity, GroupChannel(group.ID), cmd.Content, memberIDs)
	return err
}

// CreateRoom is the REST-facing create path; it shares the resolver's
// normalization and race semantics with the WS path and broadcasts
// room:created on a fresh create.
func (h *Hub) CreateRoom(ctx context.Context, name string) (*store.Room, bool, error) {
	room, created, err := h.resolver.ResolveOrCreateRoom(ctx, name)
	if err != nil {
		return nil, false, err
	}
	if created {
		h.broadcastAll(&Event{Kind: EventRoomCreated, Room: room})
	}
	return room, created, nil
}

// AddGroupMember changes durable group membership on behalf of an admin and
// fans the update out to live members.
func (h *Hub) AddGroupMember(ctx context.Context, groupID, userID, requestedBy int64) ([]*store.GroupMember, error) {
	return h.membership.AddMember(ctx, groupID, userID, requestedBy)
}

// RemoveGroupMember removes a member (self-leave or admin action) and fans
// the update out to live members.
func (h *Hub) RemoveGroupMember(ctx context.Context, groupID, userID, requestedBy int64) ([]*store.GroupMember, error) {
	return h.membership.RemoveMember(ctx, groupID, userID, requestedBy)
}

func (h *Hub) broadcastAll(ev *Event) {
	for _, c := range h.registry.AllClients() {
		c.send(ev)
	}
}
