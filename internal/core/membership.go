package core

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/apaluca/PrivateChat/internal/store"
)

// Membership keeps the registry's live view consistent with durable
// membership when joins, leaves, and group administration happen
// concurrently with message sends. Durable state changes go through the
// store; the registry is only mutated under its own lock, never across a
// store call.
type Membership struct {
	store    store.Store
	registry *Registry
	resolver *Resolver
	log      *zerolog.Logger
}

// NewMembership constructs the membership synchronizer.
func NewMembership(st store.Store, registry *Registry, resolver *Resolver, logger *zerolog.Logger) *Membership {
	return &Membership{
		store:    st,
		registry: registry,
		resolver: resolver,
		log:      logger,
	}
}

// JoinRoom switches the connection into the named room, implicitly leaving
// any previously joined room, and notifies the room's occupants. The room
// must already exist; creation is the resolver's create path.
func (m *Membership) JoinRoom(ctx context.Context, c *Client, name string) (*store.Room, error) {
	room, err := m.resolver.ResolveRoom(ctx, name)
	if err != nil {
		return nil, err
	}

	if _, ok := m.registry.SetRoom(c.ConnID, room.ID); !ok {
		return nil, coreError(ErrCodeBadRequest, "connection not registered")
	}

	ev := &Event{Kind: EventRoomUserJoined, RoomID: room.ID, User: c.Identity}
	for _, occupant := range m.registry.RoomClients(room.ID) {
		occupant.send(ev)
	}

	m.log.Debug().Str("conn_id", c.ConnID).Str("room", room.Name).Msg("joined room")
	return room, nil
}

// LeaveRoom takes the connection out of its current room.
func (m *Membership) LeaveRoom(c *Client) error {
	prev, ok := m.registry.SetRoom(c.ConnID, 0)
	if !ok {
		return coreError(ErrCodeBadRequest, "connection not registered")
	}
	if prev == 0 {
		return coreError(ErrCodeNotInRoom, "not in a room")
	}
	return nil
}

// JoinGroup validates that the connection durably belongs to the group and
// may therefore send and receive on it. Group delivery always targets the
// live sessions of the durable member set, so there is no per-connection
// subscription to record; durable membership is changed by
// AddMember/RemoveMember.
func (m *Membership) JoinGroup(ctx context.Context, c *Client, groupID int64) (*store.Group, error) {
	group, _, err := m.resolver.ResolveGroup(ctx, groupID, c.Identity.UserID)
	if err != nil {
		return nil, err
	}

	if _, ok := m.registry.Lookup(c.ConnID); !ok {
		return nil, coreError(ErrCodeBadRequest, "connection not registered")
	}

	return group, nil
}

// AddMember adds userID to the group on behalf of requestedBy, who must be
// a group admin. Adding an existing member is an idempotent no-op. Returns
// the refreshed member list after notifying live members.
func (m *Membership) AddMember(ctx context.Context, groupID, userID, requestedBy int64) ([]*store.GroupMember, error) {
	if _, err := m.store.GetGroupByID(ctx, groupID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, coreError(ErrCodeGroupNotFound, "group not found")
		}
		return nil, err
	}

	admin, err := m.store.IsGroupAdmin(ctx, groupID, requestedBy)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, coreError(ErrCodeForbidden, "only group admins can add members")
	}

	if _, err := m.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, coreError(ErrCodeUserNotFound, "user not found")
		}
		return nil, err
	}

	if err := m.store.AddGroupMember(ctx, groupID, userID, false); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return nil, err
	}

	return m.refreshAndNotify(ctx, groupID, nil)
}

// RemoveMember removes userID from the group. Permitted for the user
// themselves (self-leave) and for group admins; anyone else is rejected.
func (m *Membership) RemoveMember(ctx context.Context, groupID, userID, requestedBy int64) ([]*store.GroupMember, error) {
	if _, err := m.store.GetGroupByID(ctx, groupID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, coreError(ErrCodeGroupNotFound, "group not found")
		}
		return nil, err
	}

	if requestedBy != userID {
		admin, err := m.store.IsGroupAdmin(ctx, groupID, requestedBy)
		if err != nil {
			return nil, err
		}
		if !admin {
			return nil, coreError(ErrCodeForbidden, "only group admins can remove other members")
		}
	}

	// Snapshot the member set before removal so the removed user is still
	// told about the change.
	before, err := m.store.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if err := m.store.RemoveGroupMember(ctx, groupID, userID); err != nil {
		return nil, err
	}

	notifyIDs := make([]int64, 0, len(before))
	for _, member := range before {
		notifyIDs = append(notifyIDs, member.UserID)
	}

	return m.refreshAndNotify(ctx, groupID, notifyIDs)
}

// refreshAndNotify reloads the member list and pushes a group:updated event
// to every live connection of the affected users. notifyIDs overrides the
// notification targets; nil means the refreshed member set.
func (m *Membership) refreshAndNotify(ctx context.Context, groupID int64, notifyIDs []int64) ([]*store.GroupMember, error) {
	members, err := m.store.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}

	if notifyIDs == nil {
		notifyIDs = make([]int64, 0, len(members))
		for _, member := range members {
			notifyIDs = append(notifyIDs, member.UserID)
		}
	}

	ev := &Event{Kind: EventGroupUpdated, Group: &GroupUpdate{GroupID: groupID, Members: members}}
	for _, c := range m.registry.ClientsForUsers(notifyIDs) {
		c.send(ev)
	}

	return members, nil
}
