package core

import (
	"context"
	"errors"
	"strings"

	"github.com/apaluca/PrivateChat/internal/store"
)

// Resolver maps target descriptors (room names, group ids, user pairs) onto
// concrete channels, creating rooms and conversations on demand and
// rejecting unauthorized group access. It is, together with the membership
// synchronizer, the only caller of the store for membership decisions.
type Resolver struct {
	store           store.Store
	caseInsensitive bool
}

// NewResolver constructs a resolver. caseInsensitive controls whether two
// differently-cased room names refer to the same room.
func NewResolver(st store.Store, caseInsensitive bool) *Resolver {
	return &Resolver{store: st, caseInsensitive: caseInsensitive}
}

// NormalizeRoomName trims the given name and derives the lookup key under
// the configured case policy. The display form keeps the caller's casing.
func (r *Resolver) NormalizeRoomName(name string) (display, key string, err error) {
	display = strings.TrimSpace(name)
	if display == "" {
		return "", "", coreError(ErrCodeValidation, "room name is required")
	}
	key = display
	if r.caseInsensitive {
		key = strings.ToLower(display)
	}
	return display, key, nil
}

// ResolveOrCreateRoom returns the room with the given name, creating it if
// missing. A concurrent create racing past the existence check converges on
// the winner's row: the store's uniqueness constraint is the final arbiter
// and the loser observes "already exists", never an error.
func (r *Resolver) ResolveOrCreateRoom(ctx context.Context, name string) (*store.Room, bool, error) {
	display, key, err := r.NormalizeRoomName(name)
	if err != nil {
		return nil, false, err
	}

	room, err := r.store.GetRoomByNameKey(ctx, key)
	if err == nil {
		return room, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	room, err = r.store.CreateRoom(ctx, display, key)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			room, getErr := r.store.GetRoomByNameKey(ctx, key)
			if getErr != nil {
				return nil, false, getErr
			}
			return room, false, nil
		}
		return nil, false, err
	}

	return room, true, nil
}

// ResolveRoom returns the room with the given name without creating it.
func (r *Resolver) ResolveRoom(ctx context.Context, name string) (*store.Room, error) {
	_, key, err := r.NormalizeRoomName(name)
	if err != nil {
		return nil, err
	}

	room, err := r.store.GetRoomByNameKey(ctx, key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, coreError(ErrCodeRoomNotFound, "room not found")
		}
		return nil, err
	}
	return room, nil
}

// ResolveGroup returns the group channel for groupID together with its
// durable member ids, rejecting requesters that are not members. Groups are
// never auto-created. The member list is returned so the fanout path never
// has to query membership itself.
func (r *Resolver) ResolveGroup(ctx context.Context, groupID, requesterID int64) (*store.Group, []int64, error) {
	group, err := r.store.GetGroupByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, coreError(ErrCodeGroupNotFound, "group not found")
		}
		return nil, nil, err
	}

	members, err := r.store.GetGroupMembers(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}

	memberIDs := make([]int64, 0, len(members))
	requesterIsMember := false
	for _, m := range members {
		memberIDs = append(memberIDs, m.UserID)
		if m.UserID == requesterID {
			requesterIsMember = true
		}
	}
	if !requesterIsMember {
		return nil, nil, coreError(ErrCodeNotAMember, "not a member of this group")
	}

	return group, memberIDs, nil
}

// ResolveOrCreateDirect returns the conversation between requester and
// recipient, creating it if missing. The pair is canonicalized so that
// (A,B) and (B,A) always resolve to the same row.
func (r *Resolver) ResolveOrCreateDirect(ctx context.Context, requesterID, recipientID int64) (*store.Conversation, bool, error) {
	if recipientID == requesterID {
		return nil, false, coreError(ErrCodeValidation, "cannot start a conversation with yourself")
	}

	if _, err := r.store.GetUserByID(ctx, recipientID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, coreError(ErrCodeUserNotFound, "recipient not found")
		}
		return nil, false, err
	}

	return r.store.GetOrCreateConversation(ctx, requesterID, recipientID)
}
