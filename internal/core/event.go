package core

import "github.com/apaluca/PrivateChat/internal/store"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventGlobalMessage notifies clients about a message on the global feed.
	EventGlobalMessage EventKind = iota
	// EventRoomMessage notifies room occupants about a room message.
	EventRoomMessage
	// EventDirectMessage notifies conversation participants about a direct message.
	EventDirectMessage
	// EventGroupMessage notifies group members about a group message.
	EventGroupMessage
	// EventRoomCreated notifies all clients that a room was created.
	EventRoomCreated
	// EventRoomUserJoined notifies room occupants about a new participant.
	EventRoomUserJoined
	// EventUserJoined notifies all clients that a user connected.
	EventUserJoined
	// EventUserLeft notifies all clients that a user disconnected.
	EventUserLeft
	// EventConversationUpdated notifies both participants that a direct
	// conversation was created or changed.
	EventConversationUpdated
	// EventGroupUpdated notifies live group members about a membership change.
	EventGroupUpdated
	// EventError notifies the originating client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind         EventKind
	User         Identity
	RoomID       int64
	Room         *store.Room
	Message      Message
	Conversation *store.Conversation
	Group        *GroupUpdate
	Error        *CoreError
}

// GroupUpdate carries the refreshed member list after a membership change.
type GroupUpdate struct {
	GroupID int64
	Members []*store.GroupMember
}
