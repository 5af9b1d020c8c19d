package proto

import "encoding/json"

// Inbound is the envelope for events coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Inbound event types.
const (
	InboundRoomCreate = "room:create"
	InboundRoomJoin   = "room:join"
	InboundRoomLeave  = "room:leave"
	InboundSend       = "message:send"
	InboundRoomSend   = "room:message:send"
	InboundDirectSend = "direct:message:send"
	InboundGroupSend  = "group:message:send"
	InboundGroupJoin  = "group:join"
)

// Outbound event names.
const (
	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessageReceived       = "message:received"
	EventRoomMessageReceived   = "room:message:received"
	EventDirectMessageReceived = "direct:message:received"
	EventGroupMessageReceived  = "group:message:received"
	EventRoomCreated           = "room:created"
	EventRoomUserJoined        = "room:user-joined"
	EventUserJoined            = "user:joined"
	EventUserLeft              = "user:left"
	EventConversationUpdated   = "conversation:updated"
	EventGroupUpdated          = "group:updated"
)

// RoomData names a room for create/join requests.
type RoomData struct {
	Name string `json:"name"`
}

// SendData is a global chat message from the client.
type SendData struct {
	Content string `json:"content"`
}

// RoomSendData is a room message from the client.
type RoomSendData struct {
	RoomName string `json:"roomName"`
	Content  string `json:"content"`
}

// DirectSendData is a direct message from the client.
type DirectSendData struct {
	RecipientID int64  `json:"recipientId"`
	Content     string `json:"content"`
}

// GroupSendData is a group message from the client.
type GroupSendData struct {
	GroupID int64  `json:"groupId"`
	Content string `json:"content"`
}

// GroupJoinData subscribes the connection to a group channel.
type GroupJoinData struct {
	GroupID int64 `json:"groupId"`
}

// Outbound is the envelope for events sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// MessagePayload carries a delivered message. Exactly one of RoomID,
// ConversationID, GroupID is set for non-global channels.
type MessagePayload struct {
	ID             int64  `json:"id"`
	RoomID         int64  `json:"roomId,omitempty"`
	ConversationID int64  `json:"conversationId,omitempty"`
	GroupID        int64  `json:"groupId,omitempty"`
	UserID         int64  `json:"userId"`
	Username       string `json:"username"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

// RoomPayload describes a room for room:created.
type RoomPayload struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RoomUserJoinedPayload notifies room occupants about a new participant.
type RoomUserJoinedPayload struct {
	RoomID   int64  `json:"roomId"`
	Username string `json:"username"`
}

// UserPayload describes a user for presence events.
type UserPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
}

// ConversationPayload describes a direct conversation.
type ConversationPayload struct {
	ID           int64   `json:"id"`
	Participants []int64 `json:"participants"`
}

// GroupUpdatedPayload carries the refreshed member list of a group.
type GroupUpdatedPayload struct {
	GroupID int64                `json:"groupId"`
	Members []GroupMemberPayload `json:"members"`
}

// GroupMemberPayload describes one group member.
type GroupMemberPayload struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
