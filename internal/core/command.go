package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendGlobal delivers a chat message to the global feed.
	CommandSendGlobal CommandKind = iota
	// CommandCreateRoom resolves or creates a named room.
	CommandCreateRoom
	// CommandJoinRoom switches the connection into a room.
	CommandJoinRoom
	// CommandLeaveRoom leaves the connection's current room.
	CommandLeaveRoom
	// CommandSendRoom delivers a chat message to a room.
	CommandSendRoom
	// CommandSendDirect delivers a message to a direct conversation.
	CommandSendDirect
	// CommandSendGroup delivers a message to a group.
	CommandSendGroup
	// CommandJoinGroup subscribes the connection to a group it belongs to.
	CommandJoinGroup
)

// Command represents an action requested by a client.
type Command struct {
	Kind        CommandKind
	RoomName    string
	GroupID     int64
	RecipientID int64
	Content     string
}
