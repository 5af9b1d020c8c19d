package core

import "fmt"

// ChannelKind tags the variants of a ChannelRef.
type ChannelKind int

const (
	// ChannelGlobal is the single broadcast feed every session subscribes to.
	ChannelGlobal ChannelKind = iota
	// ChannelRoom is a named public room.
	ChannelRoom
	// ChannelGroup is a multi-member group with explicit membership.
	ChannelGroup
	// ChannelDirect is a two-user direct conversation.
	ChannelDirect
)

// ChannelRef addresses a broadcast target. Two refs are equal iff their
// kind and id match; the global channel has id 0.
type ChannelRef struct {
	Kind ChannelKind
	ID   int64
}

// GlobalChannel returns the ref for the global feed.
func GlobalChannel() ChannelRef {
	return ChannelRef{Kind: ChannelGlobal}
}

// RoomChannel returns the ref for a room id.
func RoomChannel(roomID int64) ChannelRef {
	return ChannelRef{Kind: ChannelRoom, ID: roomID}
}

// GroupChannel returns the ref for a group id.
func GroupChannel(groupID int64) ChannelRef {
	return ChannelRef{Kind: ChannelGroup, ID: groupID}
}

// DirectChannel returns the ref for a conversation id.
func DirectChannel(conversationID int64) ChannelRef {
	return ChannelRef{Kind: ChannelDirect, ID: conversationID}
}

func (r ChannelRef) String() string {
	switch r.Kind {
	case ChannelGlobal:
		return "global"
	case ChannelRoom:
		return fmt.Sprintf("room:%d", r.ID)
	case ChannelGroup:
		return fmt.Sprintf("group:%d", r.ID)
	case ChannelDirect:
		return fmt.Sprintf("direct:%d", r.ID)
	default:
		return fmt.Sprintf("unknown:%d", r.ID)
	}
}
