package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when an insert violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Room represents a named public chat room.
// Name keeps the creator's casing; NameKey is the normalized uniqueness key.
type Room struct {
	ID        int64
	Name      string
	NameKey   string
	CreatedAt time.Time
}

// Group represents a multi-member group channel with explicit membership.
type Group struct {
	ID        int64
	Name      string
	OwnerID   int64
	CreatedAt time.Time
}

// GroupMember represents durable group membership.
type GroupMember struct {
	GroupID  int64
	UserID   int64
	Username string
	IsAdmin  bool
	JoinedAt time.Time
}

// Conversation represents a direct conversation between two users.
// The pair is canonicalized so UserMinID < UserMaxID.
type Conversation struct {
	ID        int64
	UserMinID int64
	UserMaxID int64
	CreatedAt time.Time
}

// Participants returns both user ids of the conversation.
func (c *Conversation) Participants() []int64 {
	return []int64{c.UserMinID, c.UserMaxID}
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.UserMinID || userID == c.UserMaxID
}

// Message represents a persisted chat message as read back for history,
// joined with the sender's username.
type Message struct {
	ID        int64
	UserID    int64
	Username  string
	Content   string
	CreatedAt time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)

	// SearchUsers searches for users whose username contains query.
	SearchUsers(ctx context.Context, query string, limit int) ([]*User, error)
}

// RoomStore handles room persistence.
type RoomStore interface {
	// CreateRoom creates a new room. The nameKey uniqueness constraint is
	// the final arbiter for concurrent creates; losers get ErrDuplicate.
	CreateRoom(ctx context.Context, name, nameKey string) (*Room, error)

	// GetRoomByID retrieves a room by ID.
	GetRoomByID(ctx context.Context, id int64) (*Room, error)

	// GetRoomByNameKey retrieves a room by its normalized name key.
	GetRoomByNameKey(ctx context.Context, nameKey string) (*Room, error)

	// ListRooms lists all rooms.
	ListRooms(ctx context.Context) ([]*Room, error)
}

// GroupStore handles group and group membership persistence.
type GroupStore interface {
	// CreateGroup creates a group and adds the owner as its first admin member.
	CreateGroup(ctx context.Context, name string, ownerID int64) (*Group, error)

	// GetGroupByID retrieves a group by ID.
	GetGroupByID(ctx context.Context, id int64) (*Group, error)

	// IsGroupMember checks if user belongs to the group.
	IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error)

	// IsGroupAdmin checks if user is an admin of the group.
	IsGroupAdmin(ctx context.Context, groupID, userID int64) (bool, error)

	// GetGroupMembers lists all members of a group with usernames.
	GetGroupMembers(ctx context.Context, groupID int64) ([]*GroupMember, error)

	// AddGroupMember adds a user to a group. Returns ErrDuplicate if already present.
	AddGroupMember(ctx context.Context, groupID, userID int64, isAdmin bool) error

	// RemoveGroupMember removes a user from a group.
	RemoveGroupMember(ctx context.Context, groupID, userID int64) error

	// ListGroups lists groups the user belongs to.
	ListGroups(ctx context.Context, userID int64) ([]*Group, error)
}

// ConversationStore handles direct conversation persistence.
type ConversationStore interface {
	// GetOrCreateConversation resolves the conversation between two users,
	// creating it if missing. The (min,max) uniqueness constraint makes
	// racing creators converge on one row. Returns created=true when this
	// call inserted the row.
	GetOrCreateConversation(ctx context.Context, userA, userB int64) (conv *Conversation, created bool, err error)

	// GetConversationByID retrieves a conversation by ID.
	GetConversationByID(ctx context.Context, id int64) (*Conversation, error)

	// ListConversations lists conversations the user participates in.
	ListConversations(ctx context.Context, userID int64) ([]*Conversation, error)
}

// MessageStore handles message persistence. Each create returns the durable
// id assigned by storage; the relay broadcasts messages only under that id.
type MessageStore interface {
	// CreateMessage persists a global-channel message.
	CreateMessage(ctx context.Context, userID int64, content string, createdAt time.Time) (int64, error)

	// CreateRoomMessage persists a room message.
	CreateRoomMessage(ctx context.Context, roomID, userID int64, content string, createdAt time.Time) (int64, error)

	// CreateDirectMessage persists a direct-conversation message.
	CreateDirectMessage(ctx context.Context, conversationID, userID int64, content string, createdAt time.Time) (int64, error)

	// CreateGroupMessage persists a group message.
	CreateGroupMessage(ctx context.Context, groupID, userID int64, content string, createdAt time.Time) (int64, error)

	// RecentMessages lists the most recent global messages in id order.
	RecentMessages(ctx context.Context, limit int) ([]*Message, error)

	// RoomMessages lists the most recent messages of a room in id order.
	RoomMessages(ctx context.Context, roomID int64, limit int) ([]*Message, error)

	// ConversationMessages lists the most recent messages of a conversation in id order.
	ConversationMessages(ctx context.Context, conversationID int64, limit int) ([]*Message, error)

	// GroupMessages lists the most recent messages of a group in id order.
	GroupMessages(ctx context.Context, groupID int64, limit int) ([]*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	RoomStore
	GroupStore
	ConversationStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
