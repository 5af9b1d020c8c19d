package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/apaluca/PrivateChat/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file (":memory:" for tests).
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// classify maps driver-level errors onto the store sentinels so callers can
// use errors.Is without knowing about SQLite.
func classify(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", store.ErrNotFound, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		if se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %w", store.ErrDuplicate, err)
		}
	}
	return err
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE id = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", classify(err))
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = ?
	`
	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", classify(err))
	}

	return &user, nil
}

// SearchUsers searches for users whose username contains query.
func (s *SQLiteStore) SearchUsers(ctx context.Context, query string, limit int) ([]*store.User, error) {
	q := `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username LIKE ?
		ORDER BY username ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		var user store.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// ==== RoomStore implementation ====

// CreateRoom creates a new room.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name, nameKey string) (*store.Room, error) {
	query := `
		INSERT INTO rooms (name, name_key)
		VALUES (?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, name, nameKey)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, name, name_key, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.NameKey,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query room: %w", classify(err))
	}

	return &room, nil
}

// GetRoomByNameKey retrieves a room by its normalized name key.
func (s *SQLiteStore) GetRoomByNameKey(ctx context.Context, nameKey string) (*store.Room, error) {
	query := `
		SELECT id, name, name_key, created_at
		FROM rooms
		WHERE name_key = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, nameKey).Scan(
		&room.ID,
		&room.Name,
		&room.NameKey,
		&room.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query room: %w", classify(err))
	}

	return &room, nil
}

// ListRooms lists all rooms.
func (s *SQLiteStore) ListRooms(ctx context.Context) ([]*store.Room, error) {
	query := `
		SELECT id, name, name_key, created_at
		FROM rooms
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.Room
	for rows.Next() {
		var room store.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.NameKey, &room.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, &room)
	}

	return rooms, rows.Err()
}

// ==== GroupStore implementation ====

// CreateGroup creates a group and adds the owner as its first admin member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, name string, ownerID int64) (*store.Group, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `INSERT INTO groups (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert group: %w", classify(err))
	}

	groupID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO group_members (group_id, user_id, is_admin) VALUES (?, ?, 1)`,
		groupID, ownerID,
	); err != nil {
		return nil, fmt.Errorf("insert owner member: %w", classify(err))
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetGroupByID(ctx, groupID)
}

// GetGroupByID retrieves a group by ID.
func (s *SQLiteStore) GetGroupByID(ctx context.Context, id int64) (*store.Group, error) {
	query := `
		SELECT id, name, owner_id, created_at
		FROM groups
		WHERE id = ?
	`
	var group store.Group
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.OwnerID,
		&group.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query group: %w", classify(err))
	}

	return &group, nil
}

// IsGroupMember checks if user belongs to the group.
func (s *SQLiteStore) IsGroupMember(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM group_members
		WHERE group_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query membership: %w", err)
	}

	return true, nil
}

// IsGroupAdmin checks if user is an admin of the group.
func (s *SQLiteStore) IsGroupAdmin(ctx context.Context, groupID, userID int64) (bool, error) {
	query := `
		SELECT is_admin FROM group_members
		WHERE group_id = ? AND user_id = ?
	`
	var isAdmin bool
	err := s.db.QueryRowContext(ctx, query, groupID, userID).Scan(&isAdmin)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query membership: %w", err)
	}

	return isAdmin, nil
}

// GetGroupMembers lists all members of a group with usernames.
func (s *SQLiteStore) GetGroupMembers(ctx context.Context, groupID int64) ([]*store.GroupMember, error) {
	query := `
		SELECT gm.group_id, gm.user_id, u.username, gm.is_admin, gm.joined_at
		FROM group_members gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = ?
		ORDER BY gm.joined_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*store.GroupMember
	for rows.Next() {
		var m store.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Username, &m.IsAdmin, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, &m)
	}

	return members, rows.Err()
}

// AddGroupMember adds a user to a group.
func (s *SQLiteStore) AddGroupMember(ctx context.Context, groupID, userID int64, isAdmin bool) error {
	query := `
		INSERT INTO group_members (group_id, user_id, is_admin)
		VALUES (?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID, isAdmin); err != nil {
		return fmt.Errorf("insert group member: %w", classify(err))
	}

	return nil
}

// RemoveGroupMember removes a user from a group.
func (s *SQLiteStore) RemoveGroupMember(ctx context.Context, groupID, userID int64) error {
	query := `
		DELETE FROM group_members
		WHERE group_id = ? AND user_id = ?
	`
	if _, err := s.db.ExecContext(ctx, query, groupID, userID); err != nil {
		return fmt.Errorf("delete group member: %w", err)
	}

	return nil
}

// ListGroups lists groups the user belongs to.
func (s *SQLiteStore) ListGroups(ctx context.Context, userID int64) ([]*store.Group, error) {
	query := `
		SELECT g.id, g.name, g.owner_id, g.created_at
		FROM groups g
		JOIN group_members gm ON g.id = gm.group_id
		WHERE gm.user_id = ?
		ORDER BY g.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query groups: %w", err)
	}
	defer rows.Close()

	var groups []*store.Group
	for rows.Next() {
		var group store.Group
		if err := rows.Scan(&group.ID, &group.Name, &group.OwnerID, &group.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, &group)
	}

	return groups, rows.Err()
}

// ==== ConversationStore implementation ====

// GetOrCreateConversation resolves the conversation between two users,
// creating it if missing. Racing creators converge on the winner's row via
// the (user_min_id, user_max_id) uniqueness constraint.
func (s *SQLiteStore) GetOrCreateConversation(ctx context.Context, userA, userB int64) (*store.Conversation, bool, error) {
	minID, maxID := userA, userB
	if minID > maxID {
		minID, maxID = maxID, minID
	}

	conv, err := s.getConversationByPair(ctx, minID, maxID)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, err
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (user_min_id, user_max_id) VALUES (?, ?)`,
		minID, maxID,
	)
	if err != nil {
		classified := classify(err)
		if errors.Is(classified, store.ErrDuplicate) {
			// Lost the create race; the winner's row is now there.
			conv, getErr := s.getConversationByPair(ctx, minID, maxID)
			if getErr != nil {
				return nil, false, getErr
			}
			return conv, false, nil
		}
		return nil, false, fmt.Errorf("insert conversation: %w", classified)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("get last insert id: %w", err)
	}

	conv, err = s.GetConversationByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

func (s *SQLiteStore) getConversationByPair(ctx context.Context, minID, maxID int64) (*store.Conversation, error) {
	query := `
		SELECT id, user_min_id, user_max_id, created_at
		FROM conversations
		WHERE user_min_id = ? AND user_max_id = ?
	`
	var conv store.Conversation
	err := s.db.QueryRowContext(ctx, query, minID, maxID).Scan(
		&conv.ID,
		&conv.UserMinID,
		&conv.UserMaxID,
		&conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", classify(err))
	}

	return &conv, nil
}

// GetConversationByID retrieves a conversation by ID.
func (s *SQLiteStore) GetConversationByID(ctx context.Context, id int64) (*store.Conversation, error) {
	query := `
		SELECT id, user_min_id, user_max_id, created_at
		FROM conversations
		WHERE id = ?
	`
	var conv store.Conversation
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&conv.ID,
		&conv.UserMinID,
		&conv.UserMaxID,
		&conv.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query conversation: %w", classify(err))
	}

	return &conv, nil
}

// ListConversations lists conversations the user participates in.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]*store.Conversation, error) {
	query := `
		SELECT id, user_min_id, user_max_id, created_at
		FROM conversations
		WHERE user_min_id = ? OR user_max_id = ?
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []*store.Conversation
	for rows.Next() {
		var conv store.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserMinID, &conv.UserMaxID, &conv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, &conv)
	}

	return convs, rows.Err()
}

// ==== MessageStore implementation ====

// CreateMessage persists a global-channel message.
func (s *SQLiteStore) CreateMessage(ctx context.Context, userID int64, content string, createdAt time.Time) (int64, error) {
	return s.insertMessage(ctx,
		`INSERT INTO messages (user_id, content, created_at) VALUES (?, ?, ?)`,
		userID, content, createdAt,
	)
}

// CreateRoomMessage persists a room message.
func (s *SQLiteStore) CreateRoomMessage(ctx context.Context, roomID, userID int64, content string, createdAt time.Time) (int64, error) {
	return s.insertMessage(ctx,
		`INSERT INTO room_messages (room_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		roomID, userID, content, createdAt,
	)
}

// CreateDirectMessage persists a direct-conversation message.
func (s *SQLiteStore) CreateDirectMessage(ctx context.Context, conversationID, userID int64, content string, createdAt time.Time) (int64, error) {
	return s.insertMessage(ctx,
		`INSERT INTO direct_messages (conversation_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		conversationID, userID, content, createdAt,
	)
}

// CreateGroupMessage persists a group message.
func (s *SQLiteStore) CreateGroupMessage(ctx context.Context, groupID, userID int64, content string, createdAt time.Time) (int64, error) {
	return s.insertMessage(ctx,
		`INSERT INTO group_messages (group_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		groupID, userID, content, createdAt,
	)
}

func (s *SQLiteStore) insertMessage(ctx context.Context, query string, args ...interface{}) (int64, error) {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", classify(err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	return id, nil
}

// RecentMessages lists the most recent global messages in id order.
func (s *SQLiteStore) RecentMessages(ctx context.Context, limit int) ([]*store.Message, error) {
	query := `
		SELECT m.id, m.user_id, u.username, m.content, m.created_at
		FROM messages m
		JOIN users u ON m.user_id = u.id
		ORDER BY m.id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, limit)
}

// RoomMessages lists the most recent messages of a room in id order.
func (s *SQLiteStore) RoomMessages(ctx context.Context, roomID int64, limit int) ([]*store.Message, error) {
	query := `
		SELECT rm.id, rm.user_id, u.username, rm.content, rm.created_at
		FROM room_messages rm
		JOIN users u ON rm.user_id = u.id
		WHERE rm.room_id = ?
		ORDER BY rm.id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, roomID, limit)
}

// ConversationMessages lists the most recent messages of a conversation in id order.
func (s *SQLiteStore) ConversationMessages(ctx context.Context, conversationID int64, limit int) ([]*store.Message, error) {
	query := `
		SELECT dm.id, dm.user_id, u.username, dm.content, dm.created_at
		FROM direct_messages dm
		JOIN users u ON dm.user_id = u.id
		WHERE dm.conversation_id = ?
		ORDER BY dm.id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, conversationID, limit)
}

// GroupMessages lists the most recent messages of a group in id order.
func (s *SQLiteStore) GroupMessages(ctx context.Context, groupID int64, limit int) ([]*store.Message, error) {
	query := `
		SELECT gm.id, gm.user_id, u.username, gm.content, gm.created_at
		FROM group_messages gm
		JOIN users u ON gm.user_id = u.id
		WHERE gm.group_id = ?
		ORDER BY gm.id DESC
		LIMIT ?
	`
	return s.listMessages(ctx, query, groupID, limit)
}

func (s *SQLiteStore) listMessages(ctx context.Context, query string, args ...interface{}) ([]*store.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.UserID, &msg.Username, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to get chronological order
	for i := 0; i < len(messages)/2; i++ {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
