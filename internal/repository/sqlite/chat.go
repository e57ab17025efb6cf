package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/startup-nation/internal/apperror"
	"github.com/sakif/startup-nation/internal/model"
	"github.com/sakif/startup-nation/internal/repository"
)

// compile-time check that *DB implements repository.ChatRepository
var _ repository.ChatRepository = (*DB)(nil)

// ListRooms returns the rooms the user belongs to, most recently active
// first. Members, last message, and message count are loaded per room —
// a user's room list is small, so the extra round trips stay cheap and the
// queries stay fixed shapes.
func (db *DB) ListRooms(ctx context.Context, userID string) ([]model.ChatRoom, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT r.id, r.name, r.type, r.created_at, r.updated_at
		 FROM chat_rooms r
		 JOIN chat_room_members m ON m.room_id = r.id
		 WHERE m.user_id = ?
		 ORDER BY r.updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing rooms for user %s: %w", userID, err)
	}
	defer rows.Close()

	rooms := []model.ChatRoom{}
	for rows.Next() {
		var r model.ChatRoom
		if err := rows.Scan(&r.ID, &r.Name, &r.Type, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning room row: %w", err)
		}
		rooms = append(rooms, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating room rows: %w", err)
	}

	for i := range rooms {
		if err := db.fillRoomDetails(ctx, &rooms[i]); err != nil {
			return nil, err
		}
	}
	return rooms, nil
}

// fillRoomDetails loads a room's members, last message, and message count.
func (db *DB) fillRoomDetails(ctx context.Context, room *model.ChatRoom) error {
	members, err := db.roomMembers(ctx, room.ID)
	if err != nil {
		return err
	}
	room.Members = members

	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE room_id = ?`, room.ID,
	).Scan(&room.MessageCount)
	if err != nil {
		return fmt.Errorf("sqlite: counting messages for room %s: %w", room.ID, err)
	}

	msgs, err := db.ListMessages(ctx, room.ID, 1, 0)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		room.LastMessage = &msgs[0]
	}
	return nil
}

func (db *DB) roomMembers(ctx context.Context, roomID string) ([]model.PublicUser, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT u.id, u.name, u.username, u.image
		 FROM chat_room_members m
		 JOIN users u ON u.id = m.user_id
		 WHERE m.room_id = ?
		 ORDER BY u.name`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing members for room %s: %w", roomID, err)
	}
	defer rows.Close()

	members := []model.PublicUser{}
	for rows.Next() {
		var u model.PublicUser
		if err := rows.Scan(&u.ID, &u.Name, &u.Username, &u.Image); err != nil {
			return nil, fmt.Errorf("sqlite: scanning member row: %w", err)
		}
		members = append(members, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating member rows: %w", err)
	}
	return members, nil
}

// FindDirectRoom returns an existing DIRECT room whose membership is exactly
// {a, b}, in either order, or apperror.ErrNotFound.
//
// The shape: a DIRECT room containing both users whose total member count is
// two. The count check matters — "contains both" alone would also match a
// hypothetical larger room.
func (db *DB) FindDirectRoom(ctx context.Context, a, b string) (*model.ChatRoom, error) {
	var r model.ChatRoom
	err := db.conn.QueryRowContext(ctx,
		`SELECT r.id, r.name, r.type, r.created_at, r.updated_at
		 FROM chat_rooms r
		 WHERE r.type = 'DIRECT'
		   AND EXISTS (SELECT 1 FROM chat_room_members WHERE room_id = r.id AND user_id = ?)
		   AND EXISTS (SELECT 1 FROM chat_room_members WHERE room_id = r.id AND user_id = ?)
		   AND (SELECT COUNT(*) FROM chat_room_members WHERE room_id = r.id) = 2
		 LIMIT 1`,
		a, b,
	).Scan(&r.ID, &r.Name, &r.Type, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("chat room", a+"+"+b)
		}
		return nil, fmt.Errorf("sqlite: finding direct room: %w", err)
	}
	if err := db.fillRoomDetails(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateRoom inserts the room and its membership rows in one transaction —
// a room visible without its members would break every membership check.
func (db *DB) CreateRoom(ctx context.Context, room *model.ChatRoom, memberIDs []string) error {
	now := time.Now()
	room.ID = xid.New().String()
	room.CreatedAt = now
	room.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning room transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_rooms (id, name, type, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		room.ID, room.Name, room.Type, room.CreatedAt, room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting room: %w", err)
	}

	for _, userID := range memberIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chat_room_members (room_id, user_id) VALUES (?, ?)`,
			room.ID, userID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: inserting room member %s: %w", userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing room transaction: %w", err)
	}

	return db.fillRoomDetails(ctx, room)
}

// GetRoom retrieves a room with its details.
func (db *DB) GetRoom(ctx context.Context, roomID string) (*model.ChatRoom, error) {
	var r model.ChatRoom
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, type, created_at, updated_at FROM chat_rooms WHERE id = ?`,
		roomID,
	).Scan(&r.ID, &r.Name, &r.Type, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("chat room", roomID)
		}
		return nil, fmt.Errorf("sqlite: getting room %s: %w", roomID, err)
	}
	if err := db.fillRoomDetails(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// IsMember reports whether the user currently belongs to the room.
// Membership is re-checked per call, never cached.
func (db *DB) IsMember(ctx context.Context, roomID, userID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_room_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking room membership: %w", err)
	}
	return n > 0, nil
}

// ListMessages returns one page of a room's messages, NEWEST first — the
// storage-layer order. The service reverses each page so consumers always
// receive oldest-first ordering.
func (db *DB) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]model.Message, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT m.id, m.content, m.room_id, m.sender_id, m.created_at,
			u.id, u.name, u.username, u.image
		 FROM messages m
		 JOIN users u ON u.id = m.sender_id
		 WHERE m.room_id = ?
		 ORDER BY m.created_at DESC, m.id DESC
		 LIMIT ? OFFSET ?`,
		roomID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing messages for room %s: %w", roomID, err)
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(
			&m.ID, &m.Content, &m.RoomID, &m.SenderID, &m.CreatedAt,
			&m.Sender.ID, &m.Sender.Name, &m.Sender.Username, &m.Sender.Image,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating message rows: %w", err)
	}
	return msgs, nil
}

// CreateMessage inserts the message and bumps the room's updated_at so the
// room list sorts by recent activity.
func (db *DB) CreateMessage(ctx context.Context, msg *model.Message) error {
	msg.ID = xid.New().String()
	msg.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO messages (id, content, room_id, sender_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.Content, msg.RoomID, msg.SenderID, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting message: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`UPDATE chat_rooms SET updated_at = ? WHERE id = ?`,
		msg.CreatedAt, msg.RoomID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: bumping room %s: %w", msg.RoomID, err)
	}

	// Fill the sender for the response body.
	err = db.conn.QueryRowContext(ctx,
		`SELECT id, name, username, image FROM users WHERE id = ?`, msg.SenderID,
	).Scan(&msg.Sender.ID, &msg.Sender.Name, &msg.Sender.Username, &msg.Sender.Image)
	if err != nil {
		return fmt.Errorf("sqlite: loading message sender: %w", err)
	}
	return nil
}
