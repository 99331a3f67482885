package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"

	"chatserver/internal/apperror"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetRoom(ctx context.Context, roomID int64) (*Room, error) {
	room := &Room{}
	query := `SELECT id, name, is_group, created_at FROM chat_rooms WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, roomID).
		Scan(&room.ID, &room.Name, &room.IsGroup, &room.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("room cannot be found")
		}
		return nil, err
	}
	return room, nil
}

func (r *Repository) CreateRoom(ctx context.Context, name string, isGroup bool, memberIDs ...int64) (*Room, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	room := &Room{Name: name, IsGroup: isGroup}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO chat_rooms (name, is_group) VALUES ($1, $2) RETURNING id, created_at`,
		name, isGroup,
	).Scan(&room.ID, &room.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, memberID := range memberIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO chat_participants (room_id, member_id) VALUES ($1, $2)`,
			room.ID, memberID,
		)
		if err != nil {
			return nil, err
		}
	}

	return room, tx.Commit()
}

// DeleteRoom removes the room and everything it owns in one transaction:
// read rows, then messages, then participants, then the room itself.
func (r *Repository) DeleteRoom(ctx context.Context, roomID int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM read_statuses WHERE room_id = $1`,
		`DELETE FROM chat_messages WHERE room_id = $1`,
		`DELETE FROM chat_participants WHERE room_id = $1`,
		`DELETE FROM chat_rooms WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, roomID); err != nil {
			return fmt.Errorf("cascade delete: %w", err)
		}
	}

	return tx.Commit()
}

func (r *Repository) ListGroupRooms(ctx context.Context) ([]Room, error) {
	query := `SELECT id, name, is_group, created_at FROM chat_rooms WHERE is_group = TRUE ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []Room
	for rows.Next() {
		var room Room
		if err := rows.Scan(&room.ID, &room.Name, &room.IsGroup, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *Repository) RoomSummaries(ctx context.Context, memberID int64) ([]RoomSummary, error) {
	query := `
		SELECT r.id, r.name, r.is_group,
		       (SELECT COUNT(*) FROM read_statuses rs
		         WHERE rs.room_id = r.id AND rs.member_id = p.member_id AND rs.is_read = FALSE)
		FROM chat_participants p
		JOIN chat_rooms r ON r.id = p.room_id
		WHERE p.member_id = $1
		ORDER BY r.id
	`
	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []RoomSummary
	for rows.Next() {
		var s RoomSummary
		if err := rows.Scan(&s.RoomID, &s.RoomName, &s.IsGroup, &s.UnreadCount); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *Repository) AddParticipant(ctx context.Context, roomID, memberID int64) error {
	// The (room_id, member_id) primary key makes a double-join a conflict;
	// callers treat "already joined" as a no-op.
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_participants (room_id, member_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		roomID, memberID,
	)
	return err
}

func (r *Repository) RemoveParticipant(ctx context.Context, roomID, memberID int64) (int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM chat_participants WHERE room_id = $1 AND member_id = $2`,
		roomID, memberID,
	)
	if err != nil {
		return 0, err
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted == 0 {
		return 0, apperror.NotFound("participant cannot be found")
	}

	var remaining int64
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM chat_participants WHERE room_id = $1`,
		roomID,
	).Scan(&remaining)
	if err != nil {
		return 0, err
	}

	return remaining, tx.Commit()
}

func (r *Repository) IsParticipant(ctx context.Context, roomID, memberID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_participants WHERE room_id = $1 AND member_id = $2)`,
		roomID, memberID,
	).Scan(&exists)
	return exists, err
}

// pairLockKey folds an ordered member pair into one bigint advisory lock key.
// The two-key lock form only takes int4 and would truncate large ids, so the
// full pair is hashed instead. A hash collision merely serialises an unrelated
// pair's creation; room lookup still goes by the actual participant ids.
func pairLockKey(lo, hi int64) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%d", lo, hi)
	return int64(h.Sum64())
}

// FindOrCreatePrivateRoom returns the id of the private room whose participant
// set is exactly {a, b}, creating it if absent. The check-then-create runs
// under a transaction-scoped advisory lock keyed on the unordered pair, so
// concurrent first-contact requests converge on a single room.
func (r *Repository) FindOrCreatePrivateRoom(ctx context.Context, name string, a, b int64) (int64, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, pairLockKey(lo, hi)); err != nil {
		return 0, err
	}

	var roomID int64
	err = tx.QueryRowContext(ctx, `
		SELECT cp1.room_id
		FROM chat_participants cp1
		JOIN chat_participants cp2 ON cp1.room_id = cp2.room_id
		JOIN chat_rooms r ON r.id = cp1.room_id
		WHERE cp1.member_id = $1 AND cp2.member_id = $2 AND r.is_group = FALSE
	`, lo, hi).Scan(&roomID)
	if err == nil {
		return roomID, tx.Commit()
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = tx.QueryRowContext(ctx,
		`INSERT INTO chat_rooms (name, is_group) VALUES ($1, FALSE) RETURNING id`,
		name,
	).Scan(&roomID)
	if err != nil {
		return 0, err
	}
	for _, memberID := range []int64{lo, hi} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chat_participants (room_id, member_id) VALUES ($1, $2)`,
			roomID, memberID,
		); err != nil {
			return 0, err
		}
	}

	return roomID, tx.Commit()
}

// SaveMessage persists the message and fans out one read-status row per
// current participant in the same transaction: the sender's row read, every
// other row unread. A message never exists without its full set of read rows,
// and later joiners gain no rows for it.
func (r *Repository) SaveMessage(ctx context.Context, roomID, senderID int64, content string) (*Message, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	msg := &Message{RoomID: roomID, MemberID: senderID, Content: content}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO chat_messages (room_id, member_id, content) VALUES ($1, $2, $3) RETURNING id, created_at`,
		roomID, senderID, content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO read_statuses (room_id, message_id, member_id, is_read)
		SELECT $1, $2, member_id, member_id = $3
		FROM chat_participants
		WHERE room_id = $1
	`, roomID, msg.ID, senderID)
	if err != nil {
		return nil, err
	}

	return msg, tx.Commit()
}

// MarkRead flips the member's unread rows in the room to read. Naturally
// idempotent: a second call matches no rows.
func (r *Repository) MarkRead(ctx context.Context, roomID, memberID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE read_statuses SET is_read = TRUE WHERE room_id = $1 AND member_id = $2 AND is_read = FALSE`,
		roomID, memberID,
	)
	return err
}

func (r *Repository) UnreadCount(ctx context.Context, roomID, memberID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM read_statuses WHERE room_id = $1 AND member_id = $2 AND is_read = FALSE`,
		roomID, memberID,
	).Scan(&count)
	return count, err
}

func (r *Repository) MessagesWithSenders(ctx context.Context, roomID int64) ([]ChatMessage, error) {
	query := `
		SELECT m.content, u.email, m.created_at, m.room_id
		FROM chat_messages m
		JOIN members u ON u.id = m.member_id
		WHERE m.room_id = $1
		ORDER BY m.created_at ASC, m.id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		if err := rows.Scan(&msg.Message, &msg.SenderEmail, &msg.CreatedTime, &msg.RoomID); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
