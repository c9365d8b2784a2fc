package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"social-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, sender_username, receiver_id, receiver_username, content, type,
        image_uri, audio_uri, reply_to_message_id, timestamp, is_read, is_delivered, is_edited, is_deleted,
        edited_at, deleted_at, group_id, is_group_message`

// MessageRepository is the message log: append, pair and participant queries,
// and single-row flag updates.
type MessageRepository interface {
	Create(ctx context.Context, msg *models.Message) (models.Message, error)
	GetByID(ctx context.Context, messageID int) (models.Message, error)
	ConversationBetween(ctx context.Context, userA, userB string) ([]models.Message, error)
	AllForParticipant(ctx context.Context, email string) ([]models.Message, error)
	UnreadForReceiver(ctx context.Context, email string) ([]models.Message, error)
	CountUnreadFrom(ctx context.Context, receiver, sender string) (int64, error)
	MarkRead(ctx context.Context, messageID int) error
	UpdateContent(ctx context.Context, messageID int, content string, editedAt time.Time) error
	MarkDeleted(ctx context.Context, messageID int, deletedAt time.Time) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create appends a message and returns the stored row.
func (r *MessageRepo) Create(ctx context.Context, msg *models.Message) (models.Message, error) {
	var stored models.Message
	err := r.db.GetContext(ctx, &stored, `INSERT INTO messages
        (sender_id, sender_username, receiver_id, receiver_username, content, type, image_uri, audio_uri,
         reply_to_message_id, timestamp, is_read, is_delivered, is_group_message)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING `+messageColumns,
		msg.SenderID, msg.SenderUsername, msg.ReceiverID, msg.ReceiverUsername, msg.Content, msg.Type,
		msg.ImageURI, msg.AudioURI, msg.ReplyToMessageID, msg.Timestamp, msg.IsRead, msg.IsDelivered,
		msg.IsGroupMessage)
	return stored, err
}

// GetByID retrieves a single message.
func (r *MessageRepo) GetByID(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// ConversationBetween returns every non-group message of the unordered pair,
// ascending by timestamp with insertion order breaking ties.
func (r *MessageRepo) ConversationBetween(ctx context.Context, userA, userB string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE ((sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1))
        AND is_group_message = FALSE
        ORDER BY timestamp ASC, id ASC`, userA, userB)
	return msgs, err
}

// AllForParticipant returns every non-group message the account sent or
// received.
func (r *MessageRepo) AllForParticipant(ctx context.Context, email string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE (sender_id=$1 OR receiver_id=$1) AND is_group_message = FALSE
        ORDER BY timestamp ASC, id ASC`, email)
	return msgs, err
}

// UnreadForReceiver returns the account's unread messages, newest first.
func (r *MessageRepo) UnreadForReceiver(ctx context.Context, email string) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE receiver_id=$1 AND is_read = FALSE
        ORDER BY timestamp DESC, id DESC`, email)
	return msgs, err
}

// CountUnreadFrom counts unread messages addressed to receiver from sender.
func (r *MessageRepo) CountUnreadFrom(ctx context.Context, receiver, sender string) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages
        WHERE receiver_id=$1 AND sender_id=$2 AND is_read = FALSE`, receiver, sender)
	return count, err
}

// MarkRead flips a single message to read.
func (r *MessageRepo) MarkRead(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read = TRUE WHERE id=$1`, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// UpdateContent edits a message body, marking it edited exactly once.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int, content string, editedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET content=$1, is_edited = TRUE, edited_at=$2 WHERE id=$3`,
		content, editedAt, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkDeleted soft-deletes a message, marking it deleted exactly once.
func (r *MessageRepo) MarkDeleted(ctx context.Context, messageID int, deletedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = TRUE, deleted_at=$1 WHERE id=$2`,
		deletedAt, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}
