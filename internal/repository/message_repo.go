package repository

import (
	"context"
	"errors"
	"time"

	"github.com/campusmatch/backend/internal/db"
	"github.com/campusmatch/backend/internal/utils/pagination"

	"gorm.io/gorm"
)

// MessageRepository provides data access methods for the Message model.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new repository bound to the given DB connection.
func NewMessageRepository(database *gorm.DB) *MessageRepository {
	return &MessageRepository{db: database}
}

// Create persists a new message. Read state starts false.
func (r *MessageRepository) Create(ctx context.Context, msg *db.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// History returns one page of a conversation, newest first.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC.
//   - Supports cursor-based pagination via an opaque token; the next token
//     is returned when more rows remain.
//
// Example:
//
//	msgs, next, err := repo.History(ctx, matchID, nil, 50)
func (r *MessageRepository) History(
	ctx context.Context,
	matchID string,
	paginationToken *string,
	limit int,
) ([]db.Message, *string, error) {
	var messages []db.Message

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if !cursor.IsZero() {
		ts := time.Unix(0, cursor.CreatedNano)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.MessageID,
		)
	}

	if err := query.Find(&messages).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(messages) > limit {
		last := messages[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			MessageID:   last.ID,
			CreatedNano: last.CreatedAt.UnixNano(),
		})
		nextToken = &token
		messages = messages[:limit]
	}

	return messages, nextToken, nil
}

// LastForMatch returns the most recent message in the match, or nil when the
// conversation is empty.
func (r *MessageRepository) LastForMatch(ctx context.Context, matchID string) (*db.Message, error) {
	var msg db.Message
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CountForMatch returns the total number of messages in the match.
func (r *MessageRepository) CountForMatch(ctx context.Context, matchID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ?", matchID).
		Count(&count).Error
	return count, err
}

// CountUnread returns how many messages in the match the recipient has not
// read yet. Used as the DB fallback behind the Redis counter.
func (r *MessageRepository) CountUnread(ctx context.Context, matchID, recipientID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND recipient_id = ? AND `read` = ?", matchID, recipientID, false).
		Count(&count).Error
	return count, err
}

// MarkRead bulk-transitions the recipient's unread messages in the match to
// read, returning how many were flipped. Idempotent: nothing unread means
// zero rows affected, not an error.
func (r *MessageRepository) MarkRead(ctx context.Context, matchID, recipientID string) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&db.Message{}).
		Where("match_id = ? AND recipient_id = ? AND `read` = ?", matchID, recipientID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

// DeleteForUser removes every message the user sent or received. Part of the
// account-deletion cascade.
func (r *MessageRepository) DeleteForUser(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Delete(&db.Message{}).Error
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
