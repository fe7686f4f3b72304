package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

const (
	defaultSearchLimit = 30
	maxSearchLimit     = 100
)

// MessageRepository abstracts message persistence.
type MessageRepository interface {
	SendMessage(ctx context.Context, chatID, senderID, content string, msgType models.MessageType) (models.Message, error)
	SearchMessages(ctx context.Context, chatID, userID string, filter models.MessageFilter) ([]models.Message, error)
	UpdateMessage(ctx context.Context, messageID, chatID, userID, newContent string) error
	PinMessage(ctx context.Context, messageID, chatID, userID string, pinned bool) error
	DeleteMessage(ctx context.Context, messageID, chatID, userID string) error
}

// MessageRepo is a sqlx implementation of MessageRepository.
type MessageRepo struct {
	db     *sqlx.DB
	logger *zap.SugaredLogger
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(db *sqlx.DB, logger *zap.SugaredLogger) *MessageRepo {
	return &MessageRepo{db: db, logger: logger}
}

// SendMessage stores a message and refreshes the chat's last-message pointer
// in one transaction. In a DM, sending also un-hides the chat for a recipient
// who had closed it.
func (r *MessageRepo) SendMessage(ctx context.Context, chatID, senderID, content string, msgType models.MessageType) (models.Message, error) {
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	var msg models.Message
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, chat, err := validateMembershipWithChatTx(ctx, tx, chatID, senderID)
		if err != nil {
			return err
		}

		if chat.Type == models.ChatTypeDM {
			other, err := otherDMMemberTx(ctx, tx, chatID, senderID)
			if err != nil {
				return err
			}
			if other != nil && other.DeletedAt != nil {
				if _, err := restoreMemberTx(ctx, tx, chatID, other.UserID); err != nil {
					return err
				}
			}
		}

		if err := sqlx.GetContext(ctx, tx, &msg,
			`INSERT INTO messages (chat_id, sender_id, type, content) VALUES ($1, $2, $3, $4) RETURNING `+messageColumns,
			chatID, senderID, msgType, content); err != nil {
			return err
		}
		return recomputeLastMessageTx(ctx, tx, chatID, &msg.ID)
	})
	if err != nil {
		return models.Message{}, err
	}

	r.logger.Debugw("message sent", "chat_id", chatID, "message_id", msg.ID)
	return msg, nil
}

// SearchMessages returns the chat's messages matching the filter, newest
// first.
func (r *MessageRepo) SearchMessages(ctx context.Context, chatID, userID string, filter models.MessageFilter) ([]models.Message, error) {
	if _, err := validateMembershipTx(ctx, r.db, chatID, userID); err != nil {
		return nil, err
	}

	query, args := searchMessagesQuery(chatID, filter)
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, args...)
	return msgs, err
}

// searchMessagesQuery builds the filtered message query. The keyword filter
// only applies when the type filter is unset or text.
func searchMessagesQuery(chatID string, filter models.MessageFilter) (string, []interface{}) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE chat_id = $1 AND deleted_at IS NULL`
	args := []interface{}{chatID}

	add := func(clause string, value interface{}) {
		args = append(args, value)
		query += fmt.Sprintf(clause, len(args))
	}

	if filter.After != nil {
		add(" AND created_at >= $%d", *filter.After)
	}
	if filter.Before != nil {
		add(" AND created_at <= $%d", *filter.Before)
	}
	if filter.Type != nil {
		add(" AND type = $%d", *filter.Type)
	}
	if filter.Pinned != nil {
		add(" AND pinned = $%d", *filter.Pinned)
	}
	if filter.Keyword != "" && (filter.Type == nil || *filter.Type == models.MessageTypeText) {
		add(" AND content ILIKE '%%' || $%d || '%%'", filter.Keyword)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	add(" ORDER BY created_at DESC LIMIT $%d", limit)

	return query, args
}

// UpdateMessage edits a text message's content, sender only. Equal content is
// a no-op so the edit timestamp does not bump needlessly.
func (r *MessageRepo) UpdateMessage(ctx context.Context, messageID, chatID, userID, newContent string) error {
	if _, err := validateMembershipTx(ctx, r.db, chatID, userID); err != nil {
		return err
	}

	msg, err := messageByIDTx(ctx, r.db, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.NotFound("message not found")
	}
	if msg.ChatID != chatID {
		return apperrors.BadRequest("message does not belong to chat")
	}
	if msg.SenderID != userID {
		return apperrors.Forbidden("only the sender may edit a message")
	}
	if msg.Type != models.MessageTypeText {
		return apperrors.BadRequest("only text messages are editable")
	}
	if msg.Content == newContent {
		return nil
	}

	_, err = r.db.ExecContext(ctx, `UPDATE messages SET content=$2, edited_at=NOW() WHERE id=$1`, messageID, newContent)
	return err
}

// PinMessage sets the pinned flag. Any active member may pin or unpin any
// message; repeating the same value is harmless.
func (r *MessageRepo) PinMessage(ctx context.Context, messageID, chatID, userID string, pinned bool) error {
	if _, err := validateMembershipTx(ctx, r.db, chatID, userID); err != nil {
		return err
	}

	msg, err := messageByIDTx(ctx, r.db, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return apperrors.NotFound("message not found")
	}
	if msg.ChatID != chatID {
		return apperrors.BadRequest("message does not belong to chat")
	}

	_, err = r.db.ExecContext(ctx, `UPDATE messages SET pinned=$2 WHERE id=$1`, messageID, pinned)
	return err
}

// DeleteMessage soft-deletes a message, sender only, and re-derives the
// chat's last-message pointer when the deleted message held it. Deleting an
// already-deleted message is a no-op.
func (r *MessageRepo) DeleteMessage(ctx context.Context, messageID, chatID, userID string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, chat, err := validateMembershipWithChatTx(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}

		msg, err := messageByIDTx(ctx, tx, messageID)
		if err != nil {
			return err
		}
		if msg == nil {
			return nil
		}
		if msg.ChatID != chatID {
			return apperrors.BadRequest("message does not belong to chat")
		}
		if msg.SenderID != userID {
			return apperrors.Forbidden("only the sender may delete a message")
		}

		if _, err := tx.ExecContext(ctx, `UPDATE messages SET deleted_at=NOW() WHERE id=$1`, messageID); err != nil {
			return err
		}

		if chat.LastMessageID != nil && *chat.LastMessageID == msg.ID {
			return recomputeLastMessageTx(ctx, tx, chatID, nil)
		}
		return nil
	})
}

func messageByIDTx(ctx context.Context, q sqlx.ExtContext, messageID string) (*models.Message, error) {
	var msg models.Message
	err := sqlx.GetContext(ctx, q, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1 AND deleted_at IS NULL`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func otherDMMemberTx(ctx context.Context, q sqlx.ExtContext, chatID, excludeUser string) (*models.ChatMember, error) {
	var member models.ChatMember
	err := sqlx.GetContext(ctx, q, &member,
		`SELECT `+memberColumns+` FROM chat_members WHERE chat_id=$1 AND user_id <> $2`, chatID, excludeUser)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}
