package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

// maxGroupMembers caps active group membership, creator included.
const maxGroupMembers = 10

// defaultGroupName is the placeholder used when a group is created unnamed.
const defaultGroupName = "New group"

// ChatRepository abstracts chat persistence.
type ChatRepository interface {
	CreateChat(ctx context.Context, creatorID string, memberIDs []string, name, imageURL *string) (models.Chat, error)
	ModifyGroup(ctx context.Context, chatID, userID string, name, imageURL *string) error
	GetChat(ctx context.Context, chatID, userID string) (models.Chat, error)
	ListUserChats(ctx context.Context, userID string) ([]models.ChatSummary, error)
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db     *sqlx.DB
	logger *zap.SugaredLogger
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB, logger *zap.SugaredLogger) *ChatRepo {
	return &ChatRepo{db: db, logger: logger}
}

// CreateChat creates a DM or group chat for the creator and the given members,
// reusing an existing DM when the pair already has one. The whole operation is
// one transaction.
func (r *ChatRepo) CreateChat(ctx context.Context, creatorID string, memberIDs []string, name, imageURL *string) (models.Chat, error) {
	others := dedupeIDs(memberIDs, creatorID)
	if len(others) == 0 {
		return models.Chat{}, apperrors.BadRequest("chat needs at least one other member")
	}

	var chat models.Chat
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		count, err := countExistingUsersTx(ctx, tx, others)
		if err != nil {
			return err
		}
		if count != len(others) {
			return apperrors.NotFound("one or more members do not exist")
		}

		if len(others) == 1 {
			chat, err = r.createOrReuseDM(ctx, tx, creatorID, others[0])
			return err
		}
		if len(others) > maxGroupMembers-1 {
			return apperrors.BadRequest("group capacity is 10 members including the creator")
		}
		chat, err = r.createGroup(ctx, tx, creatorID, others, name, imageURL)
		return err
	})
	if err != nil {
		return models.Chat{}, err
	}

	r.logger.Debugw("chat created", "chat_id", chat.ID, "type", chat.Type)
	return chat, nil
}

// createOrReuseDM returns the existing DM for the pair when there is one,
// un-hiding the creator's side if they had closed it. The other side's
// visibility is untouched.
func (r *ChatRepo) createOrReuseDM(ctx context.Context, tx *sqlx.Tx, creatorID, otherID string) (models.Chat, error) {
	key := dmPairKey(creatorID, otherID)

	var chat models.Chat
	err := sqlx.GetContext(ctx, tx, &chat, `SELECT `+chatColumns+` FROM chats WHERE dm_key=$1`, key)
	if err == nil {
		member, err := memberRowTx(ctx, tx, chat.ID, creatorID, true)
		if err != nil {
			return models.Chat{}, err
		}
		if member != nil && member.DeletedAt != nil {
			if _, err := restoreMemberTx(ctx, tx, chat.ID, creatorID); err != nil {
				return models.Chat{}, err
			}
		}
		return chat, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, err
	}

	if err := sqlx.GetContext(ctx, tx, &chat,
		`INSERT INTO chats (type, dm_key) VALUES ($1, $2) RETURNING `+chatColumns,
		models.ChatTypeDM, key); err != nil {
		return models.Chat{}, err
	}
	for _, userID := range []string{creatorID, otherID} {
		if _, err := insertMemberTx(ctx, tx, chat.ID, userID, models.RoleMember); err != nil {
			return models.Chat{}, err
		}
	}
	return chat, nil
}

func (r *ChatRepo) createGroup(ctx context.Context, tx *sqlx.Tx, creatorID string, memberIDs []string, name, imageURL *string) (models.Chat, error) {
	groupName := defaultGroupName
	if name != nil && *name != "" {
		groupName = *name
	}

	var chat models.Chat
	if err := sqlx.GetContext(ctx, tx, &chat,
		`INSERT INTO chats (type, name, image_url) VALUES ($1, $2, $3) RETURNING `+chatColumns,
		models.ChatTypeGroup, groupName, imageURL); err != nil {
		return models.Chat{}, err
	}

	if _, err := insertMemberTx(ctx, tx, chat.ID, creatorID, models.RoleOwner); err != nil {
		return models.Chat{}, err
	}
	for _, userID := range memberIDs {
		if _, err := insertMemberTx(ctx, tx, chat.ID, userID, models.RoleMember); err != nil {
			return models.Chat{}, err
		}
	}
	return chat, nil
}

// ModifyGroup applies the supplied name/image fields to a group chat. With
// neither field supplied nothing is written.
func (r *ChatRepo) ModifyGroup(ctx context.Context, chatID, userID string, name, imageURL *string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, chat, err := validateMembershipWithChatTx(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		if chat.Type != models.ChatTypeGroup {
			return apperrors.BadRequest("not a group chat")
		}
		if name == nil && imageURL == nil {
			return nil
		}

		sets := make([]string, 0, 2)
		args := make([]interface{}, 0, 3)
		if name != nil {
			args = append(args, *name)
			sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
		}
		if imageURL != nil {
			args = append(args, *imageURL)
			sets = append(sets, fmt.Sprintf("image_url = $%d", len(args)))
		}
		args = append(args, chatID)

		query := fmt.Sprintf(`UPDATE chats SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
		_, err = tx.ExecContext(ctx, query, args...)
		return err
	})
}

// GetChat fetches a chat for one of its active members.
func (r *ChatRepo) GetChat(ctx context.Context, chatID, userID string) (models.Chat, error) {
	if _, err := validateMembershipTx(ctx, r.db, chatID, userID); err != nil {
		return models.Chat{}, err
	}
	return chatByIDTx(ctx, r.db, chatID)
}

// ListUserChats returns the chat-list view for the user: every chat with an
// active membership, annotated with active-member count and a last-message
// preview. Chats order by last-message time descending; chats without
// messages slot into the same timeline by creation time.
func (r *ChatRepo) ListUserChats(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	query := `SELECT c.id, c.type, c.name, c.image_url, c.created_at,
            (SELECT COUNT(*) FROM chat_members am WHERE am.chat_id = c.id AND am.deleted_at IS NULL) AS member_count,
            lm.content AS last_message_content,
            lm.created_at AS last_message_at,
            lu.username AS last_sender_username
        FROM chats c
        JOIN chat_members m ON m.chat_id = c.id AND m.user_id = $1 AND m.deleted_at IS NULL
        LEFT JOIN messages lm ON lm.id = c.last_message_id AND lm.deleted_at IS NULL
        LEFT JOIN users lu ON lu.id = lm.sender_id
        WHERE c.deleted_at IS NULL
        ORDER BY COALESCE(lm.created_at, c.created_at) DESC`

	var summaries []models.ChatSummary
	err := r.db.SelectContext(ctx, &summaries, query, userID)
	return summaries, err
}
