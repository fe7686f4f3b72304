package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

const (
	chatColumns    = `id, type, name, image_url, last_message_id, dm_key, created_at, deleted_at`
	memberColumns  = `chat_id, user_id, role, joined_at, last_read_at, deleted_at`
	messageColumns = `id, chat_id, sender_id, type, content, pinned, created_at, edited_at, deleted_at`
)

// inTx runs fn inside a single transaction. Any error rolls back the whole
// unit of work; constraint violations surfaced by Postgres are mapped to
// domain error kinds before returning.
func inTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return mapPQError(err)
	}
	return mapPQError(tx.Commit())
}

// mapPQError translates Postgres constraint violations into domain error
// kinds. A unique violation means a concurrent transaction won a race our
// application-level check could not see.
func mapPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgerrcode.UniqueViolation:
			return apperrors.Conflict("duplicate entry: " + pqErr.Constraint)
		case pgerrcode.ForeignKeyViolation:
			return apperrors.BadRequest("referenced row does not exist: " + pqErr.Constraint)
		case pgerrcode.InvalidTextRepresentation:
			return apperrors.BadRequest("malformed identifier")
		}
	}
	return err
}

// dmPairKey builds the order-independent uniqueness key for a DM pair. The
// unique index on chats.dm_key is the serialization point that keeps "one DM
// per pair" true under concurrent creation.
func dmPairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + ":" + b
}

// dedupeIDs drops duplicates and empty values, preserving order. When exclude
// is non-empty that id is dropped as well.
func dedupeIDs(ids []string, exclude string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == exclude {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func chatByIDTx(ctx context.Context, q sqlx.ExtContext, chatID string) (models.Chat, error) {
	var chat models.Chat
	err := sqlx.GetContext(ctx, q, &chat, `SELECT `+chatColumns+` FROM chats WHERE id=$1 AND deleted_at IS NULL`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, apperrors.NotFound("chat not found")
	}
	return chat, err
}

func memberRowTx(ctx context.Context, q sqlx.ExtContext, chatID, userID string, includeDeleted bool) (*models.ChatMember, error) {
	query := `SELECT ` + memberColumns + ` FROM chat_members WHERE chat_id=$1 AND user_id=$2`
	if !includeDeleted {
		query += ` AND deleted_at IS NULL`
	}
	var member models.ChatMember
	err := sqlx.GetContext(ctx, q, &member, query, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// validateMembershipTx is the authorization primitive every mutating operation
// calls first. Absence maps to Forbidden rather than NotFound so chat
// existence does not leak to non-members.
func validateMembershipTx(ctx context.Context, q sqlx.ExtContext, chatID, userID string) (models.ChatMember, error) {
	member, err := memberRowTx(ctx, q, chatID, userID, false)
	if err != nil {
		return models.ChatMember{}, err
	}
	if member == nil {
		return models.ChatMember{}, apperrors.Forbidden("not a chat member")
	}
	return *member, nil
}

// validateMembershipWithChatTx additionally loads the chat, for callers that
// need chat.Type right after the check.
func validateMembershipWithChatTx(ctx context.Context, q sqlx.ExtContext, chatID, userID string) (models.ChatMember, models.Chat, error) {
	member, err := validateMembershipTx(ctx, q, chatID, userID)
	if err != nil {
		return models.ChatMember{}, models.Chat{}, err
	}
	chat, err := chatByIDTx(ctx, q, chatID)
	if err != nil {
		return models.ChatMember{}, models.Chat{}, err
	}
	return member, chat, nil
}

func countActiveMembersTx(ctx context.Context, q sqlx.ExtContext, chatID, excludeUser string) (int, error) {
	query := `SELECT COUNT(*) FROM chat_members WHERE chat_id=$1 AND deleted_at IS NULL`
	args := []interface{}{chatID}
	if excludeUser != "" {
		query += ` AND user_id <> $2`
		args = append(args, excludeUser)
	}
	var count int
	err := sqlx.GetContext(ctx, q, &count, query, args...)
	return count, err
}

func countExistingUsersTx(ctx context.Context, q sqlx.ExtContext, ids []string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, q, &count, `SELECT COUNT(*) FROM users WHERE id = ANY($1)`, pq.Array(ids))
	return count, err
}

func insertMemberTx(ctx context.Context, q sqlx.ExtContext, chatID, userID string, role models.MemberRole) (models.ChatMember, error) {
	var member models.ChatMember
	err := sqlx.GetContext(ctx, q, &member,
		`INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, $3) RETURNING `+memberColumns,
		chatID, userID, role)
	return member, err
}

// restoreMemberTx revives a soft-deleted membership row instead of inserting a
// duplicate. Role resets to member: a former owner does not regain ownership
// on rejoin. joined_at refreshes to mark the rejoin.
func restoreMemberTx(ctx context.Context, q sqlx.ExtContext, chatID, userID string) (models.ChatMember, error) {
	var member models.ChatMember
	err := sqlx.GetContext(ctx, q, &member,
		`UPDATE chat_members SET deleted_at = NULL, role = 'member', joined_at = NOW() WHERE chat_id=$1 AND user_id=$2 RETURNING `+memberColumns,
		chatID, userID)
	return member, err
}

func softDeleteMemberTx(ctx context.Context, q sqlx.ExtContext, chatID, userID string) error {
	_, err := q.ExecContext(ctx, `UPDATE chat_members SET deleted_at = NOW() WHERE chat_id=$1 AND user_id=$2 AND deleted_at IS NULL`, chatID, userID)
	return err
}

func softDeleteChatTx(ctx context.Context, q sqlx.ExtContext, chatID string) error {
	_, err := q.ExecContext(ctx, `UPDATE chats SET deleted_at = NOW() WHERE id=$1 AND deleted_at IS NULL`, chatID)
	return err
}

// recomputeLastMessageTx refreshes the denormalized chat-list preview pointer.
// With an explicit message id it points there directly (the just-sent message
// is by definition the newest); otherwise it re-derives the most recent
// non-deleted message, or NULL when none remains. Message id is the secondary
// sort key so colliding timestamps stay deterministic.
func recomputeLastMessageTx(ctx context.Context, q sqlx.ExtContext, chatID string, explicitID *string) error {
	if explicitID != nil {
		_, err := q.ExecContext(ctx, `UPDATE chats SET last_message_id=$2 WHERE id=$1`, chatID, *explicitID)
		return err
	}
	_, err := q.ExecContext(ctx, `UPDATE chats SET last_message_id = (
        SELECT id FROM messages WHERE chat_id=$1 AND deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT 1
    ) WHERE id=$1`, chatID)
	return err
}
