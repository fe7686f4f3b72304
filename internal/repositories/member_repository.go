package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

// MemberRepository abstracts chat membership persistence.
type MemberRepository interface {
	ValidateMembership(ctx context.Context, chatID, userID string) (models.ChatMember, error)
	GetExistingMember(ctx context.Context, chatID, userID string, includeDeleted bool) (*models.ChatMember, error)
	AddMembers(ctx context.Context, chatID, initiatorID string, newMemberIDs []string) ([]models.ChatMember, error)
	RemoveMember(ctx context.Context, chatID, initiatorID, memberID string) error
	TransferOwnership(ctx context.Context, chatID, initiatorID, newOwnerID string) error
	LeaveChat(ctx context.Context, chatID, userID string) error
	ListMembers(ctx context.Context, chatID, userID string) ([]models.MemberInfo, error)
	MarkRead(ctx context.Context, chatID, userID string) error
}

// MemberRepo is a sqlx implementation of MemberRepository.
type MemberRepo struct {
	db     *sqlx.DB
	logger *zap.SugaredLogger
}

// NewMemberRepo constructs a MemberRepo.
func NewMemberRepo(db *sqlx.DB, logger *zap.SugaredLogger) *MemberRepo {
	return &MemberRepo{db: db, logger: logger}
}

// ValidateMembership fails Forbidden unless the user has an active membership
// row in the chat.
func (r *MemberRepo) ValidateMembership(ctx context.Context, chatID, userID string) (models.ChatMember, error) {
	return validateMembershipTx(ctx, r.db, chatID, userID)
}

// GetExistingMember looks a membership row up without the must-be-active
// guarantee; nil when no row matches.
func (r *MemberRepo) GetExistingMember(ctx context.Context, chatID, userID string, includeDeleted bool) (*models.ChatMember, error) {
	return memberRowTx(ctx, r.db, chatID, userID, includeDeleted)
}

// AddMembers adds users to a group chat, restoring soft-deleted rows and
// inserting new ones, all within one transaction.
func (r *MemberRepo) AddMembers(ctx context.Context, chatID, initiatorID string, newMemberIDs []string) ([]models.ChatMember, error) {
	targets := dedupeIDs(newMemberIDs, "")
	if len(targets) == 0 {
		return nil, apperrors.BadRequest("no members to add")
	}
	for _, id := range targets {
		if id == initiatorID {
			return nil, apperrors.BadRequest("cannot add yourself")
		}
	}

	var added []models.ChatMember
	err := inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, chat, err := validateMembershipWithChatTx(ctx, tx, chatID, initiatorID)
		if err != nil {
			return err
		}
		if chat.Type != models.ChatTypeGroup {
			return apperrors.BadRequest("not a group chat")
		}

		count, err := countActiveMembersTx(ctx, tx, chatID, "")
		if err != nil {
			return err
		}
		if count+len(targets) > maxGroupMembers {
			return apperrors.BadRequest("group capacity is 10 members")
		}

		existing, err := countExistingUsersTx(ctx, tx, targets)
		if err != nil {
			return err
		}
		if existing != len(targets) {
			return apperrors.BadRequest("one or more users do not exist")
		}

		added = make([]models.ChatMember, 0, len(targets))
		for _, userID := range targets {
			row, err := memberRowTx(ctx, tx, chatID, userID, true)
			if err != nil {
				return err
			}
			var member models.ChatMember
			switch {
			case row != nil && row.DeletedAt == nil:
				return apperrors.BadRequest("user already in chat")
			case row != nil:
				member, err = restoreMemberTx(ctx, tx, chatID, userID)
			default:
				member, err = insertMemberTx(ctx, tx, chatID, userID, models.RoleMember)
			}
			if err != nil {
				return err
			}
			added = append(added, member)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debugw("members added", "chat_id", chatID, "count", len(added))
	return added, nil
}

// RemoveMember soft-deletes a member's row, owner initiators only. Removing an
// already-absent member is a no-op.
func (r *MemberRepo) RemoveMember(ctx context.Context, chatID, initiatorID, memberID string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		initiator, chat, err := validateMembershipWithChatTx(ctx, tx, chatID, initiatorID)
		if err != nil {
			return err
		}
		if chat.Type != models.ChatTypeGroup {
			return apperrors.BadRequest("not a group chat")
		}
		if initiator.Role != models.RoleOwner {
			return apperrors.Forbidden("owner role required")
		}
		if initiatorID == memberID {
			return apperrors.BadRequest("use leave to remove yourself")
		}

		target, err := memberRowTx(ctx, tx, chatID, memberID, false)
		if err != nil {
			return err
		}
		if target == nil {
			return nil
		}
		return softDeleteMemberTx(ctx, tx, chatID, memberID)
	})
}

// TransferOwnership swaps the owner role to another active member as one
// atomic pair of writes.
func (r *MemberRepo) TransferOwnership(ctx context.Context, chatID, initiatorID, newOwnerID string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		initiator, chat, err := validateMembershipWithChatTx(ctx, tx, chatID, initiatorID)
		if err != nil {
			return err
		}
		if chat.Type != models.ChatTypeGroup {
			return apperrors.BadRequest("not a group chat")
		}
		if initiator.Role != models.RoleOwner {
			return apperrors.Forbidden("owner role required")
		}
		if initiatorID == newOwnerID {
			return apperrors.BadRequest("already the owner")
		}

		target, err := memberRowTx(ctx, tx, chatID, newOwnerID, false)
		if err != nil {
			return err
		}
		if target == nil {
			return apperrors.BadRequest("new owner is not an active member")
		}

		if _, err := tx.ExecContext(ctx, `UPDATE chat_members SET role='owner' WHERE chat_id=$1 AND user_id=$2`, chatID, newOwnerID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE chat_members SET role='member' WHERE chat_id=$1 AND user_id=$2`, chatID, initiatorID)
		return err
	})
}

// LeaveChat closes the caller's side of a DM, or runs the group-leave
// protocol: last member out soft-deletes the chat, a leaving owner hands
// ownership to the most senior remaining member. Leaving an already-left chat
// is a no-op.
func (r *MemberRepo) LeaveChat(ctx context.Context, chatID, userID string) error {
	return inTx(ctx, r.db, func(tx *sqlx.Tx) error {
		member, err := memberRowTx(ctx, tx, chatID, userID, false)
		if err != nil {
			return err
		}
		if member == nil {
			return nil
		}
		chat, err := chatByIDTx(ctx, tx, chatID)
		if err != nil {
			return err
		}

		if chat.Type == models.ChatTypeDM {
			return softDeleteMemberTx(ctx, tx, chatID, userID)
		}

		remaining, err := countActiveMembersTx(ctx, tx, chatID, userID)
		if err != nil {
			return err
		}
		if remaining == 0 {
			if err := softDeleteChatTx(ctx, tx, chatID); err != nil {
				return err
			}
			return softDeleteMemberTx(ctx, tx, chatID, userID)
		}

		if member.Role == models.RoleOwner {
			if err := r.promoteSuccessorTx(ctx, tx, chatID, userID); err != nil {
				return err
			}
		}
		return softDeleteMemberTx(ctx, tx, chatID, userID)
	})
}

// promoteSuccessorTx hands ownership to the remaining active member with the
// earliest joined_at; user id breaks timestamp ties deterministically.
func (r *MemberRepo) promoteSuccessorTx(ctx context.Context, tx *sqlx.Tx, chatID, leaverID string) error {
	var successorID string
	err := sqlx.GetContext(ctx, tx, &successorID,
		`SELECT user_id FROM chat_members
        WHERE chat_id=$1 AND user_id <> $2 AND deleted_at IS NULL
        ORDER BY joined_at ASC, user_id ASC LIMIT 1`,
		chatID, leaverID)
	if err != nil {
		return err
	}

	r.logger.Debugw("ownership succession", "chat_id", chatID, "new_owner", successorID)
	_, err = tx.ExecContext(ctx, `UPDATE chat_members SET role='owner' WHERE chat_id=$1 AND user_id=$2`, chatID, successorID)
	return err
}

// ListMembers returns the active members in seniority order with user display
// fields, for callers that are themselves active members.
func (r *MemberRepo) ListMembers(ctx context.Context, chatID, userID string) ([]models.MemberInfo, error) {
	if _, err := validateMembershipTx(ctx, r.db, chatID, userID); err != nil {
		return nil, err
	}

	query := `SELECT m.chat_id, m.user_id, m.role, m.joined_at, m.last_read_at, m.deleted_at, u.username, u.avatar_url
        FROM chat_members m
        JOIN users u ON u.id = m.user_id
        WHERE m.chat_id = $1 AND m.deleted_at IS NULL
        ORDER BY m.joined_at ASC, m.user_id ASC`

	var members []models.MemberInfo
	err := r.db.SelectContext(ctx, &members, query, chatID)
	return members, err
}

// MarkRead stamps the caller's read receipt on their membership row.
func (r *MemberRepo) MarkRead(ctx context.Context, chatID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_members SET last_read_at = NOW() WHERE chat_id=$1 AND user_id=$2 AND deleted_at IS NULL`,
		chatID, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return apperrors.Forbidden("not a chat member")
	}
	return nil
}
