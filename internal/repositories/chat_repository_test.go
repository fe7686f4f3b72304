package repositories

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func chatRows(id string, chatType models.ChatType, lastMessageID any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "type", "name", "image_url", "last_message_id", "dm_key", "created_at", "deleted_at"}).
		AddRow(id, string(chatType), nil, nil, lastMessageID, nil, time.Now(), nil)
}

func memberRows(chatID, userID string, role models.MemberRole, deletedAt any) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"chat_id", "user_id", "role", "joined_at", "last_read_at", "deleted_at"}).
		AddRow(chatID, userID, string(role), time.Now(), nil, deletedAt)
}

func emptyMemberRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"chat_id", "user_id", "role", "joined_at", "last_read_at", "deleted_at"})
}

func countRows(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

func requireKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	kind, ok := apperrors.KindOf(err)
	require.True(t, ok, "expected a kinded error, got %v", err)
	assert.Equal(t, want, kind)
}

func TestCreateChatNeedsAnotherMember(t *testing.T) {
	repo := NewChatRepo(nil, zap.NewNop().Sugar())

	_, err := repo.CreateChat(context.Background(), "me", []string{"me", ""}, nil, nil)
	requireKind(t, err, apperrors.KindBadRequest)
}

func TestCreateChatUnknownUsersCheckedBeforeCapacity(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db, zap.NewNop().Sugar())

	ids := make([]string, 11)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).WillReturnRows(countRows(10))
	mock.ExpectRollback()

	_, err := repo.CreateChat(context.Background(), "me", ids, nil, nil)
	requireKind(t, err, apperrors.KindNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateChatGroupCapacityEnforced(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db, zap.NewNop().Sugar())

	ids := make([]string, 11)
	for i := range ids {
		ids[i] = fmt.Sprintf("u%d", i)
	}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).WillReturnRows(countRows(11))
	mock.ExpectRollback()

	_, err := repo.CreateChat(context.Background(), "me", ids, nil, nil)
	requireKind(t, err, apperrors.KindBadRequest)
	assert.Contains(t, err.Error(), "capacity")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateChatReusesExistingDM(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db, zap.NewNop().Sugar())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).WillReturnRows(countRows(1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chats WHERE dm_key=$1`)).
		WithArgs(dmPairKey("me", "other")).
		WillReturnRows(chatRows("c1", models.ChatTypeDM, nil))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_members WHERE chat_id=$1 AND user_id=$2`)).
		WillReturnRows(memberRows("c1", "me", models.RoleMember, nil))
	mock.ExpectCommit()

	chat, err := repo.CreateChat(context.Background(), "me", []string{"other"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "c1", chat.ID)
	assert.Equal(t, models.ChatTypeDM, chat.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateChatReopensClosedDMSide(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewChatRepo(db, zap.NewNop().Sugar())

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).WillReturnRows(countRows(1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chats WHERE dm_key=$1`)).
		WillReturnRows(chatRows("c1", models.ChatTypeDM, nil))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_members WHERE chat_id=$1 AND user_id=$2`)).
		WillReturnRows(memberRows("c1", "me", models.RoleMember, time.Now()))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE chat_members SET deleted_at = NULL`)).
		WillReturnRows(memberRows("c1", "me", models.RoleMember, nil))
	mock.ExpectCommit()

	chat, err := repo.CreateChat(context.Background(), "me", []string{"other"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "c1", chat.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
