package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateChat(ctx context.Context, creatorID string, memberIDs []string, name, imageURL *string) (models.Chat, error) {
	args := m.Called(ctx, creatorID, memberIDs, name, imageURL)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ModifyGroup(ctx context.Context, chatID, userID string, name, imageURL *string) error {
	args := m.Called(ctx, chatID, userID, name, imageURL)
	return args.Error(0)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID, userID string) (models.Chat, error) {
	args := m.Called(ctx, chatID, userID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) ListUserChats(ctx context.Context, userID string) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

type MemberRepositoryMock struct {
	mock.Mock
}

func (m *MemberRepositoryMock) ValidateMembership(ctx context.Context, chatID, userID string) (models.ChatMember, error) {
	args := m.Called(ctx, chatID, userID)
	var member models.ChatMember
	if val := args.Get(0); val != nil {
		member = val.(models.ChatMember)
	}
	return member, args.Error(1)
}

func (m *MemberRepositoryMock) GetExistingMember(ctx context.Context, chatID, userID string, includeDeleted bool) (*models.ChatMember, error) {
	args := m.Called(ctx, chatID, userID, includeDeleted)
	var member *models.ChatMember
	if val := args.Get(0); val != nil {
		member = val.(*models.ChatMember)
	}
	return member, args.Error(1)
}

func (m *MemberRepositoryMock) AddMembers(ctx context.Context, chatID, initiatorID string, newMemberIDs []string) ([]models.ChatMember, error) {
	args := m.Called(ctx, chatID, initiatorID, newMemberIDs)
	var members []models.ChatMember
	if val := args.Get(0); val != nil {
		members = val.([]models.ChatMember)
	}
	return members, args.Error(1)
}

func (m *MemberRepositoryMock) RemoveMember(ctx context.Context, chatID, initiatorID, memberID string) error {
	args := m.Called(ctx, chatID, initiatorID, memberID)
	return args.Error(0)
}

func (m *MemberRepositoryMock) TransferOwnership(ctx context.Context, chatID, initiatorID, newOwnerID string) error {
	args := m.Called(ctx, chatID, initiatorID, newOwnerID)
	return args.Error(0)
}

func (m *MemberRepositoryMock) LeaveChat(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

func (m *MemberRepositoryMock) ListMembers(ctx context.Context, chatID, userID string) ([]models.MemberInfo, error) {
	args := m.Called(ctx, chatID, userID)
	var members []models.MemberInfo
	if val := args.Get(0); val != nil {
		members = val.([]models.MemberInfo)
	}
	return members, args.Error(1)
}

func (m *MemberRepositoryMock) MarkRead(ctx context.Context, chatID, userID string) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) SendMessage(ctx context.Context, chatID, senderID, content string, msgType models.MessageType) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, msgType)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) SearchMessages(ctx context.Context, chatID, userID string, filter models.MessageFilter) ([]models.Message, error) {
	args := m.Called(ctx, chatID, userID, filter)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateMessage(ctx context.Context, messageID, chatID, userID, newContent string) error {
	args := m.Called(ctx, messageID, chatID, userID, newContent)
	return args.Error(0)
}

func (m *MessageRepositoryMock) PinMessage(ctx context.Context, messageID, chatID, userID string, pinned bool) error {
	args := m.Called(ctx, messageID, chatID, userID, pinned)
	return args.Error(0)
}

func (m *MessageRepositoryMock) DeleteMessage(ctx context.Context, messageID, chatID, userID string) error {
	args := m.Called(ctx, messageID, chatID, userID)
	return args.Error(0)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) CountExisting(ctx context.Context, ids []string) (int, error) {
	args := m.Called(ctx, ids)
	return args.Int(0), args.Error(1)
}

func (m *UserRepositoryMock) BulkDisplay(ctx context.Context, ids []string) (map[string]models.UserDisplay, error) {
	args := m.Called(ctx, ids)
	var users map[string]models.UserDisplay
	if val := args.Get(0); val != nil {
		users = val.(map[string]models.UserDisplay)
	}
	return users, args.Error(1)
}

var _ repositories.ChatRepository = (*ChatRepositoryMock)(nil)
var _ repositories.MemberRepository = (*MemberRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
