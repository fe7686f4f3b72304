package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
)

func setupMemberRouter(handler *MemberHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", testUserID)
		c.Next()
	})
	r.GET("/chats/:chat_id/members", handler.ListMembers)
	r.POST("/chats/:chat_id/members", handler.AddMembers)
	r.DELETE("/chats/:chat_id/members/:user_id", handler.RemoveMember)
	r.POST("/chats/:chat_id/owner", handler.TransferOwnership)
	r.DELETE("/chats/:chat_id/me", handler.LeaveChat)
	r.POST("/chats/:chat_id/read", handler.MarkRead)
	return r
}

func TestListMembersSuccess(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("ListMembers", mock.Anything, testChatID, testUserID).
		Return([]models.MemberInfo{
			{ChatMember: models.ChatMember{UserID: testUserID, Role: models.RoleOwner}, Username: "me"},
			{ChatMember: models.ChatMember{UserID: testOtherID, Role: models.RoleMember}, Username: "bob"},
		}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/"+testChatID+"/members", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]models.MemberInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["members"], 2)
	assert.Equal(t, "me", resp["members"][0].Username)
	memberRepo.AssertExpectations(t)
}

func TestListMembersNotAMember(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("ListMembers", mock.Anything, testChatID, testUserID).
		Return(([]models.MemberInfo)(nil), apperrors.Forbidden("not a chat member")).Once()

	req := httptest.NewRequest(http.MethodGet, "/chats/"+testChatID+"/members", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestAddMembersSuccess(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("AddMembers", mock.Anything, testChatID, testUserID, []string{testOtherID}).
		Return([]models.ChatMember{{ChatID: testChatID, UserID: testOtherID, Role: models.RoleMember}}, nil).Once()

	body := bytes.NewBufferString(`{"member_ids":["` + testOtherID + `"]}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/members", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string][]models.ChatMember
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp["members"], 1)
	assert.Equal(t, testOtherID, resp["members"][0].UserID)
	memberRepo.AssertExpectations(t)
}

func TestAddMembersCapacityExceeded(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("AddMembers", mock.Anything, testChatID, testUserID, []string{testOtherID}).
		Return(([]models.ChatMember)(nil), apperrors.BadRequest("group capacity is 10 members")).Once()

	body := bytes.NewBufferString(`{"member_ids":["` + testOtherID + `"]}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/members", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestAddMembersMalformedMemberID(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	body := bytes.NewBufferString(`{"member_ids":["` + testOtherID + `","notauuid"]}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/members", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	memberRepo.AssertNotCalled(t, "AddMembers")
}

func TestAddMembersMissingBody(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/members", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	memberRepo.AssertNotCalled(t, "AddMembers")
}

func TestRemoveMemberSuccess(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("RemoveMember", mock.Anything, testChatID, testUserID, testOtherID).
		Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/"+testChatID+"/members/"+testOtherID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestRemoveMemberNotOwner(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("RemoveMember", mock.Anything, testChatID, testUserID, testOtherID).
		Return(apperrors.Forbidden("owner role required")).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/"+testChatID+"/members/"+testOtherID, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestRemoveMemberInvalidUserID(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	req := httptest.NewRequest(http.MethodDelete, "/chats/"+testChatID+"/members/xyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	memberRepo.AssertNotCalled(t, "RemoveMember")
}

func TestTransferOwnershipSuccess(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("TransferOwnership", mock.Anything, testChatID, testUserID, testOtherID).
		Return(nil).Once()

	body := bytes.NewBufferString(`{"new_owner_id":"` + testOtherID + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/owner", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestTransferOwnershipMalformedNewOwnerID(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	body := bytes.NewBufferString(`{"new_owner_id":"notauuid"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/owner", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	memberRepo.AssertNotCalled(t, "TransferOwnership")
}

func TestTransferOwnershipToInactiveMember(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("TransferOwnership", mock.Anything, testChatID, testUserID, testOtherID).
		Return(apperrors.BadRequest("new owner is not an active member")).Once()

	body := bytes.NewBufferString(`{"new_owner_id":"` + testOtherID + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/owner", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestLeaveChatSuccess(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("LeaveChat", mock.Anything, testChatID, testUserID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/"+testChatID+"/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestLeaveChatRepoError(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("LeaveChat", mock.Anything, testChatID, testUserID).Return(assert.AnError).Once()

	req := httptest.NewRequest(http.MethodDelete, "/chats/"+testChatID+"/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestMarkReadSuccess(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("MarkRead", mock.Anything, testChatID, testUserID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	memberRepo.AssertExpectations(t)
}

func TestMarkReadNotAMember(t *testing.T) {
	memberRepo := new(mocks.MemberRepositoryMock)
	handler := NewMemberHandler(memberRepo, nil)
	router := setupMemberRouter(handler)

	memberRepo.On("MarkRead", mock.Anything, testChatID, testUserID).
		Return(apperrors.Forbidden("not a chat member")).Once()

	req := httptest.NewRequest(http.MethodPost, "/chats/"+testChatID+"/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	memberRepo.AssertExpectations(t)
}
