package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// ChatHandler manages chat-level endpoints.
type ChatHandler struct {
	chatRepo   repositories.ChatRepository
	memberRepo repositories.MemberRepository
	audit      *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(chatRepo repositories.ChatRepository, memberRepo repositories.MemberRepository, audit *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		chatRepo:   chatRepo,
		memberRepo: memberRepo,
		audit:      audit,
	}
}

// CreateChat handles POST /chats: a single other member yields a DM (created
// or reused), several yield a new group.
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID := c.GetString("userID")

	var req struct {
		MemberIDs []string `json:"member_ids" binding:"required"`
		Name      *string  `json:"name"`
		ImageURL  *string  `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !memberIDsValid(c, req.MemberIDs) {
		return
	}

	chat, err := h.chatRepo.CreateChat(c.Request.Context(), userID, req.MemberIDs, req.Name, req.ImageURL)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "could not create chat")
		respondError(c, err, "could not create chat")
		return
	}

	publishEvent(c, "chat_created", gin.H{"chat_id": chat.ID, "type": chat.Type})
	emitAudit(c, h.audit, "INFO", "Chat created")
	c.JSON(http.StatusCreated, chat)
}

// ListChats returns the chat-list view for the authenticated user.
func (h *ChatHandler) ListChats(c *gin.Context) {
	userID := c.GetString("userID")

	chats, err := h.chatRepo.ListUserChats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "failed to load chats")
		return
	}

	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// GetChat returns one chat with its member projection.
func (h *ChatHandler) GetChat(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	chat, err := h.chatRepo.GetChat(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err, "failed to load chat")
		return
	}

	members, err := h.memberRepo.ListMembers(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err, "failed to load members")
		return
	}

	c.JSON(http.StatusOK, gin.H{"chat": chat, "members": members})
}

// ModifyGroup handles PATCH /chats/:chat_id for group name/image changes.
func (h *ChatHandler) ModifyGroup(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	var req struct {
		Name     *string `json:"name"`
		ImageURL *string `json:"image_url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.chatRepo.ModifyGroup(c.Request.Context(), chatID, userID, req.Name, req.ImageURL); err != nil {
		emitAudit(c, h.audit, "ERROR", "could not modify group")
		respondError(c, err, "could not modify group")
		return
	}

	emitAudit(c, h.audit, "INFO", "Group modified")
	c.Status(http.StatusNoContent)
}
