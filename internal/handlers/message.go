package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// MessageHandler manages message endpoints.
type MessageHandler struct {
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		audit:       audit,
	}
}

// SendMessage handles POST /chats/:chat_id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	var req struct {
		Content string             `json:"content" binding:"required"`
		Type    models.MessageType `json:"type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.messageRepo.SendMessage(c.Request.Context(), chatID, userID, req.Content, req.Type)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "could not send message")
		respondError(c, err, "could not send message")
		return
	}

	publishEvent(c, "message_sent", gin.H{"chat_id": chatID, "message_id": msg.ID})
	c.JSON(http.StatusCreated, msg)
}

// SearchMessages handles GET /chats/:chat_id/messages with optional filters:
// after/before (RFC 3339), type, pinned, keyword, limit.
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	filter, err := parseMessageFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msgs, err := h.messageRepo.SearchMessages(c.Request.Context(), chatID, userID, filter)
	if err != nil {
		respondError(c, err, "failed to load messages")
		return
	}

	senderIDs := make([]string, 0, len(msgs))
	seen := map[string]struct{}{}
	for _, m := range msgs {
		if _, ok := seen[m.SenderID]; !ok {
			seen[m.SenderID] = struct{}{}
			senderIDs = append(senderIDs, m.SenderID)
		}
	}

	users, err := h.userRepo.BulkDisplay(c.Request.Context(), senderIDs)
	if err != nil {
		respondError(c, err, "failed to load senders")
		return
	}

	type messageResponse struct {
		models.Message
		SenderUsername string `json:"sender_username,omitempty"`
	}

	resp := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, messageResponse{Message: m, SenderUsername: users[m.SenderID].Username})
	}

	c.JSON(http.StatusOK, gin.H{"messages": resp})
}

// UpdateMessage handles PATCH /chats/:chat_id/messages/:message_id.
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messageRepo.UpdateMessage(c.Request.Context(), messageID, chatID, userID, req.Content); err != nil {
		respondError(c, err, "could not update message")
		return
	}

	c.Status(http.StatusNoContent)
}

// PinMessage handles PUT /chats/:chat_id/messages/:message_id/pin. Any active
// member may pin or unpin.
func (h *MessageHandler) PinMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	var req struct {
		Pinned *bool `json:"pinned" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.messageRepo.PinMessage(c.Request.Context(), messageID, chatID, userID, *req.Pinned); err != nil {
		respondError(c, err, "could not pin message")
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteMessage handles DELETE /chats/:chat_id/messages/:message_id, sender
// only.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	messageID, ok := messageIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	if err := h.messageRepo.DeleteMessage(c.Request.Context(), messageID, chatID, userID); err != nil {
		emitAudit(c, h.audit, "ERROR", "could not delete message")
		respondError(c, err, "could not delete message")
		return
	}

	publishEvent(c, "message_deleted", gin.H{"chat_id": chatID, "message_id": messageID})
	c.Status(http.StatusNoContent)
}

func parseMessageFilter(c *gin.Context) (models.MessageFilter, error) {
	var filter models.MessageFilter

	if v := c.Query("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.After = &t
	}
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.Before = &t
	}
	if v := c.Query("type"); v != "" {
		msgType := models.MessageType(v)
		filter.Type = &msgType
	}
	if v := c.Query("pinned"); v != "" {
		pinned, err := strconv.ParseBool(v)
		if err != nil {
			return filter, err
		}
		filter.Pinned = &pinned
	}
	filter.Keyword = c.Query("keyword")
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return filter, err
		}
		filter.Limit = limit
	}

	return filter, nil
}
