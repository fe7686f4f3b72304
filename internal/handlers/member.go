package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
)

// MemberHandler manages membership endpoints.
type MemberHandler struct {
	memberRepo repositories.MemberRepository
	audit      *telemetry.AuditEmitter
}

// NewMemberHandler builds a MemberHandler.
func NewMemberHandler(memberRepo repositories.MemberRepository, audit *telemetry.AuditEmitter) *MemberHandler {
	return &MemberHandler{memberRepo: memberRepo, audit: audit}
}

// ListMembers returns the chat's active members in seniority order.
func (h *MemberHandler) ListMembers(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	members, err := h.memberRepo.ListMembers(c.Request.Context(), chatID, userID)
	if err != nil {
		respondError(c, err, "failed to load members")
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMembers handles POST /chats/:chat_id/members.
func (h *MemberHandler) AddMembers(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	var req struct {
		MemberIDs []string `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !memberIDsValid(c, req.MemberIDs) {
		return
	}

	members, err := h.memberRepo.AddMembers(c.Request.Context(), chatID, userID, req.MemberIDs)
	if err != nil {
		emitAudit(c, h.audit, "ERROR", "could not add members")
		respondError(c, err, "could not add members")
		return
	}

	publishEvent(c, "members_added", gin.H{"chat_id": chatID, "count": len(members)})
	emitAudit(c, h.audit, "INFO", "Members added")
	c.JSON(http.StatusCreated, gin.H{"members": members})
}

// RemoveMember handles DELETE /chats/:chat_id/members/:user_id, owner only.
func (h *MemberHandler) RemoveMember(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	memberID := c.Param("user_id")
	if _, err := uuid.Parse(memberID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	userID := c.GetString("userID")

	if err := h.memberRepo.RemoveMember(c.Request.Context(), chatID, userID, memberID); err != nil {
		emitAudit(c, h.audit, "ERROR", "could not remove member")
		respondError(c, err, "could not remove member")
		return
	}

	publishEvent(c, "member_removed", gin.H{"chat_id": chatID, "user_id": memberID})
	emitAudit(c, h.audit, "INFO", "Member removed")
	c.Status(http.StatusNoContent)
}

// TransferOwnership handles POST /chats/:chat_id/owner.
func (h *MemberHandler) TransferOwnership(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	var req struct {
		NewOwnerID string `json:"new_owner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := uuid.Parse(req.NewOwnerID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.memberRepo.TransferOwnership(c.Request.Context(), chatID, userID, req.NewOwnerID); err != nil {
		emitAudit(c, h.audit, "ERROR", "could not transfer ownership")
		respondError(c, err, "could not transfer ownership")
		return
	}

	publishEvent(c, "ownership_transferred", gin.H{"chat_id": chatID, "new_owner_id": req.NewOwnerID})
	emitAudit(c, h.audit, "INFO", "Ownership transferred")
	c.Status(http.StatusNoContent)
}

// LeaveChat handles DELETE /chats/:chat_id/me.
func (h *MemberHandler) LeaveChat(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	if err := h.memberRepo.LeaveChat(c.Request.Context(), chatID, userID); err != nil {
		emitAudit(c, h.audit, "ERROR", "could not leave chat")
		respondError(c, err, "could not leave chat")
		return
	}

	publishEvent(c, "member_left", gin.H{"chat_id": chatID, "user_id": userID})
	emitAudit(c, h.audit, "INFO", "Left chat")
	c.Status(http.StatusNoContent)
}

// MarkRead handles POST /chats/:chat_id/read.
func (h *MemberHandler) MarkRead(c *gin.Context) {
	chatID, ok := chatIDParam(c)
	if !ok {
		return
	}
	userID := c.GetString("userID")

	if err := h.memberRepo.MarkRead(c.Request.Context(), chatID, userID); err != nil {
		respondError(c, err, "could not mark chat read")
		return
	}

	c.Status(http.StatusNoContent)
}
