package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"messenger-service/internal/apperrors"
	"messenger-service/internal/observability"
	"messenger-service/internal/telemetry"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if userID := c.GetString("userID"); userID != "" {
		return &userID
	}
	return nil
}

func traceIDFromContext(c *gin.Context) string {
	span := trace.SpanFromContext(c.Request.Context())
	if sc := span.SpanContext(); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

func emitAudit(c *gin.Context, emitter *telemetry.AuditEmitter, level, text string) {
	if emitter == nil {
		return
	}
	emitter.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c),
		observability.DeviceIDFromRequest(c.Request), observability.IPFromRequest(c.Request))
}

func publishEvent(c *gin.Context, name string, payload any) {
	envelope := observability.EventEnvelope{
		EventType: "chat_events",
		EventName: name,
		RequestID: requestIDFromContext(c),
		TraceID:   traceIDFromContext(c),
		Payload:   payload,
	}
	_ = observability.PublishEvent(c.Request.Context(), "chat_events."+name, envelope)
}

func statusForError(err error) int {
	if kind, ok := apperrors.KindOf(err); ok {
		switch kind {
		case apperrors.KindBadRequest:
			return http.StatusBadRequest
		case apperrors.KindForbidden:
			return http.StatusForbidden
		case apperrors.KindNotFound:
			return http.StatusNotFound
		case apperrors.KindConflict:
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}

// respondError maps kinded store errors to their status and message; anything
// else becomes a 500 with the fallback text so internals do not leak.
func respondError(c *gin.Context, err error, fallback string) {
	if _, ok := apperrors.KindOf(err); ok {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
}

// memberIDsValid rejects body-carried ids that are not UUIDs, so malformed
// input fails here instead of surfacing as a cast error from the database.
func memberIDsValid(c *gin.Context, ids []string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return false
		}
	}
	return true
}

func chatIDParam(c *gin.Context) (string, bool) {
	id := c.Param("chat_id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return "", false
	}
	return id, true
}

func messageIDParam(c *gin.Context) (string, bool) {
	id := c.Param("message_id")
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return "", false
	}
	return id, true
}
