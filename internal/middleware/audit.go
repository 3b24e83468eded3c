package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/repository"
)

// ContextRequestID carries the per-request audit ID for downstream logging
const ContextRequestID = "request_id"

// sessionMetadata is the session identity extracted from a request body for
// the audit trail. Fields may be empty when the body carries none.
type sessionMetadata struct {
	SessionID  string
	SiteID     string
	SubjectID  string
	OperatorID string
}

func stringField(payload map[string]interface{}, key string) string {
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

// extractSessionMetadata reads the session identity from a JSON body, either
// from a nested "session" object or from top-level fields.
func extractSessionMetadata(body []byte) sessionMetadata {
	if len(body) == 0 {
		return sessionMetadata{}
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return sessionMetadata{}
	}

	source := payload
	if nested, ok := payload["session"].(map[string]interface{}); ok {
		source = nested
	}
	return sessionMetadata{
		SessionID:  stringField(source, "session_id"),
		SiteID:     stringField(source, "site_id"),
		SubjectID:  stringField(source, "subject_id"),
		OperatorID: stringField(source, "operator_id"),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Audit records every /api/v1 request in the audit_events table, including
// requests rejected by auth. Register it before Auth so it wraps the whole
// chain. Audit failures are logged, never surfaced to the client.
func Audit(repo *repository.AuditRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/v1/") {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		meta := extractSessionMetadata(body)

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextRequestID, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		authResult := c.GetString(ContextAuthResult)
		if authResult == "" {
			authResult = "not_configured"
		}
		detail, _ := json.Marshal(map[string]string{"query": c.Request.URL.RawQuery})
		detailJSON := string(detail)

		event := &models.AuditEvent{
			Method:            c.Request.Method,
			Path:              c.Request.URL.Path,
			StatusCode:        c.Writer.Status(),
			AuthResult:        authResult,
			APIKeyFingerprint: optional(c.GetString(ContextTokenFingerprint)),
			ActorOperatorID:   optional(c.GetString(ContextActorOperatorID)),
			ActorRole:         optional(c.GetString(ContextActorRole)),
			ActorSiteID:       optional(c.GetString(ContextActorSiteID)),
			RequestID:         optional(requestID),
			SessionID:         optional(meta.SessionID),
			SiteID:            optional(meta.SiteID),
			SubjectID:         optional(meta.SubjectID),
			OperatorID:        optional(meta.OperatorID),
			RemoteAddr:        optional(c.ClientIP()),
			DetailJSON:        optional(detailJSON),
		}
		if err := repo.Insert(event); err != nil {
			log.Printf("[Audit] failed to record event for %s %s: %v", event.Method, event.Path, err)
		}
	}
}
