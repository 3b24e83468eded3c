package models

import "time"

// AuditEvent is one request-level audit trail entry. Every /api/v1 call is
// recorded, including rejected ones.
type AuditEvent struct {
	ID                int64     `json:"id"`
	CreatedAt         time.Time `json:"created_at"`
	Method            string    `json:"method"`
	Path              string    `json:"path"`
	StatusCode        int       `json:"status_code"`
	AuthResult        string    `json:"auth_result"`
	APIKeyFingerprint *string   `json:"api_key_fingerprint,omitempty"`
	ActorOperatorID   *string   `json:"actor_operator_id,omitempty"`
	ActorRole         *string   `json:"actor_role,omitempty"`
	ActorSiteID       *string   `json:"actor_site_id,omitempty"`
	RequestID         *string   `json:"request_id,omitempty"`
	SessionID         *string   `json:"session_id,omitempty"`
	SiteID            *string   `json:"site_id,omitempty"`
	SubjectID         *string   `json:"subject_id,omitempty"`
	OperatorID        *string   `json:"operator_id,omitempty"`
	RemoteAddr        *string   `json:"remote_addr,omitempty"`
	DetailJSON        *string   `json:"detail_json,omitempty"`
}

// AuditFilter holds list-query parameters for audit events.
type AuditFilter struct {
	Path       string `form:"path"`
	SiteID     string `form:"site_id"`
	StatusCode int    `form:"status_code"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}
