package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
)

// AuditRepository handles database operations for audit events
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert records one audit event
func (r *AuditRepository) Insert(event *models.AuditEvent) error {
	query := `INSERT INTO audit_events (
		created_at, method, path, status_code, auth_result, api_key_fingerprint,
		actor_operator_id, actor_role, actor_site_id, request_id,
		session_id, site_id, subject_id, operator_id, remote_addr, detail_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.Exec(query,
		formatTime(time.Now()),
		event.Method,
		event.Path,
		event.StatusCode,
		event.AuthResult,
		event.APIKeyFingerprint,
		event.ActorOperatorID,
		event.ActorRole,
		event.ActorSiteID,
		event.RequestID,
		event.SessionID,
		event.SiteID,
		event.SubjectID,
		event.OperatorID,
		event.RemoteAddr,
		event.DetailJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}
	return nil
}

// List retrieves audit events, newest first. The site filter matches either
// the session site or the actor site so site-scoped callers see their own
// rejected requests too.
func (r *AuditRepository) List(filter models.AuditFilter) ([]models.AuditEvent, error) {
	var conditions []string
	var args []interface{}
	if filter.Path != "" {
		conditions = append(conditions, "path = ?")
		args = append(args, filter.Path)
	}
	if filter.SiteID != "" {
		conditions = append(conditions, "(site_id = ? OR actor_site_id = ?)")
		args = append(args, filter.SiteID, filter.SiteID)
	}
	if filter.StatusCode != 0 {
		conditions = append(conditions, "status_code = ?")
		args = append(args, filter.StatusCode)
	}

	query := `SELECT id, created_at, method, path, status_code, auth_result,
		api_key_fingerprint, actor_operator_id, actor_role, actor_site_id, request_id,
		session_id, site_id, subject_id, operator_id, remote_addr, detail_json
		FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit, 200, 5000), maxInt(filter.Offset, 0))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var (
			event     models.AuditEvent
			createdAt string
			ns        [11]sql.NullString
		)
		err := rows.Scan(
			&event.ID, &createdAt, &event.Method, &event.Path, &event.StatusCode, &event.AuthResult,
			&ns[0], &ns[1], &ns[2], &ns[3], &ns[4],
			&ns[5], &ns[6], &ns[7], &ns[8], &ns[9], &ns[10],
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		if event.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		event.APIKeyFingerprint = nullableString(ns[0])
		event.ActorOperatorID = nullableString(ns[1])
		event.ActorRole = nullableString(ns[2])
		event.ActorSiteID = nullableString(ns[3])
		event.RequestID = nullableString(ns[4])
		event.SessionID = nullableString(ns[5])
		event.SiteID = nullableString(ns[6])
		event.SubjectID = nullableString(ns[7])
		event.OperatorID = nullableString(ns[8])
		event.RemoteAddr = nullableString(ns[9])
		event.DetailJSON = nullableString(ns[10])
		events = append(events, event)
	}
	return events, nil
}
