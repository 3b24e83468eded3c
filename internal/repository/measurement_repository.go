package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
)

// Timestamps are stored as UTC RFC 3339 strings so lexicographic ordering
// in SQL matches chronological ordering.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		t, err = time.Parse(time.RFC3339, value)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse stored timestamp %q: %w", value, err)
	}
	return t, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableFloat(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	f := nf.Float64
	return &f
}

func nullableInt(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	i := ni.Int64
	return &i
}

// MeasurementRepository handles database operations for paired measurements
type MeasurementRepository struct {
	db *sql.DB
}

// NewMeasurementRepository creates a new measurement repository
func NewMeasurementRepository(db *sql.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// Insert persists one paired measurement and returns its row ID. The full
// request payload is kept verbatim as JSON for idempotency checks and export.
func (r *MeasurementRepository) Insert(payload *models.PairedMeasurementCreate) (int64, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode measurement payload: %w", err)
	}

	query := `INSERT INTO paired_measurements (
		created_at, measured_at, session_id, site_id, subject_id, operator_id,
		attempt_number, platform, device_model, app_version, capture_mode,
		app_quality_status, app_quality_score, app_model_id,
		app_qmax_ml_s, app_qavg_ml_s, app_vvoid_ml, app_flow_time_s, app_tqmax_s,
		ref_qmax_ml_s, ref_qavg_ml_s, ref_vvoid_ml, ref_flow_time_s, ref_tqmax_s,
		ref_device_model, ref_device_serial, notes, payload_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		formatTime(time.Now()),
		formatTime(payload.Session.MeasuredAt),
		payload.Session.SessionID,
		payload.Session.SiteID,
		payload.Session.SubjectID,
		payload.Session.OperatorID,
		payload.Session.AttemptNumber,
		payload.Session.Platform,
		payload.Session.DeviceModel,
		payload.Session.AppVersion,
		payload.Session.CaptureMode,
		payload.App.QualityStatus,
		payload.App.QualityScore,
		payload.App.ModelID,
		payload.App.Metrics.QmaxMlS,
		payload.App.Metrics.QavgMlS,
		payload.App.Metrics.VvoidMl,
		payload.App.Metrics.FlowTimeS,
		payload.App.Metrics.TqmaxS,
		payload.Reference.Metrics.QmaxMlS,
		payload.Reference.Metrics.QavgMlS,
		payload.Reference.Metrics.VvoidMl,
		payload.Reference.Metrics.FlowTimeS,
		payload.Reference.Metrics.TqmaxS,
		payload.Reference.DeviceModel,
		payload.Reference.DeviceSerial,
		payload.Notes,
		string(payloadJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert paired measurement: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read paired measurement id: %w", err)
	}
	return id, nil
}

// scanRecord rebuilds a full record from the stored payload JSON plus the
// row identity columns.
func scanMeasurementRecord(scan func(...interface{}) error) (*models.PairedMeasurementRecord, string, error) {
	var (
		id          int64
		createdAt   string
		payloadJSON string
	)
	if err := scan(&id, &createdAt, &payloadJSON); err != nil {
		return nil, "", err
	}

	var payload models.PairedMeasurementCreate
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return nil, "", fmt.Errorf("failed to decode stored measurement payload: %w", err)
	}
	created, err := parseTime(createdAt)
	if err != nil {
		return nil, "", err
	}

	return &models.PairedMeasurementRecord{
		ID:        id,
		CreatedAt: created,
		Session:   payload.Session,
		App:       payload.App,
		Reference: payload.Reference,
		Notes:     payload.Notes,
	}, payloadJSON, nil
}

// GetByID retrieves a single paired measurement, nil when absent
func (r *MeasurementRepository) GetByID(id int64) (*models.PairedMeasurementRecord, error) {
	row := r.db.QueryRow(
		"SELECT id, created_at, payload_json FROM paired_measurements WHERE id = ?", id)
	record, _, err := scanMeasurementRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get paired measurement: %w", err)
	}
	return record, nil
}

// FindByIdentity retrieves the latest measurement with the same
// site/subject/session/attempt identity, along with its stored payload JSON.
func (r *MeasurementRepository) FindByIdentity(siteID, subjectID, sessionID string, attemptNumber int) (*models.PairedMeasurementRecord, string, error) {
	row := r.db.QueryRow(`SELECT id, created_at, payload_json
		FROM paired_measurements
		WHERE site_id = ? AND subject_id = ? AND session_id = ? AND attempt_number = ?
		ORDER BY id DESC LIMIT 1`,
		siteID, subjectID, sessionID, attemptNumber)
	record, payloadJSON, err := scanMeasurementRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up paired measurement identity: %w", err)
	}
	return record, payloadJSON, nil
}

// List retrieves paired measurement list items, newest first
func (r *MeasurementRepository) List(filter models.MeasurementFilter) ([]models.PairedMeasurementListItem, error) {
	var conditions []string
	var args []interface{}
	if filter.SiteID != "" {
		conditions = append(conditions, "site_id = ?")
		args = append(args, filter.SiteID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, filter.SubjectID)
	}

	query := `SELECT id, created_at, measured_at, session_id, site_id, subject_id,
		attempt_number, platform, app_quality_status,
		app_qmax_ml_s, ref_qmax_ml_s, app_vvoid_ml, ref_vvoid_ml
		FROM paired_measurements`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY measured_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit, 100, 1000), maxInt(filter.Offset, 0))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query paired measurements: %w", err)
	}
	defer rows.Close()

	var items []models.PairedMeasurementListItem
	for rows.Next() {
		var (
			item       models.PairedMeasurementListItem
			createdAt  string
			measuredAt string
		)
		err := rows.Scan(
			&item.ID, &createdAt, &measuredAt, &item.SessionID, &item.SiteID, &item.SubjectID,
			&item.AttemptNumber, &item.Platform, &item.AppQualityStatus,
			&item.AppQmaxMlS, &item.RefQmaxMlS, &item.AppVvoidMl, &item.RefVvoidMl,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paired measurement: %w", err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if item.MeasuredAt, err = parseTime(measuredAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// MethodComparisonRows fetches the metric columns needed for the comparison
// summary, ordered chronologically so results are stable across runs.
func (r *MeasurementRepository) MethodComparisonRows(siteID, subjectID, platform, captureMode string) ([]models.MethodComparisonRow, error) {
	var conditions []string
	var args []interface{}
	if siteID != "" {
		conditions = append(conditions, "site_id = ?")
		args = append(args, siteID)
	}
	if subjectID != "" {
		conditions = append(conditions, "subject_id = ?")
		args = append(args, subjectID)
	}
	if platform != "" {
		conditions = append(conditions, "platform = ?")
		args = append(args, platform)
	}
	if captureMode != "" {
		conditions = append(conditions, "capture_mode = ?")
		args = append(args, captureMode)
	}

	query := `SELECT app_quality_status,
		app_qmax_ml_s, app_qavg_ml_s, app_vvoid_ml, app_flow_time_s, app_tqmax_s,
		ref_qmax_ml_s, ref_qavg_ml_s, ref_vvoid_ml, ref_flow_time_s, ref_tqmax_s
		FROM paired_measurements`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY measured_at ASC, id ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query comparison rows: %w", err)
	}
	defer rows.Close()

	var result []models.MethodComparisonRow
	for rows.Next() {
		var (
			row models.MethodComparisonRow
			f   [10]sql.NullFloat64
		)
		err := rows.Scan(&row.AppQualityStatus,
			&f[0], &f[1], &f[2], &f[3], &f[4],
			&f[5], &f[6], &f[7], &f[8], &f[9])
		if err != nil {
			return nil, fmt.Errorf("failed to scan comparison row: %w", err)
		}
		row.AppQmaxMlS = nullableFloat(f[0])
		row.AppQavgMlS = nullableFloat(f[1])
		row.AppVvoidMl = nullableFloat(f[2])
		row.AppFlowTimeS = nullableFloat(f[3])
		row.AppTqmaxS = nullableFloat(f[4])
		row.RefQmaxMlS = nullableFloat(f[5])
		row.RefQavgMlS = nullableFloat(f[6])
		row.RefVvoidMl = nullableFloat(f[7])
		row.RefFlowTimeS = nullableFloat(f[8])
		row.RefTqmaxS = nullableFloat(f[9])
		result = append(result, row)
	}
	return result, nil
}

func clampLimit(limit, fallback, max int) int {
	if limit < 1 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
