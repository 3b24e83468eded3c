package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
)

// PackageRepository handles database operations for capture packages
type PackageRepository struct {
	db *sql.DB
}

// NewPackageRepository creates a new package repository
func NewPackageRepository(db *sql.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// Insert persists one capture package and returns its row ID
func (r *PackageRepository) Insert(payload *models.CapturePackageCreate) (int64, error) {
	capturePayloadJSON, err := json.Marshal(payload.CapturePayload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode capture payload: %w", err)
	}

	query := `INSERT INTO capture_packages (
		created_at, measured_at, session_id, site_id, subject_id, operator_id,
		attempt_number, platform, device_model, app_version, capture_mode,
		package_type, paired_measurement_id, notes, capture_payload_json
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

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
		payload.PackageType,
		payload.PairedMeasurementID,
		payload.Notes,
		string(capturePayloadJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert capture package: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read capture package id: %w", err)
	}
	return id, nil
}

// GetByID retrieves a single capture package, nil when absent
func (r *PackageRepository) GetByID(id int64) (*models.CapturePackageRecord, error) {
	row := r.db.QueryRow(`SELECT id, created_at, measured_at, session_id, site_id,
		subject_id, operator_id, attempt_number, platform, device_model, app_version,
		capture_mode, package_type, paired_measurement_id, notes, capture_payload_json
		FROM capture_packages WHERE id = ?`, id)

	var (
		record             models.CapturePackageRecord
		createdAt          string
		measuredAt         string
		deviceModel        sql.NullString
		appVersion         sql.NullString
		pairedID           sql.NullInt64
		notes              sql.NullString
		capturePayloadJSON string
	)
	err := row.Scan(
		&record.ID, &createdAt, &measuredAt,
		&record.Session.SessionID, &record.Session.SiteID, &record.Session.SubjectID,
		&record.Session.OperatorID, &record.Session.AttemptNumber, &record.Session.Platform,
		&deviceModel, &appVersion, &record.Session.CaptureMode,
		&record.PackageType, &pairedID, &notes, &capturePayloadJSON,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get capture package: %w", err)
	}

	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.Session.MeasuredAt, err = parseTime(measuredAt); err != nil {
		return nil, err
	}
	record.Session.DeviceModel = nullableString(deviceModel)
	record.Session.AppVersion = nullableString(appVersion)
	record.PairedMeasurementID = nullableInt(pairedID)
	record.Notes = nullableString(notes)
	if err := json.Unmarshal([]byte(capturePayloadJSON), &record.CapturePayload); err != nil {
		return nil, fmt.Errorf("failed to decode stored capture payload: %w", err)
	}
	return &record, nil
}

// List retrieves capture package list items, newest first
func (r *PackageRepository) List(filter models.PackageFilter) ([]models.CapturePackageListItem, error) {
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
	if filter.SessionID != "" {
		conditions = append(conditions, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.PackageType != "" {
		conditions = append(conditions, "package_type = ?")
		args = append(args, filter.PackageType)
	}

	query := `SELECT id, created_at, measured_at, session_id, site_id, subject_id,
		operator_id, attempt_number, platform, package_type, paired_measurement_id
		FROM capture_packages`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY measured_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit, 100, 1000), maxInt(filter.Offset, 0))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query capture packages: %w", err)
	}
	defer rows.Close()

	var items []models.CapturePackageListItem
	for rows.Next() {
		var (
			item       models.CapturePackageListItem
			createdAt  string
			measuredAt string
			pairedID   sql.NullInt64
		)
		err := rows.Scan(
			&item.ID, &createdAt, &measuredAt, &item.SessionID, &item.SiteID, &item.SubjectID,
			&item.OperatorID, &item.AttemptNumber, &item.Platform, &item.PackageType, &pairedID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan capture package: %w", err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if item.MeasuredAt, err = parseTime(measuredAt); err != nil {
			return nil, err
		}
		item.PairedMeasurementID = nullableInt(pairedID)
		items = append(items, item)
	}
	return items, nil
}
