package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/terdenecer-vva/uroflow-mobile-concept-sub000/internal/models"
)

// ReportRepository handles database operations for pilot automation reports
type ReportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Insert persists one pilot automation report and returns its row ID
func (r *ReportRepository) Insert(payload *models.PilotReportCreate) (int64, error) {
	payloadJSON, err := json.Marshal(payload.Payload)
	if err != nil {
		return 0, fmt.Errorf("failed to encode report payload: %w", err)
	}

	query := `INSERT INTO pilot_automation_reports (
		created_at, site_id, report_date, report_type,
		package_version, model_id, dataset_id, payload_json, notes
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.Exec(query,
		formatTime(time.Now()),
		payload.SiteID,
		payload.ReportDate,
		payload.ReportType,
		payload.PackageVersion,
		payload.ModelID,
		payload.DatasetID,
		string(payloadJSON),
		payload.Notes,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert pilot report: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read pilot report id: %w", err)
	}
	return id, nil
}

// GetByID retrieves a single pilot report, nil when absent
func (r *ReportRepository) GetByID(id int64) (*models.PilotReportRecord, error) {
	row := r.db.QueryRow(`SELECT id, created_at, site_id, report_date, report_type,
		package_version, model_id, dataset_id, payload_json, notes
		FROM pilot_automation_reports WHERE id = ?`, id)

	var (
		record         models.PilotReportRecord
		createdAt      string
		packageVersion sql.NullString
		modelID        sql.NullString
		datasetID      sql.NullString
		payloadJSON    string
		notes          sql.NullString
	)
	err := row.Scan(
		&record.ID, &createdAt, &record.SiteID, &record.ReportDate, &record.ReportType,
		&packageVersion, &modelID, &datasetID, &payloadJSON, &notes,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pilot report: %w", err)
	}

	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	record.PackageVersion = nullableString(packageVersion)
	record.ModelID = nullableString(modelID)
	record.DatasetID = nullableString(datasetID)
	record.Notes = nullableString(notes)
	if err := json.Unmarshal([]byte(payloadJSON), &record.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode stored report payload: %w", err)
	}
	return &record, nil
}

// List retrieves pilot report list items, newest report date first
func (r *ReportRepository) List(filter models.ReportFilter) ([]models.PilotReportListItem, error) {
	var conditions []string
	var args []interface{}
	if filter.SiteID != "" {
		conditions = append(conditions, "site_id = ?")
		args = append(args, filter.SiteID)
	}
	if filter.ReportType != "" {
		conditions = append(conditions, "report_type = ?")
		args = append(args, filter.ReportType)
	}
	if filter.ReportDateFrom != "" {
		conditions = append(conditions, "report_date >= ?")
		args = append(args, filter.ReportDateFrom)
	}
	if filter.ReportDateTo != "" {
		conditions = append(conditions, "report_date <= ?")
		args = append(args, filter.ReportDateTo)
	}

	query := `SELECT id, created_at, site_id, report_date, report_type,
		package_version, model_id, dataset_id
		FROM pilot_automation_reports`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY report_date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, clampLimit(filter.Limit, 100, 1000), maxInt(filter.Offset, 0))

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pilot reports: %w", err)
	}
	defer rows.Close()

	var items []models.PilotReportListItem
	for rows.Next() {
		var (
			item           models.PilotReportListItem
			createdAt      string
			packageVersion sql.NullString
			modelID        sql.NullString
			datasetID      sql.NullString
		)
		err := rows.Scan(
			&item.ID, &createdAt, &item.SiteID, &item.ReportDate, &item.ReportType,
			&packageVersion, &modelID, &datasetID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pilot report: %w", err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		item.PackageVersion = nullableString(packageVersion)
		item.ModelID = nullableString(modelID)
		item.DatasetID = nullableString(datasetID)
		items = append(items, item)
	}
	return items, nil
}
