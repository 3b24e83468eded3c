package database

import (
	"database/sql"
	"fmt"
	"log"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations are applied in order and recorded in the migrations table.
// Keep them append-only; never edit an applied migration.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_paired_measurements",
		SQL: `
			CREATE TABLE IF NOT EXISTS paired_measurements (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TEXT NOT NULL,
				measured_at TEXT NOT NULL,
				session_id TEXT NOT NULL,
				site_id TEXT NOT NULL,
				subject_id TEXT NOT NULL,
				operator_id TEXT NOT NULL,
				attempt_number INTEGER NOT NULL,
				platform TEXT NOT NULL,
				device_model TEXT,
				app_version TEXT,
				capture_mode TEXT NOT NULL,
				app_quality_status TEXT NOT NULL,
				app_quality_score REAL,
				app_model_id TEXT,
				app_qmax_ml_s REAL NOT NULL,
				app_qavg_ml_s REAL NOT NULL,
				app_vvoid_ml REAL NOT NULL,
				app_flow_time_s REAL,
				app_tqmax_s REAL,
				ref_qmax_ml_s REAL NOT NULL,
				ref_qavg_ml_s REAL NOT NULL,
				ref_vvoid_ml REAL NOT NULL,
				ref_flow_time_s REAL,
				ref_tqmax_s REAL,
				ref_device_model TEXT,
				ref_device_serial TEXT,
				notes TEXT,
				payload_json TEXT NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_paired_measurements_session
				ON paired_measurements(session_id, attempt_number);
			CREATE INDEX IF NOT EXISTS idx_paired_measurements_subject
				ON paired_measurements(site_id, subject_id);
			CREATE INDEX IF NOT EXISTS idx_paired_measurements_measured_at
				ON paired_measurements(measured_at);
		`,
	},
	{
		Version: 2,
		Name:    "create_audit_events",
		SQL: `
			CREATE TABLE IF NOT EXISTS audit_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TEXT NOT NULL,
				method TEXT NOT NULL,
				path TEXT NOT NULL,
				status_code INTEGER NOT NULL,
				auth_result TEXT NOT NULL,
				api_key_fingerprint TEXT,
				actor_operator_id TEXT,
				actor_role TEXT,
				actor_site_id TEXT,
				request_id TEXT,
				session_id TEXT,
				site_id TEXT,
				subject_id TEXT,
				operator_id TEXT,
				remote_addr TEXT,
				detail_json TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_audit_events_created_at
				ON audit_events(created_at);
			CREATE INDEX IF NOT EXISTS idx_audit_events_path
				ON audit_events(path);
		`,
	},
	{
		Version: 3,
		Name:    "create_capture_packages",
		SQL: `
			CREATE TABLE IF NOT EXISTS capture_packages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TEXT NOT NULL,
				measured_at TEXT NOT NULL,
				session_id TEXT NOT NULL,
				site_id TEXT NOT NULL,
				subject_id TEXT NOT NULL,
				operator_id TEXT NOT NULL,
				attempt_number INTEGER NOT NULL,
				platform TEXT NOT NULL,
				device_model TEXT,
				app_version TEXT,
				capture_mode TEXT NOT NULL,
				package_type TEXT NOT NULL,
				paired_measurement_id INTEGER,
				notes TEXT,
				capture_payload_json TEXT NOT NULL,
				FOREIGN KEY(paired_measurement_id) REFERENCES paired_measurements(id)
			);
			CREATE INDEX IF NOT EXISTS idx_capture_packages_session
				ON capture_packages(session_id, attempt_number);
			CREATE INDEX IF NOT EXISTS idx_capture_packages_subject
				ON capture_packages(site_id, subject_id);
			CREATE INDEX IF NOT EXISTS idx_capture_packages_measured_at
				ON capture_packages(measured_at);
			CREATE INDEX IF NOT EXISTS idx_capture_packages_paired_measurement
				ON capture_packages(paired_measurement_id);
		`,
	},
	{
		Version: 4,
		Name:    "create_pilot_automation_reports",
		SQL: `
			CREATE TABLE IF NOT EXISTS pilot_automation_reports (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TEXT NOT NULL,
				site_id TEXT NOT NULL,
				report_date TEXT NOT NULL,
				report_type TEXT NOT NULL,
				package_version TEXT,
				model_id TEXT,
				dataset_id TEXT,
				payload_json TEXT NOT NULL,
				notes TEXT
			);
			CREATE INDEX IF NOT EXISTS idx_pilot_reports_site_type_date
				ON pilot_automation_reports(site_id, report_type, report_date);
			CREATE INDEX IF NOT EXISTS idx_pilot_reports_report_date
				ON pilot_automation_reports(report_date);
			CREATE INDEX IF NOT EXISTS idx_pilot_reports_created_at
				ON pilot_automation_reports(created_at);
		`,
	},
}

// InitMigrationsTable creates the migrations tracking table
func InitMigrationsTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`
	_, err := db.Exec(query)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns the set of applied migration versions
func GetAppliedMigrations(db *sql.DB) (map[int]bool, error) {
	rows, err := db.Query("SELECT version FROM migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}

	return applied, nil
}

// tableColumns returns the column names of a table via PRAGMA table_info.
func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			colType    string
			notNull    int
			dfltValue  sql.NullString
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &primaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		columns[name] = true
	}
	return columns, nil
}

// ensureAuditActorColumns adds the actor attribution columns to databases
// created before they existed. ALTER TABLE ADD COLUMN is additive only.
func ensureAuditActorColumns(db *sql.DB) error {
	existing, err := tableColumns(db, "audit_events")
	if err != nil {
		return err
	}
	for _, column := range []string{"actor_operator_id", "actor_role", "actor_site_id", "request_id"} {
		if existing[column] {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE audit_events ADD COLUMN %s TEXT", column)); err != nil {
			return fmt.Errorf("failed to add audit column %s: %w", column, err)
		}
	}
	return nil
}

// ApplyMigration applies a single migration
func ApplyMigration(db *sql.DB, migration Migration) error {
	if _, err := db.Exec(migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
	}

	_, err := db.Exec("INSERT INTO migrations (version, name) VALUES (?, ?)", migration.Version, migration.Name)
	if err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
	}

	log.Printf("[Database] applied migration %d: %s", migration.Version, migration.Name)
	return nil
}

// RunMigrations runs all pending migrations
func RunMigrations(db *sql.DB) error {
	if err := InitMigrationsTable(db); err != nil {
		return err
	}

	applied, err := GetAppliedMigrations(db)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if applied[migration.Version] {
			continue
		}
		if err := ApplyMigration(db, migration); err != nil {
			return err
		}
	}

	return ensureAuditActorColumns(db)
}
