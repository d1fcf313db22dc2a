package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"permitwatch/models"
)

// SQLiteStore holds operational data: run history, structured scrape logs,
// the daemon command queue, and per-city rollup stats. Domain data (permits,
// contractors) lives in Postgres.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		city TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		permits_found INTEGER DEFAULT 0,
		permits_saved INTEGER DEFAULT 0,
		permits_skipped INTEGER DEFAULT 0,
		contractors_matched INTEGER DEFAULT 0,
		errors_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		city TEXT
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS city_stats (
		city TEXT PRIMARY KEY,
		last_run_at DATETIME,
		last_run_status TEXT,
		total_permits INTEGER DEFAULT 0,
		total_runs INTEGER DEFAULT 0,
		success_rate REAL DEFAULT 0,
		avg_run_duration_sec INTEGER DEFAULT 0
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO scrape_runs (city, started_at, status)
		VALUES (?, ?, ?)`,
		run.City, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET
			finished_at = ?, status = ?, permits_found = ?, permits_saved = ?,
			permits_skipped = ?, contractors_matched = ?, errors_count = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.PermitsFound, run.PermitsSaved,
		run.PermitsSkipped, run.ContractorsMatched, run.ErrorsCount, run.ID)
	return err
}

func (s *SQLiteStore) GetLastRunTime(city string) (time.Time, error) {
	var started sql.NullTime
	err := s.db.QueryRow(`
		SELECT MAX(started_at) FROM scrape_runs WHERE city = ?`, city).Scan(&started)
	if err != nil {
		return time.Time{}, err
	}
	if !started.Valid {
		return time.Time{}, nil
	}
	return started.Time, nil
}

// UpdateCityStats recomputes the rollup row for a city from its run history.
func (s *SQLiteStore) UpdateCityStats(city string) error {
	_, err := s.db.Exec(`
		INSERT INTO city_stats (city, last_run_at, last_run_status, total_permits, total_runs, success_rate, avg_run_duration_sec)
		SELECT
			?,
			MAX(started_at),
			(SELECT status FROM scrape_runs WHERE city = ? ORDER BY started_at DESC LIMIT 1),
			COALESCE(SUM(permits_saved), 0),
			COUNT(*),
			COALESCE(AVG(CASE WHEN status = 'completed' THEN 1.0 ELSE 0.0 END), 0),
			COALESCE(AVG(CAST(strftime('%s', finished_at) - strftime('%s', started_at) AS INTEGER)), 0)
		FROM scrape_runs WHERE city = ?
		ON CONFLICT(city) DO UPDATE SET
			last_run_at = excluded.last_run_at,
			last_run_status = excluded.last_run_status,
			total_permits = excluded.total_permits,
			total_runs = excluded.total_runs,
			success_rate = excluded.success_rate,
			avg_run_duration_sec = excluded.avg_run_duration_sec`,
		city, city, city)
	return err
}

// =============================================================================
// Logs
// =============================================================================

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, city string) {
	// Best effort: a failed log write never disturbs the scrape.
	s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, message, city)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, city)
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, COALESCE(params, '{}'), created_at
		FROM commands
		WHERE processed_at IS NULL
		ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params string
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt); err != nil {
			return nil, err
		}
		cmd.Params = json.RawMessage(params)
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func (s *SQLiteStore) ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	params := &models.CommandParams{}
	if len(cmd.Params) == 0 {
		return params, nil
	}
	if err := json.Unmarshal(cmd.Params, params); err != nil {
		return nil, fmt.Errorf("parse command params: %w", err)
	}
	return params, nil
}
