package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusSkipped   RunStatus = "skipped"
)

// ScrapeRun records one city's extraction run, in both the SQLite
// operational store and Postgres.
type ScrapeRun struct {
	ID                 int64      `json:"id" db:"id"`
	City               string     `json:"city" db:"city"`
	StartedAt          time.Time  `json:"started_at" db:"started_at"`
	FinishedAt         *time.Time `json:"finished_at" db:"finished_at"`
	Status             RunStatus  `json:"status" db:"status"`
	PermitsFound       int        `json:"permits_found" db:"permits_found"`
	PermitsSaved       int        `json:"permits_saved" db:"permits_saved"`
	PermitsSkipped     int        `json:"permits_skipped" db:"permits_skipped"`
	ContractorsMatched int        `json:"contractors_matched" db:"contractors_matched"`
	ErrorsCount        int        `json:"errors_count" db:"errors_count"`
}

type CityStats struct {
	City           string     `json:"city" db:"city"`
	LastRunAt      *time.Time `json:"last_run_at" db:"last_run_at"`
	LastRunStatus  string     `json:"last_run_status" db:"last_run_status"`
	TotalPermits   int        `json:"total_permits" db:"total_permits"`
	TotalRuns      int        `json:"total_runs" db:"total_runs"`
	SuccessRate    float64    `json:"success_rate" db:"success_rate"`
	AvgRunDuration int        `json:"avg_run_duration_sec" db:"avg_run_duration_sec"`
}
