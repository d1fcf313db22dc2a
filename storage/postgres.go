package storage

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"permitwatch/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Migrate applies the embedded schema migrations.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// =============================================================================
// Permits
// =============================================================================

// UpsertPermit creates or updates a permit by its (permit_number, city)
// natural key. Returns true when a new row was created. Re-scraped permits
// only overwrite fields the new scrape actually produced.
func (s *PostgresStore) UpsertPermit(ctx context.Context, p *models.Permit) (bool, error) {
	query := `
		INSERT INTO permits (
			id, permit_number, title, description, street, city, state, zip_code,
			raw_permit_type, raw_status, status, property_type, permit_type,
			confidence, value, applied_date, expiration_date, source_url,
			contractor_id, professional_text, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22
		)
		ON CONFLICT (permit_number, city) DO UPDATE SET
			title = COALESCE(NULLIF(EXCLUDED.title, ''), permits.title),
			description = COALESCE(NULLIF(EXCLUDED.description, ''), permits.description),
			street = COALESCE(NULLIF(EXCLUDED.street, ''), permits.street),
			state = COALESCE(NULLIF(EXCLUDED.state, ''), permits.state),
			zip_code = COALESCE(NULLIF(EXCLUDED.zip_code, ''), permits.zip_code),
			raw_permit_type = COALESCE(NULLIF(EXCLUDED.raw_permit_type, ''), permits.raw_permit_type),
			raw_status = COALESCE(NULLIF(EXCLUDED.raw_status, ''), permits.raw_status),
			status = EXCLUDED.status,
			property_type = COALESCE(EXCLUDED.property_type, permits.property_type),
			permit_type = COALESCE(EXCLUDED.permit_type, permits.permit_type),
			confidence = COALESCE(EXCLUDED.confidence, permits.confidence),
			value = COALESCE(EXCLUDED.value, permits.value),
			applied_date = COALESCE(EXCLUDED.applied_date, permits.applied_date),
			expiration_date = COALESCE(EXCLUDED.expiration_date, permits.expiration_date),
			source_url = COALESCE(NULLIF(EXCLUDED.source_url, ''), permits.source_url),
			contractor_id = COALESCE(EXCLUDED.contractor_id, permits.contractor_id),
			professional_text = COALESCE(NULLIF(EXCLUDED.professional_text, ''), permits.professional_text),
			updated_at = NOW()
		RETURNING id, (xmax = 0)`

	var inserted bool
	err := s.pool.QueryRow(ctx, query,
		p.ID, p.PermitNumber, p.Title, p.Description, p.Street, p.City, p.State, p.ZipCode,
		p.RawPermitType, p.RawStatus, p.Status, p.PropertyType, p.PermitType,
		p.Confidence, p.Value, p.AppliedDate, p.ExpirationDate, p.SourceURL,
		p.ContractorID, p.ProfessionalText, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID, &inserted)
	if err != nil {
		return false, fmt.Errorf("upsert permit %s: %w", p.PermitNumber, err)
	}
	return inserted, nil
}

// FindLargestSuffix returns the largest numeric permit-number suffix already
// stored under a prefix for a city, e.g. prefix "BLDG2025-" with stored
// BLDG2025-0117 yields 117. ok is false when no permit under the prefix
// exists yet.
func (s *PostgresStore) FindLargestSuffix(ctx context.Context, prefix, city string) (int, bool, error) {
	query := `
		SELECT MAX((substring(permit_number from '(\d+)$'))::int)
		FROM permits
		WHERE city = $1 AND permit_number LIKE $2 || '%'
		  AND permit_number ~ '\d+$'`

	var suffix *int
	if err := s.pool.QueryRow(ctx, query, city, prefix).Scan(&suffix); err != nil {
		return 0, false, fmt.Errorf("find largest suffix %s: %w", prefix, err)
	}
	if suffix == nil {
		return 0, false, nil
	}
	return *suffix, true, nil
}

// FindUnmatchedPermits returns permits that carry licensed-professional text
// but were never linked to a contractor. Used by the backfill worker.
func (s *PostgresStore) FindUnmatchedPermits(ctx context.Context, limit int) ([]models.Permit, error) {
	query := `
		SELECT id, permit_number, city, professional_text
		FROM permits
		WHERE contractor_id IS NULL AND professional_text != ''
		ORDER BY updated_at ASC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permits []models.Permit
	for rows.Next() {
		var p models.Permit
		if err := rows.Scan(&p.ID, &p.PermitNumber, &p.City, &p.ProfessionalText); err != nil {
			return nil, err
		}
		permits = append(permits, p)
	}
	return permits, rows.Err()
}

// =============================================================================
// Contractors (read-only to the scraper)
// =============================================================================

func (s *PostgresStore) FindContractorByLicense(ctx context.Context, licenseNo string) (*models.Contractor, error) {
	query := `
		SELECT id, license_no, name, street, city, state, zip_code, phone, created_at
		FROM contractors WHERE license_no = $1`

	var c models.Contractor
	err := s.pool.QueryRow(ctx, query, licenseNo).Scan(
		&c.ID, &c.LicenseNo, &c.Name, &c.Street, &c.City, &c.State, &c.ZipCode, &c.Phone, &c.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListContractors returns registry contractors for fuzzy name matching,
// optionally scoped to a city. The registry is small enough (tens of
// thousands of rows) to scan in memory per batch.
func (s *PostgresStore) ListContractors(ctx context.Context, cityHint string) ([]models.Contractor, error) {
	query := `
		SELECT id, license_no, name, street, city, state, zip_code, phone, created_at
		FROM contractors`
	args := []interface{}{}
	if cityHint != "" {
		query += ` WHERE LOWER(city) = LOWER($1)`
		args = append(args, cityHint)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contractors []models.Contractor
	for rows.Next() {
		var c models.Contractor
		if err := rows.Scan(&c.ID, &c.LicenseNo, &c.Name, &c.Street, &c.City, &c.State, &c.ZipCode, &c.Phone, &c.CreatedAt); err != nil {
			return nil, err
		}
		contractors = append(contractors, c)
	}
	return contractors, rows.Err()
}

// LinkContractor records a permit-contractor association and sets the
// permit's primary contractor when not already set.
func (s *PostgresStore) LinkContractor(ctx context.Context, permitID, contractorID uuid.UUID, role string, confidence float64, method string) error {
	if role == "" {
		role = "contractor"
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO permit_contractors (permit_id, contractor_id, role, confidence, method)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (permit_id, contractor_id, role) DO NOTHING`,
		permitID, contractorID, role, confidence, method)
	if err != nil {
		return fmt.Errorf("link contractor: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		UPDATE permits SET contractor_id = $2, updated_at = NOW()
		WHERE id = $1 AND contractor_id IS NULL`,
		permitID, contractorID)
	if err != nil {
		return fmt.Errorf("set primary contractor: %w", err)
	}
	return nil
}

// =============================================================================
// Scrape runs
// =============================================================================

func (s *PostgresStore) CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		INSERT INTO scrape_runs (city, started_at, status)
		VALUES ($1, $2, $3)
		RETURNING id`
	return s.pool.QueryRow(ctx, query, run.City, run.StartedAt, run.Status).Scan(&run.ID)
}

func (s *PostgresStore) UpdateScrapeRun(ctx context.Context, run *models.ScrapeRun) error {
	query := `
		UPDATE scrape_runs SET
			finished_at = $2, status = $3, permits_found = $4, permits_saved = $5,
			permits_skipped = $6, contractors_matched = $7, errors_count = $8
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, query,
		run.ID, run.FinishedAt, run.Status, run.PermitsFound, run.PermitsSaved,
		run.PermitsSkipped, run.ContractorsMatched, run.ErrorsCount)
	return err
}
