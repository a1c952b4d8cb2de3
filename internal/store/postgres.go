// Package store — PostgreSQL Store implementation backed by pgxpool.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/mediguard/driftai/pkg/models"
)

// PostgresStore implements Store on a pgx connection pool. Metrics are stored
// as JSONB so new camera-derived metrics need no schema change.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and migrates. The caller owns Close.
func NewPostgresStore(ctx context.Context, connURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Msg("🗄️ postgres store initialized")
	return s, nil
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS mg_health_checks (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			check_date TIMESTAMPTZ NOT NULL,
			metrics    JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_mg_checks_user_date ON mg_health_checks (user_id, check_date);

		CREATE TABLE IF NOT EXISTS mg_user_context (
			user_id          TEXT PRIMARY KEY,
			sleep_hours      DOUBLE PRECISION NOT NULL DEFAULT 7,
			stress_level     TEXT NOT NULL DEFAULT 'medium',
			workload         TEXT NOT NULL DEFAULT 'moderate',
			activity_level   TEXT NOT NULL DEFAULT 'moderate',
			medical_summary  TEXT NOT NULL DEFAULT '',
			known_conditions TEXT NOT NULL DEFAULT '',
			report_summary   TEXT NOT NULL DEFAULT '',
			updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS mg_user_profiles (
			user_id   TEXT PRIMARY KEY,
			name      TEXT NOT NULL DEFAULT '',
			age       INT NOT NULL DEFAULT 0,
			lifestyle TEXT NOT NULL DEFAULT ''
		);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) ListHealthChecks(ctx context.Context, userID string, limit int) ([]models.HealthCheck, error) {
	q := `SELECT id, user_id, check_date, metrics, created_at
		FROM mg_health_checks WHERE user_id = $1 ORDER BY check_date ASC`
	args := []any{userID}
	if limit > 0 {
		// Newest N, re-ordered ascending for the analyzer.
		q = `SELECT id, user_id, check_date, metrics, created_at FROM (
				SELECT id, user_id, check_date, metrics, created_at
				FROM mg_health_checks WHERE user_id = $1
				ORDER BY check_date DESC LIMIT $2
			) recent ORDER BY check_date ASC`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list health checks: %w", err)
	}
	defer rows.Close()

	var out []models.HealthCheck
	for rows.Next() {
		var c models.HealthCheck
		var metricsJSON []byte
		if err := rows.Scan(&c.ID, &c.UserID, &c.CheckDate, &metricsJSON, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan health check: %w", err)
		}
		if err := json.Unmarshal(metricsJSON, &c.Metrics); err != nil {
			return nil, fmt.Errorf("decode metrics for check %s: %w", c.ID, err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateHealthCheck(ctx context.Context, check *models.HealthCheck) error {
	if check.ID == "" {
		check.ID = uuid.NewString()
	}
	metricsJSON, err := json.Marshal(check.Metrics)
	if err != nil {
		return fmt.Errorf("encode metrics: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO mg_health_checks (id, user_id, check_date, metrics)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		check.ID, check.UserID, check.CheckDate, metricsJSON)
	if err := row.Scan(&check.CreatedAt); err != nil {
		return fmt.Errorf("insert health check: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserContext(ctx context.Context, userID string) (*models.UserContext, error) {
	var c models.UserContext
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, sleep_hours, stress_level, workload, activity_level,
		       medical_summary, known_conditions, report_summary, updated_at
		FROM mg_user_context WHERE user_id = $1`, userID).
		Scan(&c.UserID, &c.SleepHours, &c.StressLevel, &c.Workload, &c.ActivityLevel,
			&c.MedicalSummary, &c.KnownConditions, &c.ReportSummary, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "user context", Key: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("get user context: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) PutUserContext(ctx context.Context, userCtx *models.UserContext) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mg_user_context (user_id, sleep_hours, stress_level, workload,
			activity_level, medical_summary, known_conditions, report_summary, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			sleep_hours = EXCLUDED.sleep_hours,
			stress_level = EXCLUDED.stress_level,
			workload = EXCLUDED.workload,
			activity_level = EXCLUDED.activity_level,
			medical_summary = EXCLUDED.medical_summary,
			known_conditions = EXCLUDED.known_conditions,
			report_summary = EXCLUDED.report_summary,
			updated_at = NOW()`,
		userCtx.UserID, userCtx.SleepHours, userCtx.StressLevel, userCtx.Workload,
		userCtx.ActivityLevel, userCtx.MedicalSummary, userCtx.KnownConditions, userCtx.ReportSummary)
	if err != nil {
		return fmt.Errorf("put user context: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, name, age, lifestyle FROM mg_user_profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.Name, &p.Age, &p.Lifestyle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &ErrNotFound{Entity: "user profile", Key: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) PutUserProfile(ctx context.Context, profile *models.UserProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO mg_user_profiles (user_id, name, age, lifestyle)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			age = EXCLUDED.age,
			lifestyle = EXCLUDED.lifestyle`,
		profile.UserID, profile.Name, profile.Age, profile.Lifestyle)
	if err != nil {
		return fmt.Errorf("put user profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
