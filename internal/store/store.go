// Package store provides the storage interface and implementations for the
// MediGuard analysis plane. In-memory maps back local development and tests;
// PostgreSQL backs production.
package store

import (
	"context"

	"github.com/mediguard/driftai/pkg/models"
)

// Store is the storage interface all handler and analyzer code depends on,
// making it easy to swap between in-memory (tests) and PostgreSQL
// (production) implementations.
type Store interface {
	HealthCheckStore
	UserContextStore
	UserProfileStore

	// Ping checks if the backing database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error

	// Migrate runs schema migrations.
	Migrate(ctx context.Context) error
}

// HealthCheckStore manages the daily check records the analyzer reads.
type HealthCheckStore interface {
	// ListHealthChecks returns a user's checks ordered by check date
	// ascending. limit <= 0 means no limit.
	ListHealthChecks(ctx context.Context, userID string, limit int) ([]models.HealthCheck, error)
	CreateHealthCheck(ctx context.Context, check *models.HealthCheck) error
}

// UserContextStore manages the lifestyle context backing the context stage.
type UserContextStore interface {
	GetUserContext(ctx context.Context, userID string) (*models.UserContext, error)
	PutUserContext(ctx context.Context, userCtx *models.UserContext) error
}

// UserProfileStore manages demographic profiles.
type UserProfileStore interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	PutUserProfile(ctx context.Context, profile *models.UserProfile) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}
