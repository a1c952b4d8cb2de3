// Package store — in-memory Store implementation.
// Used as a fallback when PostgreSQL is not available (local dev, tests).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediguard/driftai/pkg/models"
)

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu       sync.RWMutex
	checks   map[string][]*models.HealthCheck // key: user_id, ordered by check date
	contexts map[string]*models.UserContext   // key: user_id
	profiles map[string]*models.UserProfile   // key: user_id
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		checks:   make(map[string][]*models.HealthCheck),
		contexts: make(map[string]*models.UserContext),
		profiles: make(map[string]*models.UserProfile),
	}
}

func (m *MemoryStore) ListHealthChecks(_ context.Context, userID string, limit int) ([]models.HealthCheck, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.checks[userID]
	out := make([]models.HealthCheck, 0, len(stored))
	for _, c := range stored {
		out = append(out, *c)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MemoryStore) CreateHealthCheck(_ context.Context, check *models.HealthCheck) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *check
	if stored.ID == "" {
		stored.ID = uuid.NewString()
		check.ID = stored.ID
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
		check.CreatedAt = stored.CreatedAt
	}

	list := append(m.checks[check.UserID], &stored)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CheckDate.Before(list[j].CheckDate)
	})
	m.checks[check.UserID] = list
	return nil
}

func (m *MemoryStore) GetUserContext(_ context.Context, userID string) (*models.UserContext, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contexts[userID]
	if !ok {
		return nil, &ErrNotFound{Entity: "user context", Key: userID}
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) PutUserContext(_ context.Context, userCtx *models.UserContext) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *userCtx
	cp.UpdatedAt = time.Now().UTC()
	m.contexts[userCtx.UserID] = &cp
	return nil
}

func (m *MemoryStore) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, &ErrNotFound{Entity: "user profile", Key: userID}
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) PutUserProfile(_ context.Context, profile *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *profile
	m.profiles[profile.UserID] = &cp
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) Migrate(context.Context) error { return nil }
