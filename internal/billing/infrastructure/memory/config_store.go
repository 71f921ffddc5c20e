package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	billing "rent-billing/internal/billing/domain"
)

// ConfigStore is an in-memory billing config store.
type ConfigStore struct {
	mu   sync.RWMutex
	data map[string]billing.Config
}

// NewConfigStore constructs a store seeded with configs.
func NewConfigStore(configs ...billing.Config) *ConfigStore {
	store := &ConfigStore{data: make(map[string]billing.Config)}
	for _, cfg := range configs {
		store.data[cfg.OwnerID] = cfg
	}
	return store
}

// GetConfig loads an owner's config.
func (s *ConfigStore) GetConfig(ctx context.Context, ownerID string) (*billing.Config, error) {
	_ = ctx
	s.mu.RLock()
	cfg, ok := s.data[ownerID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

// ListConfigs returns configs matching filter ordered by owner.
func (s *ConfigStore) ListConfigs(ctx context.Context, filter billing.ConfigFilter) ([]billing.Config, error) {
	_ = ctx
	s.mu.RLock()
	var result []billing.Config
	for _, cfg := range s.data {
		if filter.Matches(cfg) {
			result = append(result, cfg)
		}
	}
	s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i].OwnerID < result[j].OwnerID })
	return result, nil
}

// SaveConfig upserts an owner's config.
func (s *ConfigStore) SaveConfig(ctx context.Context, cfg billing.Config) error {
	_ = ctx
	if cfg.OwnerID == "" {
		return billing.ErrEmptyOwnerID
	}
	now := time.Now().UTC()
	s.mu.Lock()
	if existing, ok := s.data[cfg.OwnerID]; ok {
		cfg.CreatedAt = existing.CreatedAt
	} else if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now
	s.data[cfg.OwnerID] = cfg
	s.mu.Unlock()
	return nil
}
