package repository

import (
	"context"
	"sync"

	"github.com/club-kit/credit-service/internal/domain"
)

type memorySettingsRepository struct {
	mu       sync.RWMutex
	settings *domain.Settings
}

// NewMemorySettingsRepository returns an empty in-process settings store.
func NewMemorySettingsRepository() SettingsRepository {
	return &memorySettingsRepository{}
}

func (r *memorySettingsRepository) Get(_ context.Context) (domain.Settings, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.settings == nil {
		return domain.Settings{}, false, nil
	}
	return *r.settings, true, nil
}

func (r *memorySettingsRepository) Save(_ context.Context, settings domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = &settings
	return nil
}
