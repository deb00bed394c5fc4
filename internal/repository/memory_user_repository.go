package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/club-kit/credit-service/internal/domain"
)

type memoryUserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*domain.User
	byEmail map[string]string
}

// NewMemoryUserRepository returns an in-process implementation that stores deep copies.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{
		byID:    make(map[string]*domain.User),
		byEmail: make(map[string]string),
	}
}

func (r *memoryUserRepository) Create(_ context.Context, user *domain.User) error {
	email := strings.ToLower(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[email]; exists {
		return ErrConflict
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if _, exists := r.byID[user.ID]; exists {
		return ErrConflict
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.byID[user.ID] = user.Clone()
	r.byEmail[email] = user.ID
	return nil
}

func (r *memoryUserRepository) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.byID[user.ID]
	if !ok {
		return ErrNotFound
	}
	if err := checkAppendOnly(current, user); err != nil {
		return err
	}
	oldEmail := strings.ToLower(current.Email)
	newEmail := strings.ToLower(user.Email)
	if oldEmail != newEmail {
		if _, taken := r.byEmail[newEmail]; taken {
			return ErrConflict
		}
		delete(r.byEmail, oldEmail)
		r.byEmail[newEmail] = user.ID
	}
	user.UpdatedAt = time.Now().UTC()
	r.byID[user.ID] = user.Clone()
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return user.Clone(), nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return r.byID[id].Clone(), nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		result = append(result, *user.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// checkAppendOnly rejects a replacement whose ledger or logs drop or rewrite stored entries.
func checkAppendOnly(current, next *domain.User) error {
	if len(next.History) < len(current.History) {
		return fmt.Errorf("%w: credit history shrank", ErrConflict)
	}
	for i := range current.History {
		if current.History[i] != next.History[i] {
			return fmt.Errorf("%w: credit history entry %d rewritten", ErrConflict, i)
		}
	}
	if !eventsPrefix(current.ThresholdLogs, next.ThresholdLogs) || !eventsPrefix(current.RecoveryLogs, next.RecoveryLogs) {
		return fmt.Errorf("%w: status logs rewritten", ErrConflict)
	}
	return nil
}

func eventsPrefix(stored, next []domain.StatusEvent) bool {
	if len(next) < len(stored) {
		return false
	}
	for i := range stored {
		if stored[i] != next[i] {
			return false
		}
	}
	return true
}
