package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/club-kit/credit-service/internal/domain"
)

type memoryRecoveryRepository struct {
	mu       sync.RWMutex
	requests map[string]domain.RecoveryRequest
	// order breaks CreatedAt ties by insertion.
	order map[string]int
}

// NewMemoryRecoveryRequestRepository returns an in-process recovery request store.
func NewMemoryRecoveryRequestRepository() RecoveryRequestRepository {
	return &memoryRecoveryRepository{requests: make(map[string]domain.RecoveryRequest), order: make(map[string]int)}
}

func (r *memoryRecoveryRepository) Create(_ context.Context, req *domain.RecoveryRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	if _, exists := r.order[req.ID]; !exists {
		r.order[req.ID] = len(r.order)
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *memoryRecoveryRepository) Update(_ context.Context, req *domain.RecoveryRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return ErrNotFound
	}
	r.requests[req.ID] = *req
	return nil
}

func (r *memoryRecoveryRepository) GetByID(_ context.Context, id string) (*domain.RecoveryRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &req, nil
}

func (r *memoryRecoveryRepository) ListPending(_ context.Context) ([]domain.RecoveryRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := []domain.RecoveryRequest{}
	for _, req := range r.requests {
		if req.State == domain.RecoveryPending {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return r.before(result[i], result[j]) })
	return result, nil
}

func (r *memoryRecoveryRepository) LatestForUser(_ context.Context, userID string) (*domain.RecoveryRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *domain.RecoveryRequest
	for _, req := range r.requests {
		if req.UserID != userID {
			continue
		}
		if latest == nil || r.before(*latest, req) {
			candidate := req
			latest = &candidate
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func (r *memoryRecoveryRepository) before(a, b domain.RecoveryRequest) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return r.order[a.ID] < r.order[b.ID]
}
