package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/events"
	"github.com/club-kit/credit-service/internal/repository"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
	"github.com/club-kit/credit-service/pkg/util/validation"
)

// Recovery plan length bounds, in characters. The validate tag on recoveryPlan mirrors them.
const (
	MinRecoveryPlanLength = 20
	MaxRecoveryPlanLength = 500
)

type recoveryPlan struct {
	Plan string `json:"plan" validate:"min=20,max=500"`
}

// RecoveryService handles recovery requests from disabled members. Work on
// one member's requests is serialized.
type RecoveryService struct {
	credits  *CreditService
	requests repository.RecoveryRequestRepository
	logger   *zap.Logger
	locks    *keyedMutex
}

// NewRecoveryService builds the service.
func NewRecoveryService(credits *CreditService, requests repository.RecoveryRequestRepository, logger *zap.Logger) *RecoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryService{credits: credits, requests: requests, logger: logger, locks: newKeyedMutex()}
}

// Submit files a recovery plan for a disabled member. Only one request may be pending at a time.
func (s *RecoveryService) Submit(ctx context.Context, userID, plan string) (*domain.RecoveryRequest, error) {
	plan = strings.TrimSpace(plan)
	if err := validation.Struct("recovery plan must be between 20 and 500 characters", recoveryPlan{Plan: plan}); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.credits.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status != domain.UserStatusDisabled {
		return nil, apperrors.NewConflict("only disabled members can request recovery", map[string]any{"status": user.Status})
	}

	latest, err := s.requests.LatestForUser(ctx, userID)
	switch {
	case err == nil && latest.State == domain.RecoveryPending:
		return nil, apperrors.NewConflict("a recovery request is already pending", map[string]any{"request_id": latest.ID})
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	req := &domain.RecoveryRequest{
		ID:        uuid.NewString(),
		UserID:    userID,
		Plan:      plan,
		State:     domain.RecoveryPending,
		CreatedAt: s.credits.now(),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, err
	}
	s.logger.Info("recovery requested", zap.String("user_id", userID), zap.String("request_id", req.ID))
	s.credits.publishEvent(ctx, events.Event{
		Type:    events.EventRecoveryRequested,
		UserID:  userID,
		Actor:   user.Name,
		Payload: events.RecoveryPayload{RequestID: req.ID, State: req.State},
	})
	return req, nil
}

// Latest returns the most recent request filed by userID.
func (s *RecoveryService) Latest(ctx context.Context, userID string) (*domain.RecoveryRequest, error) {
	req, err := s.requests.LatestForUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("recovery request", map[string]any{"user_id": userID})
	}
	return req, err
}

// ListPending returns requests awaiting review, oldest first.
func (s *RecoveryService) ListPending(ctx context.Context) ([]domain.RecoveryRequest, error) {
	return s.requests.ListPending(ctx)
}

// Approve accepts the plan and reactivates the member. The request is closed
// first and reopened if the reactivation fails.
func (s *RecoveryService) Approve(ctx context.Context, requestID, reviewer, note string) (*domain.RecoveryRequest, error) {
	req, unlock, err := s.lockPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reopened := *req
	reviewed, err := s.close(ctx, req, domain.RecoveryApproved, reviewer, note)
	if err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(note)
	if reason == "" {
		reason = "Recovery plan approved"
	}
	if _, err := s.credits.ManualReactivate(ctx, req.UserID, reason, reviewer); err != nil {
		if rbErr := s.requests.Update(ctx, &reopened); rbErr != nil {
			s.logger.Error("failed to reopen recovery request",
				zap.String("request_id", requestID),
				zap.Error(rbErr),
			)
		}
		return nil, err
	}
	s.announce(ctx, reviewed)
	return reviewed, nil
}

// Reject turns the plan down. The member stays disabled.
func (s *RecoveryService) Reject(ctx context.Context, requestID, reviewer, note string) (*domain.RecoveryRequest, error) {
	req, unlock, err := s.lockPending(ctx, requestID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	reviewed, err := s.close(ctx, req, domain.RecoveryRejected, reviewer, note)
	if err != nil {
		return nil, err
	}
	s.announce(ctx, reviewed)
	return reviewed, nil
}

// lockPending takes the member's lock and returns the request, reloaded under
// the lock, when it is still pending.
func (s *RecoveryService) lockPending(ctx context.Context, requestID string) (*domain.RecoveryRequest, func(), error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	unlock := s.locks.Lock(req.UserID)
	req, err = s.load(ctx, requestID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	if req.State != domain.RecoveryPending {
		unlock()
		return nil, nil, apperrors.NewConflict("recovery request already reviewed", map[string]any{"state": req.State})
	}
	return req, unlock, nil
}

func (s *RecoveryService) load(ctx context.Context, requestID string) (*domain.RecoveryRequest, error) {
	req, err := s.requests.GetByID(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewNotFound("recovery request", map[string]any{"id": requestID})
	}
	return req, err
}

func (s *RecoveryService) close(ctx context.Context, req *domain.RecoveryRequest, state domain.RecoveryState, reviewer, note string) (*domain.RecoveryRequest, error) {
	now := s.credits.now()
	closed := *req
	closed.State = state
	closed.ReviewedBy = reviewer
	closed.ReviewNote = strings.TrimSpace(note)
	closed.ReviewedAt = &now
	if err := s.requests.Update(ctx, &closed); err != nil {
		return nil, err
	}
	return &closed, nil
}

func (s *RecoveryService) announce(ctx context.Context, req *domain.RecoveryRequest) {
	s.logger.Info("recovery reviewed", zap.String("request_id", req.ID), zap.String("state", string(req.State)), zap.String("reviewer", req.ReviewedBy))
	s.credits.publishEvent(ctx, events.Event{
		Type:    events.EventRecoveryReviewed,
		UserID:  req.UserID,
		Actor:   req.ReviewedBy,
		Payload: events.RecoveryPayload{RequestID: req.ID, State: req.State},
	})
}
