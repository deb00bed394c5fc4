package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/engine"
	"github.com/club-kit/credit-service/internal/events"
	"github.com/club-kit/credit-service/internal/observability"
	"github.com/club-kit/credit-service/internal/repository"
)

const causeReconcile = "reconcile"

// CreditService owns the member store and the club settings. Every credit,
// status and threshold mutation goes through it.
//
// Locking: config changes and reconciliation hold mu for writing; per-user
// operations hold mu for reading plus the user's entry in locks.
type CreditService struct {
	users      repository.UserRepository
	settings   repository.SettingsRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time

	mu      sync.RWMutex
	current domain.Settings
	locks   *keyedMutex
}

// CreditDependencies bundles collaborators for the credit service.
type CreditDependencies struct {
	UserRepo     repository.UserRepository
	SettingsRepo repository.SettingsRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Clock        func() time.Time
}

// AdjustmentInput describes one credit adjustment request.
type AdjustmentInput struct {
	Amount        int
	Reason        string
	Issuer        string
	DisableReason string
}

// BulkFailure records a user skipped by a bulk adjustment.
type BulkFailure struct {
	UserID string
	Err    error
}

// BulkResult is the per-user outcome of ApplyBulk.
type BulkResult struct {
	Updated []domain.User
	Failed  []BulkFailure
}

// NewCreditService loads persisted settings, falling back to defaults on first start.
func NewCreditService(ctx context.Context, deps CreditDependencies, defaults domain.Settings) (*CreditService, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}
	s := &CreditService{
		users:      deps.UserRepo,
		settings:   deps.SettingsRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		now:        deps.Clock,
		locks:      newKeyedMutex(),
	}

	stored, ok, err := s.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if !ok {
		if err := defaults.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", engine.ErrInvalidConfiguration, err)
		}
		if err := s.settings.Save(ctx, defaults); err != nil {
			return nil, fmt.Errorf("save default settings: %w", err)
		}
		stored = defaults
	}
	s.current = stored
	return s, nil
}

// Settings returns the current club settings.
func (s *CreditService) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ResolveThreshold returns the effective threshold of user under the current settings.
func (s *CreditService) ResolveThreshold(user *domain.User) int {
	return engine.ResolveThreshold(user, s.Settings().GlobalThreshold)
}

// Classify classifies credits against threshold with the current buffer.
func (s *CreditService) Classify(credits, threshold int) engine.Classification {
	return engine.Classify(credits, threshold, s.Settings().Buffer)
}

// Balance recomputes the ledger balance of user.
func (s *CreditService) Balance(user *domain.User) int {
	return engine.Balance(user)
}

// GetUser loads a member by id.
func (s *CreditService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, unknownUser(userID, err)
	}
	return user, nil
}

// ListUsers returns every member in signup order.
func (s *CreditService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// AddUser stores a new member and reconciles the roster.
func (s *CreditService) AddUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ManualOverride == nil {
		if next, changed := engine.Reclassify(user, s.current); changed {
			*user = *next
		}
	}
	if err := s.users.Create(ctx, user); err != nil {
		return err
	}
	_, err := s.reconcileLocked(ctx)
	return err
}

// ApplyAdjustment applies a credit delta to one member.
func (s *CreditService) ApplyAdjustment(ctx context.Context, userID string, amount int, reason, issuer string) (*domain.User, error) {
	user, _, err := s.Adjust(ctx, userID, AdjustmentInput{Amount: amount, Reason: reason, Issuer: issuer})
	return user, err
}

// ApplyAdjustmentWithDisableReason is ApplyAdjustment with the suspension
// reason recorded if the change disables the member.
func (s *CreditService) ApplyAdjustmentWithDisableReason(ctx context.Context, userID string, amount int, reason, issuer, disableReason string) (*domain.User, error) {
	user, _, err := s.Adjust(ctx, userID, AdjustmentInput{Amount: amount, Reason: reason, Issuer: issuer, DisableReason: disableReason})
	return user, err
}

// Adjust applies input to one member and reports what the transition did.
func (s *CreditService) Adjust(ctx context.Context, userID string, input AdjustmentInput) (*domain.User, engine.Outcome, error) {
	adj, err := engine.ValidateAdjustment(engine.Adjustment(input))
	if err != nil {
		return nil, engine.Outcome{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.adjustLocked(ctx, userID, adj, false)
}

func (s *CreditService) adjustLocked(ctx context.Context, userID string, adj engine.Adjustment, bulk bool) (*domain.User, engine.Outcome, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, engine.Outcome{}, unknownUser(userID, err)
	}

	next, outcome, err := engine.ApplyAdjustment(user, adj, s.current, s.now())
	if err != nil {
		return nil, engine.Outcome{}, err
	}
	cause := string(outcome.Guard)
	if reconciled, changed := engine.Reconcile(next, s.current, outcome.Transaction.Timestamp); changed {
		next = reconciled
		if outcome.Guard == engine.GuardNone {
			cause = causeReconcile
		}
	}
	outcome.Status = next.Status

	if err := s.users.Save(ctx, next); err != nil {
		return nil, engine.Outcome{}, fmt.Errorf("save user %s: %w", userID, err)
	}

	s.metrics.RecordAdjustment(outcome.Transaction.Amount)
	s.logger.Info("credit adjustment applied",
		zap.String("user_id", userID),
		zap.Int("amount", outcome.Transaction.Amount),
		zap.Int("requested", outcome.Transaction.Requested),
		zap.Int("credits", next.Credits),
		zap.String("guard", string(outcome.Guard)),
		zap.Bool("bulk", bulk),
	)
	s.publishEvent(ctx, events.Event{
		Type:   events.EventCreditAdjusted,
		UserID: userID,
		Actor:  adj.Issuer,
		Payload: events.CreditAdjustedPayload{
			TransactionID: outcome.Transaction.ID,
			Amount:        outcome.Transaction.Amount,
			Requested:     outcome.Transaction.Requested,
			Reason:        outcome.Transaction.Reason,
			Credits:       next.Credits,
			Bulk:          bulk,
		},
	})
	s.recordStatusChange(ctx, adj.Issuer, user, next, cause)
	return next, outcome, nil
}

// ApplyBulk fans one adjustment out to every distinct id. Users are processed
// independently; a failure is logged and recorded, and the rest continue.
func (s *CreditService) ApplyBulk(ctx context.Context, userIDs []string, amount int, reason, issuer string) (BulkResult, error) {
	adj, err := engine.ValidateAdjustment(engine.Adjustment{Amount: amount, Reason: reason, Issuer: issuer})
	if err != nil {
		return BulkResult{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := BulkResult{Updated: []domain.User{}, Failed: []BulkFailure{}}
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		user, err := s.adjustOne(ctx, id, adj)
		if err != nil {
			s.metrics.RecordBulkFailure()
			s.logger.Warn("bulk adjustment skipped user", zap.String("user_id", id), zap.Error(err))
			result.Failed = append(result.Failed, BulkFailure{UserID: id, Err: err})
			continue
		}
		result.Updated = append(result.Updated, *user)
	}
	return result, nil
}

func (s *CreditService) adjustOne(ctx context.Context, userID string, adj engine.Adjustment) (*domain.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty id", engine.ErrUnknownUser)
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	user, _, err := s.adjustLocked(ctx, userID, adj, true)
	return user, err
}

// ManualDisable suspends a member regardless of credits.
func (s *CreditService) ManualDisable(ctx context.Context, userID, reason, actor string) (*domain.User, error) {
	return s.override(ctx, userID, actor, domain.ActionManualDisable, func(u *domain.User, now time.Time) (*domain.User, error) {
		return engine.ManualDisable(u, reason, now)
	})
}

// ManualReactivate restores a member to active regardless of credits.
func (s *CreditService) ManualReactivate(ctx context.Context, userID, reason, actor string) (*domain.User, error) {
	return s.override(ctx, userID, actor, domain.ActionManualReactivate, func(u *domain.User, now time.Time) (*domain.User, error) {
		return engine.ManualReactivate(u, reason, now)
	})
}

func (s *CreditService) override(ctx context.Context, userID, actor string, action domain.StatusAction, apply func(*domain.User, time.Time) (*domain.User, error)) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, unknownUser(userID, err)
	}
	next, err := apply(user, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.users.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save user %s: %w", userID, err)
	}
	s.logger.Info("manual status override",
		zap.String("user_id", userID),
		zap.String("action", string(action)),
		zap.String("actor", actor),
	)
	s.recordStatusChange(ctx, actor, user, next, string(action))
	return next, nil
}

// SetUserThreshold sets or clears (nil) a member's own threshold and reclassifies them.
func (s *CreditService) SetUserThreshold(ctx context.Context, userID string, value *int) (*domain.User, error) {
	if value != nil && *value < 0 {
		return nil, fmt.Errorf("%w: threshold must be >= 0", engine.ErrInvalidConfiguration)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, unknownUser(userID, err)
	}
	next := user.Clone()
	if value != nil {
		v := *value
		next.MinThreshold = &v
	} else {
		next.MinThreshold = nil
	}
	next, _ = engine.Reconcile(next, s.current, s.now())
	if err := s.users.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save user %s: %w", userID, err)
	}
	s.recordStatusChange(ctx, domain.SystemIssuer, user, next, causeReconcile)
	return next, nil
}

// SetApprovalState records a leader's decision on a signup. allow, when set,
// sees the current state under the member's lock and may veto the change.
func (s *CreditService) SetApprovalState(ctx context.Context, userID string, state domain.ApprovalState, allow func(current domain.ApprovalState) error) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unlock := s.locks.Lock(userID)
	defer unlock()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, unknownUser(userID, err)
	}
	if allow != nil {
		if err := allow(user.ApprovalState); err != nil {
			return nil, err
		}
	}
	next := user.Clone()
	next.ApprovalState = state
	if err := s.users.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("save user %s: %w", userID, err)
	}
	return next, nil
}

// SetGlobalThreshold changes the club-wide threshold and reconciles every member.
func (s *CreditService) SetGlobalThreshold(ctx context.Context, value int) (domain.Settings, error) {
	return s.UpdateSettings(ctx, func(st *domain.Settings) { st.GlobalThreshold = value })
}

// SetBuffer changes the width of the soft-disabled band and reconciles every member.
func (s *CreditService) SetBuffer(ctx context.Context, value int) (domain.Settings, error) {
	return s.UpdateSettings(ctx, func(st *domain.Settings) { st.Buffer = value })
}

// SetCreditLock toggles clamping balances at zero. Existing balances are not rewritten.
func (s *CreditService) SetCreditLock(ctx context.Context, enabled bool) (domain.Settings, error) {
	return s.UpdateSettings(ctx, func(st *domain.Settings) { st.CreditLock = enabled })
}

// UpdateSettings applies change, validates the result and reconciles. The
// previous settings are kept when validation fails.
func (s *CreditService) UpdateSettings(ctx context.Context, change func(*domain.Settings)) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current
	change(&next)
	if err := next.Validate(); err != nil {
		return s.current, fmt.Errorf("%w: %v", engine.ErrInvalidConfiguration, err)
	}
	if err := s.settings.Save(ctx, next); err != nil {
		return s.current, fmt.Errorf("save settings: %w", err)
	}
	s.current = next

	reconciled, err := s.reconcileLocked(ctx)
	s.logger.Info("settings updated",
		zap.Int("global_threshold", next.GlobalThreshold),
		zap.Int("buffer", next.Buffer),
		zap.Bool("credit_lock", next.CreditLock),
		zap.Int("reconciled", reconciled),
	)
	s.publishEvent(ctx, events.Event{
		Type:  events.EventSettingsChanged,
		Actor: domain.SystemIssuer,
		Payload: events.SettingsChangedPayload{
			GlobalThreshold: next.GlobalThreshold,
			Buffer:          next.Buffer,
			CreditLock:      next.CreditLock,
			Reconciled:      reconciled,
		},
	})
	return next, err
}

// ResetAllThresholds clears every per-user threshold and reconciles.
func (s *CreditService) ResetAllThresholds(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.users.List(ctx)
	if err != nil {
		return 0, err
	}
	cleared := 0
	var errs []error
	for i := range users {
		if users[i].MinThreshold == nil {
			continue
		}
		next := users[i].Clone()
		next.MinThreshold = nil
		if err := s.users.Save(ctx, next); err != nil {
			errs = append(errs, fmt.Errorf("save user %s: %w", next.ID, err))
			continue
		}
		cleared++
	}
	if _, err := s.reconcileLocked(ctx); err != nil {
		errs = append(errs, err)
	}
	return cleared, errors.Join(errs...)
}

// Reconcile runs the reconciliation pass over every member and returns how many changed.
func (s *CreditService) Reconcile(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconcileLocked(ctx)
}

func (s *CreditService) reconcileLocked(ctx context.Context) (int, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	now := s.now()
	changed := 0
	var errs []error
	for i := range users {
		user := &users[i]
		next, ok := engine.Reconcile(user, s.current, now)
		if !ok {
			continue
		}
		if err := s.users.Save(ctx, next); err != nil {
			errs = append(errs, fmt.Errorf("save user %s: %w", user.ID, err))
			continue
		}
		changed++
		s.recordStatusChange(ctx, domain.SystemIssuer, user, next, causeReconcile)
	}
	s.metrics.RecordReconciled(changed)
	return changed, errors.Join(errs...)
}

func (s *CreditService) recordStatusChange(ctx context.Context, actor string, before, after *domain.User, cause string) {
	if before.Status == after.Status {
		return
	}
	s.metrics.RecordTransition(string(before.Status), string(after.Status), cause)
	note := after.SuspensionReason
	if n := len(after.ThresholdLogs); n > len(before.ThresholdLogs) {
		note = after.ThresholdLogs[n-1].Note
	}
	s.publishEvent(ctx, events.Event{
		Type:   events.EventStatusChanged,
		UserID: after.ID,
		Actor:  actor,
		Payload: events.StatusChangedPayload{
			OldStatus: before.Status,
			NewStatus: after.Status,
			Cause:     cause,
			Note:      note,
		},
	})
}

func (s *CreditService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func unknownUser(userID string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s", engine.ErrUnknownUser, userID)
	}
	return err
}
