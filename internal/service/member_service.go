package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/auth"
	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/events"
	"github.com/club-kit/credit-service/internal/repository"
	apperrors "github.com/club-kit/credit-service/pkg/util/errorutil"
	"github.com/club-kit/credit-service/pkg/util/validation"
)

const welcomeReason = "Welcome bonus"

// SignupInput carries the fields of a member signup. Password min matches auth.MinPasswordLength.
type SignupInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"min=6"`
	Position string `validate:"max=100"`
}

// MemberOptions configures signup and login.
type MemberOptions struct {
	SeedCredits      int
	ApprovalRequired bool
	BcryptCost       int
}

// MemberService coordinates signup, login and approval of members.
type MemberService struct {
	credits *CreditService
	users   repository.UserRepository
	tokens  *auth.TokenManager
	logger  *zap.Logger
	opts    MemberOptions
	now     func() time.Time
}

// NewMemberService builds the service.
func NewMemberService(credits *CreditService, users repository.UserRepository, tokens *auth.TokenManager, logger *zap.Logger, opts MemberOptions) *MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemberService{
		credits: credits,
		users:   users,
		tokens:  tokens,
		logger:  logger,
		opts:    opts,
		now:     credits.now,
	}
}

// Signup registers a member with the seed balance recorded as a SYSTEM ledger entry.
func (s *MemberService) Signup(ctx context.Context, in SignupInput) (*domain.User, string, time.Time, error) {
	user, err := s.newUser(ctx, in, domain.RoleMember)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if s.opts.ApprovalRequired {
		user.ApprovalState = domain.ApprovalPending
	}
	if err := s.credits.AddUser(ctx, user); err != nil {
		return nil, "", time.Time{}, s.mapCreateError(err)
	}
	s.logger.Info("member signed up", zap.String("user_id", user.ID), zap.String("approval_state", string(user.ApprovalState)))

	token, exp, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates a member. Asking for the leader role with a member
// account fails like a wrong password.
func (s *MemberService) Login(ctx context.Context, email, password string, asLeader bool) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	if asLeader && !user.IsLeader() {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Approve admits a pending or rejected member.
func (s *MemberService) Approve(ctx context.Context, userID, actor string) (*domain.User, error) {
	return s.review(ctx, userID, actor, domain.ApprovalApproved, events.EventMemberApproved)
}

// Reject turns down a pending member.
func (s *MemberService) Reject(ctx context.Context, userID, actor string) (*domain.User, error) {
	return s.review(ctx, userID, actor, domain.ApprovalRejected, events.EventMemberRejected)
}

func (s *MemberService) review(ctx context.Context, userID, actor string, state domain.ApprovalState, eventType events.EventType) (*domain.User, error) {
	user, err := s.credits.SetApprovalState(ctx, userID, state, func(current domain.ApprovalState) error {
		return approvalAllowed(current, state)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("member reviewed", zap.String("user_id", userID), zap.String("approval_state", string(state)), zap.String("actor", actor))
	s.credits.publishEvent(ctx, events.Event{Type: eventType, UserID: userID, Actor: actor})
	return user, nil
}

func approvalAllowed(current, next domain.ApprovalState) error {
	if current == next {
		return apperrors.NewConflict("member already "+string(next), map[string]any{"approval_state": current})
	}
	if next == domain.ApprovalRejected && current != domain.ApprovalPending {
		return apperrors.NewConflict("only pending members can be rejected", map[string]any{"approval_state": current})
	}
	return nil
}

// Get returns one member.
func (s *MemberService) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.credits.GetUser(ctx, userID)
}

// List returns members, optionally filtered by approval state.
func (s *MemberService) List(ctx context.Context, state domain.ApprovalState) ([]domain.User, error) {
	users, err := s.credits.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	if state == "" {
		return users, nil
	}
	filtered := make([]domain.User, 0, len(users))
	for _, u := range users {
		if u.ApprovalState == state {
			filtered = append(filtered, u)
		}
	}
	return filtered, nil
}

// EnsureLeader creates the bootstrap leader account when it does not exist yet.
func (s *MemberService) EnsureLeader(ctx context.Context, name, email, password string) (*domain.User, bool, error) {
	if strings.TrimSpace(email) == "" {
		return nil, false, nil
	}
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(name) == "" {
		name = "Club Leader"
	}
	user, err := s.newUser(ctx, SignupInput{Name: name, Email: email, Password: password, Position: "Leader"}, domain.RoleLeader)
	if err != nil {
		return nil, false, err
	}
	if err := s.credits.AddUser(ctx, user); err != nil {
		return nil, false, s.mapCreateError(err)
	}
	s.logger.Info("bootstrap leader created", zap.String("user_id", user.ID), zap.String("email", user.Email))
	return user, true, nil
}

func (s *MemberService) newUser(ctx context.Context, in SignupInput, role domain.Role) (*domain.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Position = strings.TrimSpace(in.Position)
	if err := validation.Struct("invalid signup", in); err != nil {
		return nil, err
	}
	name, email := in.Name, in.Email

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &domain.User{
		ID:            uuid.NewString(),
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Role:          role,
		Position:      in.Position,
		JoinedAt:      now,
		Status:        domain.UserStatusActive,
		ApprovalState: domain.ApprovalApproved,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s.opts.SeedCredits != 0 {
		user.History = []domain.CreditTransaction{{
			ID:        uuid.NewString(),
			Timestamp: now,
			Amount:    s.opts.SeedCredits,
			Requested: s.opts.SeedCredits,
			Reason:    welcomeReason,
			Issuer:    domain.SystemIssuer,
		}}
		user.Credits = s.opts.SeedCredits
	}
	return user, nil
}

func (s *MemberService) mapCreateError(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return apperrors.NewConflict("email already registered", nil)
	}
	return err
}
