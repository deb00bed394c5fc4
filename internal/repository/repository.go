package repository

import (
	"context"

	"github.com/club-kit/credit-service/internal/domain"
)

// UserRepository persists member records. Save replaces the whole record;
// ledger and log entries already stored are never rewritten.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Save(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}

// SettingsRepository stores the club-wide credit settings.
type SettingsRepository interface {
	Get(ctx context.Context) (domain.Settings, bool, error)
	Save(ctx context.Context, settings domain.Settings) error
}

// RecoveryRequestRepository stores member recovery plans.
type RecoveryRequestRepository interface {
	Create(ctx context.Context, req *domain.RecoveryRequest) error
	Update(ctx context.Context, req *domain.RecoveryRequest) error
	GetByID(ctx context.Context, id string) (*domain.RecoveryRequest, error)
	ListPending(ctx context.Context) ([]domain.RecoveryRequest, error)
	LatestForUser(ctx context.Context, userID string) (*domain.RecoveryRequest, error)
}
