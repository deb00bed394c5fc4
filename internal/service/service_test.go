package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"

	"github.com/club-kit/credit-service/internal/auth"
	"github.com/club-kit/credit-service/internal/domain"
	"github.com/club-kit/credit-service/internal/events"
	"github.com/club-kit/credit-service/internal/observability"
	"github.com/club-kit/credit-service/internal/repository"
)

var testNow = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) Enqueue(event events.Event) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return true
}

func (l *eventLog) ofType(t events.EventType) []events.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []events.Event
	for _, e := range l.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	credits  *CreditService
	members  *MemberService
	recovery *RecoveryService
	users    repository.UserRepository
	events   *eventLog
}

func newFixture(t *testing.T, settings domain.Settings) *fixture {
	t.Helper()
	return newFixtureWithUsers(t, settings, repository.NewMemoryUserRepository())
}

func newFixtureWithUsers(t *testing.T, settings domain.Settings, users repository.UserRepository) *fixture {
	t.Helper()
	dispatcher := events.NewInMemoryDispatcher()
	log := &eventLog{}
	NewNotificationService(dispatcher, zap.NewNop(), log).RegisterHandlers()

	credits, err := NewCreditService(context.Background(), CreditDependencies{
		UserRepo:     users,
		SettingsRepo: repository.NewMemorySettingsRepository(),
		Dispatcher:   dispatcher,
		Logger:       zap.NewNop(),
		Metrics:      observability.NewMetrics("test"),
		Clock:        func() time.Time { return testNow },
	}, settings)
	require.NoError(t, err)

	tokens := auth.NewTokenManager("test-secret", 60)
	members := NewMemberService(credits, users, tokens, zap.NewNop(), MemberOptions{
		SeedCredits:      20,
		ApprovalRequired: true,
		BcryptCost:       bcrypt.MinCost,
	})
	recovery := NewRecoveryService(credits, repository.NewMemoryRecoveryRequestRepository(), zap.NewNop())
	return &fixture{credits: credits, members: members, recovery: recovery, users: users, events: log}
}

var errSaveFailed = errors.New("save failed")

// flakyUsers fails Save while failSave is set.
type flakyUsers struct {
	repository.UserRepository
	failSave atomic.Bool
}

func (r *flakyUsers) Save(ctx context.Context, user *domain.User) error {
	if r.failSave.Load() {
		return errSaveFailed
	}
	return r.UserRepository.Save(ctx, user)
}

func defaultSettings() domain.Settings {
	return domain.Settings{GlobalThreshold: 10, Buffer: 5}
}

func (f *fixture) addMember(t *testing.T, name string, credits int) *domain.User {
	t.Helper()
	user := &domain.User{
		Name:           name,
		Email:          name + "@club.org",
		Role:           domain.RoleMember,
		Credits:        credits,
		OpeningBalance: credits,
		Status:         domain.UserStatusActive,
		ApprovalState:  domain.ApprovalApproved,
		CreatedAt:      testNow,
	}
	require.NoError(t, f.credits.AddUser(context.Background(), user))
	return user
}

func (f *fixture) reload(t *testing.T, id string) *domain.User {
	t.Helper()
	user, err := f.credits.GetUser(context.Background(), id)
	require.NoError(t, err)
	return user
}
