package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/club-kit/credit-service/internal/domain"
)

const (
	logThreshold = "threshold"
	logRecovery  = "recovery"

	uniqueViolation = "23505"
)

const userColumns = `id, name, email, password_hash, role, position, joined_at, credits, opening_balance,
        status, soft_disabled, min_threshold, suspension_reason, approval_state, manual_override, created_at, updated_at`

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		return errors.New("user id required")
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO users (id, name, email, password_hash, role, position, joined_at, credits, opening_balance,
            status, soft_disabled, min_threshold, suspension_reason, approval_state, manual_override)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING created_at, updated_at`
		err := tx.QueryRow(ctx, query,
			user.ID,
			user.Name,
			strings.ToLower(user.Email),
			user.PasswordHash,
			user.Role,
			user.Position,
			user.JoinedAt,
			user.Credits,
			user.OpeningBalance,
			user.Status,
			user.SoftDisabled,
			user.MinThreshold,
			user.SuspensionReason,
			user.ApprovalState,
			overrideValue(user.ManualOverride),
		).Scan(&user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}
		return appendEntries(ctx, tx, user, domain.User{})
	})
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, role=$4, position=$5, credits=$6, opening_balance=$7,
            status=$8, soft_disabled=$9, min_threshold=$10, suspension_reason=$11, approval_state=$12,
            manual_override=$13, updated_at=NOW()
        WHERE id=$14
        RETURNING updated_at`
		err := tx.QueryRow(ctx, query,
			user.Name,
			strings.ToLower(user.Email),
			user.PasswordHash,
			user.Role,
			user.Position,
			user.Credits,
			user.OpeningBalance,
			user.Status,
			user.SoftDisabled,
			user.MinThreshold,
			user.SuspensionReason,
			user.ApprovalState,
			overrideValue(user.ManualOverride),
			user.ID,
		).Scan(&user.UpdatedAt)
		if err != nil {
			return mapPgError(err)
		}

		var stored domain.User
		if err := countEntries(ctx, tx, user.ID, &stored); err != nil {
			return err
		}
		return appendEntries(ctx, tx, user, stored)
	})
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(email))
}

func (r *userRepository) List(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	index := map[string]int{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		index[user.ID] = len(users)
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return []domain.User{}, nil
	}

	txRows, err := r.pool.Query(ctx, `
        SELECT user_id, id, ts, amount, requested, reason, issuer
        FROM credit_transactions ORDER BY user_id, seq ASC`)
	if err != nil {
		return nil, err
	}
	defer txRows.Close()
	for txRows.Next() {
		var userID string
		var entry domain.CreditTransaction
		if err := txRows.Scan(&userID, &entry.ID, &entry.Timestamp, &entry.Amount, &entry.Requested, &entry.Reason, &entry.Issuer); err != nil {
			return nil, err
		}
		if i, ok := index[userID]; ok {
			users[i].History = append(users[i].History, entry)
		}
	}
	if err := txRows.Err(); err != nil {
		return nil, err
	}

	evRows, err := r.pool.Query(ctx, `
        SELECT user_id, log, ts, action, note
        FROM status_events ORDER BY user_id, log, seq ASC`)
	if err != nil {
		return nil, err
	}
	defer evRows.Close()
	for evRows.Next() {
		var userID, log string
		var event domain.StatusEvent
		if err := evRows.Scan(&userID, &log, &event.Timestamp, &event.Action, &event.Note); err != nil {
			return nil, err
		}
		i, ok := index[userID]
		if !ok {
			continue
		}
		if log == logRecovery {
			users[i].RecoveryLogs = append(users[i].RecoveryLogs, event)
		} else {
			users[i].ThresholdLogs = append(users[i].ThresholdLogs, event)
		}
	}
	return users, evRows.Err()
}

func (r *userRepository) getOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapPgError(err)
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, ts, amount, requested, reason, issuer
        FROM credit_transactions WHERE user_id=$1 ORDER BY seq ASC`, user.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var entry domain.CreditTransaction
		if err := rows.Scan(&entry.ID, &entry.Timestamp, &entry.Amount, &entry.Requested, &entry.Reason, &entry.Issuer); err != nil {
			return nil, err
		}
		user.History = append(user.History, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	evRows, err := r.pool.Query(ctx, `
        SELECT log, ts, action, note
        FROM status_events WHERE user_id=$1 ORDER BY log, seq ASC`, user.ID)
	if err != nil {
		return nil, err
	}
	defer evRows.Close()
	for evRows.Next() {
		var log string
		var event domain.StatusEvent
		if err := evRows.Scan(&log, &event.Timestamp, &event.Action, &event.Note); err != nil {
			return nil, err
		}
		if log == logRecovery {
			user.RecoveryLogs = append(user.RecoveryLogs, event)
		} else {
			user.ThresholdLogs = append(user.ThresholdLogs, event)
		}
	}
	return user, evRows.Err()
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var override *string
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Position,
		&user.JoinedAt,
		&user.Credits,
		&user.OpeningBalance,
		&user.Status,
		&user.SoftDisabled,
		&user.MinThreshold,
		&user.SuspensionReason,
		&user.ApprovalState,
		&override,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if override != nil {
		action := domain.StatusAction(*override)
		user.ManualOverride = &action
	}
	return &user, nil
}

// countEntries fills stored with placeholder slices sized like the persisted ledger and logs.
func countEntries(ctx context.Context, tx pgx.Tx, userID string, stored *domain.User) error {
	var historyCount, thresholdCount, recoveryCount int
	const query = `
        SELECT
            (SELECT COUNT(1) FROM credit_transactions WHERE user_id=$1),
            (SELECT COUNT(1) FROM status_events WHERE user_id=$1 AND log='threshold'),
            (SELECT COUNT(1) FROM status_events WHERE user_id=$1 AND log='recovery')`
	if err := tx.QueryRow(ctx, query, userID).Scan(&historyCount, &thresholdCount, &recoveryCount); err != nil {
		return err
	}
	stored.History = make([]domain.CreditTransaction, historyCount)
	stored.ThresholdLogs = make([]domain.StatusEvent, thresholdCount)
	stored.RecoveryLogs = make([]domain.StatusEvent, recoveryCount)
	return nil
}

// appendEntries inserts the ledger and log entries of user beyond what stored already holds.
func appendEntries(ctx context.Context, tx pgx.Tx, user *domain.User, stored domain.User) error {
	if len(user.History) < len(stored.History) ||
		len(user.ThresholdLogs) < len(stored.ThresholdLogs) ||
		len(user.RecoveryLogs) < len(stored.RecoveryLogs) {
		return fmt.Errorf("%w: ledger is append-only", ErrConflict)
	}

	batch := &pgx.Batch{}
	for i := len(stored.History); i < len(user.History); i++ {
		entry := user.History[i]
		batch.Queue(`
        INSERT INTO credit_transactions (id, user_id, seq, ts, amount, requested, reason, issuer)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
			entry.ID, user.ID, i, entry.Timestamp, entry.Amount, entry.Requested, entry.Reason, entry.Issuer)
	}
	queueEvents(batch, user.ID, logThreshold, user.ThresholdLogs, len(stored.ThresholdLogs))
	queueEvents(batch, user.ID, logRecovery, user.RecoveryLogs, len(stored.RecoveryLogs))
	if batch.Len() == 0 {
		return nil
	}
	return mapPgError(tx.SendBatch(ctx, batch).Close())
}

func queueEvents(batch *pgx.Batch, userID, log string, events []domain.StatusEvent, from int) {
	for i := from; i < len(events); i++ {
		event := events[i]
		batch.Queue(`
        INSERT INTO status_events (user_id, log, seq, ts, action, note)
        VALUES ($1,$2,$3,$4,$5,$6)`,
			userID, log, i, event.Timestamp, event.Action, event.Note)
	}
}

func overrideValue(action *domain.StatusAction) *string {
	if action == nil {
		return nil
	}
	v := string(*action)
	return &v
}

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}
