package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/club-kit/credit-service/internal/domain"
)

const recoveryColumns = `id, user_id, plan, state, review_note, reviewed_by, created_at, reviewed_at`

type recoveryRepository struct {
	pool *pgxpool.Pool
}

// NewRecoveryRequestRepository returns a Postgres-backed recovery request store.
func NewRecoveryRequestRepository(pool *pgxpool.Pool) RecoveryRequestRepository {
	return &recoveryRepository{pool: pool}
}

func (r *recoveryRepository) Create(ctx context.Context, req *domain.RecoveryRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	const query = `
        INSERT INTO recovery_requests (id, user_id, plan, state, review_note, reviewed_by)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		req.ID,
		req.UserID,
		req.Plan,
		req.State,
		req.ReviewNote,
		req.ReviewedBy,
	).Scan(&req.CreatedAt)
}

func (r *recoveryRepository) Update(ctx context.Context, req *domain.RecoveryRequest) error {
	const query = `
        UPDATE recovery_requests SET state=$1, review_note=$2, reviewed_by=$3, reviewed_at=$4
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query, req.State, req.ReviewNote, req.ReviewedBy, req.ReviewedAt, req.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *recoveryRepository) GetByID(ctx context.Context, id string) (*domain.RecoveryRequest, error) {
	return scanRecovery(r.pool.QueryRow(ctx, `SELECT `+recoveryColumns+` FROM recovery_requests WHERE id=$1`, id))
}

func (r *recoveryRepository) ListPending(ctx context.Context) ([]domain.RecoveryRequest, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+recoveryColumns+` FROM recovery_requests WHERE state=$1 ORDER BY created_at ASC`, domain.RecoveryPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.RecoveryRequest{}
	for rows.Next() {
		req, err := scanRecovery(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *req)
	}
	return result, rows.Err()
}

func (r *recoveryRepository) LatestForUser(ctx context.Context, userID string) (*domain.RecoveryRequest, error) {
	return scanRecovery(r.pool.QueryRow(ctx, `
        SELECT `+recoveryColumns+` FROM recovery_requests
        WHERE user_id=$1 ORDER BY created_at DESC LIMIT 1`, userID))
}

func scanRecovery(row pgx.Row) (*domain.RecoveryRequest, error) {
	var req domain.RecoveryRequest
	if err := row.Scan(
		&req.ID,
		&req.UserID,
		&req.Plan,
		&req.State,
		&req.ReviewNote,
		&req.ReviewedBy,
		&req.CreatedAt,
		&req.ReviewedAt,
	); err != nil {
		return nil, mapPgError(err)
	}
	return &req, nil
}
