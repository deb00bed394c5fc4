package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/club-kit/credit-service/internal/domain"
)

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed settings store.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context) (domain.Settings, bool, error) {
	const query = `SELECT global_threshold, buffer, credit_lock FROM club_settings WHERE id=1`
	var settings domain.Settings
	err := r.pool.QueryRow(ctx, query).Scan(&settings.GlobalThreshold, &settings.Buffer, &settings.CreditLock)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Settings{}, false, nil
	}
	if err != nil {
		return domain.Settings{}, false, err
	}
	return settings, true, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings domain.Settings) error {
	const query = `
        INSERT INTO club_settings (id, global_threshold, buffer, credit_lock, updated_at)
        VALUES (1, $1, $2, $3, NOW())
        ON CONFLICT (id) DO UPDATE
        SET global_threshold=EXCLUDED.global_threshold, buffer=EXCLUDED.buffer,
            credit_lock=EXCLUDED.credit_lock, updated_at=NOW()`
	_, err := r.pool.Exec(ctx, query, settings.GlobalThreshold, settings.Buffer, settings.CreditLock)
	return err
}
