// Package sessions — repository.go работает с таблицами farm_sessions и balance_snapshots.
package sessions

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// TouchLogin создаёт запись при первом логине или обновляет last_login_at.
// xmax = 0 у возвращённой строки значит, что она только что вставлена.
func (r *Repository) TouchLogin(ctx context.Context, name string, tgUserID int64) (bool, error) {
	query := `
		INSERT INTO farm_sessions (name, tg_user_id, first_run_at, last_login_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE
		SET tg_user_id = CASE WHEN EXCLUDED.tg_user_id <> 0 THEN EXCLUDED.tg_user_id ELSE farm_sessions.tg_user_id END,
		    last_login_at = NOW(),
		    updated_at = NOW()
		RETURNING (xmax = 0)
	`
	var inserted bool
	if err := r.db.QueryRow(ctx, query, name, tgUserID).Scan(&inserted); err != nil {
		return false, fmt.Errorf("ошибка отметки логина (session=%s): %w", name, err)
	}
	return inserted, nil
}

func (r *Repository) MarkInvalid(ctx context.Context, name, reason string) error {
	query := `
		INSERT INTO farm_sessions (name, is_invalid, invalid_reason)
		VALUES ($1, TRUE, $2)
		ON CONFLICT (name) DO UPDATE
		SET is_invalid = TRUE, invalid_reason = EXCLUDED.invalid_reason, updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, name, reason); err != nil {
		return fmt.Errorf("ошибка пометки сессии (session=%s): %w", name, err)
	}
	return nil
}

func (r *Repository) IsInvalid(ctx context.Context, name string) (bool, error) {
	var invalid bool
	err := r.db.QueryRow(ctx, `SELECT is_invalid FROM farm_sessions WHERE name = $1`, name).Scan(&invalid)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("ошибка чтения сессии (session=%s): %w", name, err)
	}
	return invalid, nil
}

// SaveSnapshot пишет снимок и обновляет последний известный баланс сессии.
func (r *Repository) SaveSnapshot(ctx context.Context, s Snapshot) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO balance_snapshots (session_name, cycle_id, balance, pass_points, gambling_progress)
		VALUES ($1, $2, $3, $4, $5)
	`, s.Session, s.CycleID, s.Balance, s.PassPoints, s.GamblingProgress)
	if err != nil {
		return fmt.Errorf("ошибка сохранения снимка: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE farm_sessions SET balance = $2, updated_at = NOW() WHERE name = $1`,
		s.Session, s.Balance,
	); err != nil {
		return fmt.Errorf("ошибка обновления баланса: %w", err)
	}

	return tx.Commit(ctx)
}

// GetByName: если не найдена — ошибка с pgx.ErrNoRows
func (r *Repository) GetByName(ctx context.Context, name string) (*Record, error) {
	query := `
		SELECT id, name, tg_user_id, is_invalid, invalid_reason, balance,
		       first_run_at, last_login_at, updated_at
		FROM farm_sessions
		WHERE name = $1
	`
	var rec Record
	err := r.db.QueryRow(ctx, query, name).Scan(
		&rec.ID, &rec.Name, &rec.TgUserID, &rec.IsInvalid, &rec.InvalidReason, &rec.Balance,
		&rec.FirstRunAt, &rec.LastLoginAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("сессия не найдена (session=%s): %w", name, err)
	}
	return &rec, nil
}
