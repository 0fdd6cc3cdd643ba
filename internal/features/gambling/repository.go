// Package gambling — repository.go сохраняет раунды в gamble_rounds и копит статистику в gamble_stats.
package gambling

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository хранит историю ставок в БД.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий ставок.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecordRound сохраняет раунд и обновляет статистику сессии одной транзакцией.
func (r *Repository) RecordRound(ctx context.Context, round Round) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO gamble_rounds (session_name, game_id, bet_amount, reward, outcome, balance_after, locations)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, round.Session, round.GameID, round.BetAmount, round.Reward, string(round.Outcome), round.BalanceAfter, round.Locations)
	if err != nil {
		return fmt.Errorf("ошибка сохранения раунда: %w", err)
	}

	var won int64
	if round.Outcome == OutcomeWin {
		won = round.Reward
	}
	var wagered int64
	if round.Outcome != OutcomeAborted {
		wagered = round.BetAmount
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO gamble_stats (session_name, total_rounds, total_wagered, total_won, biggest_win)
		VALUES ($1, 1, $2, $3, $3)
		ON CONFLICT (session_name) DO UPDATE SET
			total_rounds = gamble_stats.total_rounds + 1,
			total_wagered = gamble_stats.total_wagered + $2,
			total_won = gamble_stats.total_won + $3,
			biggest_win = GREATEST(gamble_stats.biggest_win, $3),
			updated_at = NOW()
	`, round.Session, wagered, won)
	if err != nil {
		return fmt.Errorf("ошибка обновления статистики: %w", err)
	}

	return tx.Commit(ctx)
}

// GetStats возвращает статистику ставок сессии.
func (r *Repository) GetStats(ctx context.Context, session string) (*Stats, error) {
	query := `
		SELECT id, session_name, total_rounds, total_wagered, total_won, biggest_win,
		       created_at, updated_at
		FROM gamble_stats
		WHERE session_name = $1
	`
	var s Stats
	err := r.db.QueryRow(ctx, query, session).Scan(
		&s.ID, &s.Session, &s.TotalRounds, &s.TotalWagered,
		&s.TotalWon, &s.BiggestWin, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("статистика не найдена: %w", err)
	}
	return &s, nil
}

// GetStatsOrDefault возвращает статистику или пустую, если её ещё нет.
func (r *Repository) GetStatsOrDefault(ctx context.Context, session string) *Stats {
	stats, err := r.GetStats(ctx, session)
	if err != nil {
		return &Stats{Session: session}
	}
	return stats
}
