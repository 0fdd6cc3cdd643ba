// Package postgres — queries.go применяет версионированные миграции.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration — одна версия схемы.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// ExecMigrationSQL применяет миграцию в транзакции, если её версии ещё нет
// в schema_migrations.
//
// Возвращает true, если миграция была применена сейчас.
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, m Migration) (bool, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("ошибка выполнения миграции %d (%s): %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", m.Version,
	); err != nil {
		return false, fmt.Errorf("ошибка записи версии миграции: %w", err)
	}

	return true, tx.Commit(ctx)
}

// Migrate применяет миграции по порядку.
func Migrate(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) (applied int, err error) {
	if err := EnsureMigrationsTable(ctx, pool); err != nil {
		return 0, err
	}
	for _, m := range migrations {
		ok, err := ExecMigrationSQL(ctx, pool, m)
		if err != nil {
			return applied, fmt.Errorf("миграция %d: %w", m.Version, err)
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}
