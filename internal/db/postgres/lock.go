// Package postgres — lock.go реализует блокировку сессии через advisory lock.
// Блокировка общая для всех процессов, работающих с одной БД.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// AdvisoryLocker берёт pg_advisory_lock по хэшу имени сессии.
// Блокировка принадлежит соединению, поэтому соединение держится до unlock.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

// NewAdvisoryLocker создаёт блокировщик поверх пула.
func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

// Lock ждёт блокировку имени.
//
// Параметры:
//   - ctx: контекст, отмена прерывает ожидание
//   - name: имя сессии
//
// Возвращает функцию освобождения и ошибку.
func (l *AdvisoryLocker) Lock(ctx context.Context, name string) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить соединение: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", name); err != nil {
		conn.Release()
		return nil, fmt.Errorf("ошибка advisory lock (session=%s): %w", name, err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		// Отдельный контекст: контекст воркера к этому моменту может быть отменён
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock(hashtext($1))", name); err != nil {
			log.WithError(err).WithField("session", name).Warn("Не удалось снять advisory lock")
			// Соединение с висящей блокировкой в пул не возвращаем
			conn.Conn().Close(context.Background())
		}
		conn.Release()
	}, nil
}
