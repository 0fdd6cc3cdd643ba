// Package sessions ведёт учёт Telegram-сессий фермы: первый запуск,
// последний логин, пометку «сессия невалидна» и снимки баланса по циклам.
// models.go описывает записи таблиц farm_sessions и balance_snapshots.
package sessions

import (
	"time"

	"github.com/google/uuid"
)

// Record — состояние одной сессии в БД.
type Record struct {
	ID            int64      `db:"id"`
	Name          string     `db:"name"`           // имя файла сессии без расширения
	TgUserID      int64      `db:"tg_user_id"`     // Telegram user ID из init data
	IsInvalid     bool       `db:"is_invalid"`     // сессия отозвана, воркер не запускаем
	InvalidReason string     `db:"invalid_reason"` // причина пометки
	Balance       int64      `db:"balance"`        // баланс из последнего профиля
	FirstRunAt    time.Time  `db:"first_run_at"`
	LastLoginAt   *time.Time `db:"last_login_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// Snapshot — баланс и прогресс на момент цикла.
type Snapshot struct {
	Session          string
	CycleID          uuid.UUID
	Balance          int64
	PassPoints       int64
	GamblingProgress float64
	CreatedAt        time.Time
}
