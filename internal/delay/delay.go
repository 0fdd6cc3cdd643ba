// Package delay изолирует все случайные паузы и случайный выбор.
// Воркер, движок ставок и сервисы заданий получают Provider через конструктор,
// поэтому в тестах их можно прогнать без реальных ожиданий (см. delaytest).
package delay

import (
	"context"
	"math/rand"
	"time"
)

// Provider — источник пауз и случайных чисел.
type Provider interface {
	// Sleep ждёт d или отмены контекста. При отмене возвращает ctx.Err().
	Sleep(ctx context.Context, d time.Duration) error
	// Between возвращает равномерно случайную длительность из [min, max].
	Between(min, max time.Duration) time.Duration
	// IntBetween возвращает равномерно случайное целое из [min, max].
	IntBetween(min, max int) int
	// Intn возвращает случайное целое из [0, n).
	Intn(n int) int
}

// Random — боевая реализация Provider на math/rand/v2.
// Функции пакета rand/v2 безопасны для горутин, мьютекс не нужен.
type Random struct{}

// New создаёт боевой Provider.
func New() *Random {
	return &Random{}
}

func (Random) Sleep(ctx context.Context, d time.Duration) error {
	return SleepContext(ctx, d)
}

func (Random) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

func (Random) IntBetween(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}

func (Random) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return rand.Intn(n)
}

// SleepContext ждёт d, прерываясь по отмене контекста.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Seconds — короткая запись для конфигов, где паузы заданы в секундах.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
