// Package retry повторяет сетевые вызовы при временных сбоях.
//
// Повторяются только ошибки, которые Classify признал временными
// (таймаут, обрыв соединения, отказ прокси). Остальные возвращаются сразу,
// без повторов. Когда попытки кончились, возвращается последняя ошибка,
// обёрнутая в ErrExhausted.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/delay"
)

// ErrExhausted — все попытки израсходованы на временные ошибки.
var ErrExhausted = errors.New("попытки исчерпаны")

// Policy — параметры повторов.
type Policy struct {
	// Attempts — общее число попыток (3 = первый вызов + 2 повтора).
	Attempts int
	// Backoff — пауза перед повтором.
	Backoff time.Duration
	// Incremental — пауза растёт линейно: Backoff, 2*Backoff, ...
	Incremental bool
	// Classify решает, временная ли ошибка.
	Classify func(error) bool
	// Delay — источник пауз (в тестах delaytest.Fake).
	Delay delay.Provider
	// Logger — куда писать о повторах. По умолчанию стандартный логгер logrus.
	Logger log.FieldLogger
}

// Default возвращает политику по умолчанию: 3 попытки с паузой 1 секунда.
func Default(classify func(error) bool) Policy {
	return Policy{
		Attempts: 3,
		Backoff:  time.Second,
		Classify: classify,
		Delay:    delay.New(),
	}
}

func (p Policy) normalize() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	if p.Classify == nil {
		p.Classify = func(error) bool { return false }
	}
	if p.Delay == nil {
		p.Delay = delay.New()
	}
	if p.Logger == nil {
		p.Logger = log.StandardLogger()
	}
	return p
}

func (p Policy) wait(attempt int) time.Duration {
	if p.Incremental {
		return p.Backoff * time.Duration(attempt)
	}
	return p.Backoff
}

// Run выполняет fn с повторами.
func (p Policy) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Do выполняет fn с повторами и возвращает её результат.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.normalize()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		// Отмена снаружи — не повод повторять
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !p.Classify(err) {
			return zero, fmt.Errorf("%s: %w", op, err)
		}
		if attempt == p.Attempts {
			break
		}

		wait := p.wait(attempt)
		p.Logger.WithFields(log.Fields{
			"op":           op,
			"attempt":      attempt,
			"max_attempts": p.Attempts,
			"wait":         wait.String(),
		}).WithError(err).Warn("Временная ошибка, повторяем запрос")

		if err := p.Delay.Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	return zero, fmt.Errorf("%s: %w (%d): %w", op, ErrExhausted, p.Attempts, lastErr)
}

// ShouldPropagate сообщает, что ошибку нужно отдать наверх, в цикл воркера,
// а не проглотить с предупреждением: попытки исчерпаны, контекст отменён
// или повторная авторизация не удалась.
func ShouldPropagate(err error) bool {
	return errors.Is(err, ErrExhausted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, common.ErrAuthFailed) ||
		errors.Is(err, common.ErrInvalidSession)
}
