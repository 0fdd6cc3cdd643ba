// Package delaytest содержит детерминированный delay.Provider для тестов.
package delaytest

import (
	"context"
	"sync"
	"time"
)

// Fake не спит, а только записывает запрошенные паузы.
//
// По умолчанию Between и IntBetween возвращают нижнюю границу, Intn — 0.
// Поведение меняется через поля *Fn. OnSleep вызывается после каждой записи,
// им удобно отменять контекст после N-й паузы.
type Fake struct {
	mu     sync.Mutex
	sleeps []time.Duration

	BetweenFn    func(min, max time.Duration) time.Duration
	IntBetweenFn func(min, max int) int
	IntnFn       func(n int) int
	OnSleep      func(n int, d time.Duration)
}

// New создаёт Fake с поведением по умолчанию.
func New() *Fake {
	return &Fake{}
}

func (f *Fake) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	f.sleeps = append(f.sleeps, d)
	n := len(f.sleeps)
	hook := f.OnSleep
	f.mu.Unlock()

	if hook != nil {
		hook(n, d)
	}
	return ctx.Err()
}

func (f *Fake) Between(min, max time.Duration) time.Duration {
	if f.BetweenFn != nil {
		return f.BetweenFn(min, max)
	}
	return min
}

func (f *Fake) IntBetween(min, max int) int {
	if f.IntBetweenFn != nil {
		return f.IntBetweenFn(min, max)
	}
	return min
}

func (f *Fake) Intn(n int) int {
	if f.IntnFn != nil {
		return f.IntnFn(n)
	}
	return 0
}

// Sleeps возвращает копию всех записанных пауз.
func (f *Fake) Sleeps() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

// Count возвращает, сколько раз встречалась пауза ровно d.
func (f *Fake) Count(d time.Duration) int {
	n := 0
	for _, s := range f.Sleeps() {
		if s == d {
			n++
		}
	}
	return n
}
