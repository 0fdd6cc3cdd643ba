// Package lock сериализует обращения к Telegram от имени одной сессии.
// Пока один воркер получает init data, второй с тем же именем ждёт.
package lock

import (
	"context"
	"sync"
)

// Locker берёт блокировку по имени. unlock нужно вызвать ровно один раз.
type Locker interface {
	Lock(ctx context.Context, name string) (func(), error)
}

// Local — блокировка внутри процесса: по каналу на имя.
type Local struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewLocal создаёт пустой Local.
func NewLocal() *Local {
	return &Local{slots: make(map[string]chan struct{})}
}

func (l *Local) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[name] = ch
	}
	return ch
}

// Lock ждёт освобождения имени или отмены контекста.
func (l *Local) Lock(ctx context.Context, name string) (func(), error) {
	ch := l.slot(name)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
