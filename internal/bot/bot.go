// Package bot содержит ядро фермы: воркер сессии с его циклом и мультиплексор,
// который находит сессии, собирает воркеры и запускает их параллельно.
package bot

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/accounts"
	"serotonyl.ru/goats-farm/internal/bot/filters"
	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/delay"
	"serotonyl.ru/goats-farm/internal/middleware"
)

// WorkerFactory собирает воркер для допущенной сессии.
type WorkerFactory func(acc accounts.Account) (*Worker, error)

// Options — настройки мультиплексора.
type Options struct {
	SessionsDir      string
	MaxWorkers       int
	Proxies          []string // прокси из файла, раздаются сессиям без своего прокси
	SessionsPerProxy int
}

// Bot — мультиплексор воркеров.
type Bot struct {
	opts     Options
	registry *accounts.Registry
	filter   *filters.SessionFilter
	factory  WorkerFactory
	board    *Board
	delay    delay.Provider

	// ограничитель числа одновременно работающих воркеров
	inflight chan struct{}
}

// New создаёт мультиплексор.
func New(
	opts Options,
	registry *accounts.Registry,
	filter *filters.SessionFilter,
	factory WorkerFactory,
	board *Board,
	d delay.Provider,
) *Bot {
	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 64
	}
	if board == nil {
		board = NewBoard()
	}
	if d == nil {
		d = delay.New()
	}

	return &Bot{
		opts:     opts,
		registry: registry,
		filter:   filter,
		factory:  factory,
		board:    board,
		delay:    d,
		inflight: make(chan struct{}, maxWorkers),
	}
}

// Board — статусы воркеров.
func (b *Bot) Board() *Board { return b.board }

// Start находит сессии, собирает воркеры и ждёт, пока все остановятся.
//
// Возвращает common.ErrNoSessions, если запускать нечего.
func (b *Bot) Start(ctx context.Context) error {
	names, err := accounts.DiscoverSessions(b.opts.SessionsDir)
	if err != nil {
		return err
	}

	if b.registry.Prepare(names, b.opts.Proxies, b.opts.SessionsPerProxy, b.delay) {
		if err := b.registry.Save(); err != nil {
			log.WithError(err).Warn("Не удалось сохранить accounts.yaml")
		}
	}

	workers := make([]*Worker, 0, len(names))
	for _, name := range names {
		acc, ok := b.filter.CheckAccess(ctx, name)
		if !ok {
			continue
		}
		w, err := b.factory(acc)
		if err != nil {
			log.WithError(err).WithField("session", name).Error("Не удалось собрать воркер")
			continue
		}
		workers = append(workers, w)
	}
	if len(workers) == 0 {
		return common.ErrNoSessions
	}

	log.WithFields(log.Fields{
		"found":       len(names),
		"max_workers": cap(b.inflight),
	}).Infof("Запускаем %d %s", len(workers), common.PluralizeSessions(int64(len(workers))))

	b.Run(ctx, workers)
	return nil
}

// Run запускает воркеры, каждый в своей горутине, и ждёт их завершения.
// Паника в воркере логируется, воркер не перезапускается.
func (b *Bot) Run(ctx context.Context, workers []*Worker) {
	var wg sync.WaitGroup

loop:
	for _, w := range workers {
		select {
		case b.inflight <- struct{}{}:
		case <-ctx.Done():
			log.Info("Запуск воркеров прерван (ctx done)")
			break loop
		}

		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			defer func() { <-b.inflight }()
			defer b.board.SetState(w.Name(), StateStopped)
			defer middleware.RecoverFromPanic(log.Fields{"session": w.Name()})

			if err := w.Run(ctx); err != nil {
				log.WithError(err).WithField("session", w.Name()).Warn("Воркер завершился с ошибкой")
			}
		}(w)
	}

	wg.Wait()
	log.Info("Все воркеры остановлены")
}
