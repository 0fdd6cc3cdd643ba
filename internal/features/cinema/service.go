// Package cinema смотрит «фильмы» в мини-приложении за награду.
package cinema

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/api"
	"serotonyl.ru/goats-farm/internal/delay"
	"serotonyl.ru/goats-farm/internal/retry"
)

// API — то, что сервису нужно от клиента игры.
type API interface {
	GetCinemaRemaining(ctx context.Context) (api.Result[api.CinemaRemaining], error)
	WatchMovie(ctx context.Context) (api.Result[api.WatchReply], error)
}

// Summary — итог просмотров за цикл.
type Summary struct {
	Watched int
	Reward  int64
}

// Service смотрит фильмы одной сессии.
type Service struct {
	api      API
	delay    delay.Provider
	pauseMin time.Duration
	pauseMax time.Duration
}

// NewService создаёт сервис просмотров.
func NewService(a API, d delay.Provider) *Service {
	return &Service{
		api:      a,
		delay:    d,
		pauseMin: 5 * time.Second,
		pauseMax: 10 * time.Second,
	}
}

// Run смотрит фильмы, пока они есть и каждый просмотр приносит награду.
func (s *Service) Run(ctx context.Context, logger *log.Entry) (Summary, error) {
	var sum Summary

	left, err := s.api.GetCinemaRemaining(ctx)
	if err != nil {
		if retry.ShouldPropagate(err) {
			return sum, err
		}
		logger.WithError(err).Warn("Не удалось узнать число фильмов")
		return sum, nil
	}
	if !left.OK() {
		logger.WithField("fault", left.Fault.String()).Warn("Сервер не отдал число фильмов")
		return sum, nil
	}

	for i := 0; i < left.Value.Remaining; i++ {
		if i > 0 {
			if err := s.delay.Sleep(ctx, s.delay.Between(s.pauseMin, s.pauseMax)); err != nil {
				return sum, err
			}
		}

		res, err := s.api.WatchMovie(ctx)
		if err != nil {
			if retry.ShouldPropagate(err) {
				return sum, err
			}
			logger.WithError(err).Warn("Ошибка просмотра фильма")
			break
		}
		if !res.OK() || res.Value.Reward <= 0 {
			logger.WithField("fault", res.Fault.String()).Debug("Просмотр без награды, заканчиваем")
			break
		}

		sum.Watched++
		sum.Reward += res.Value.Reward
		logger.WithField("reward", res.Value.Reward).Info("Фильм просмотрен")
	}

	return sum, nil
}
