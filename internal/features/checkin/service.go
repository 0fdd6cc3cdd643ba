// Package checkin забирает ежедневную награду за вход.
//
// За цикл забирается не больше одного дня: первый неполученный,
// и только если последний чек-ин был не сегодня (или его не было вовсе).
// Границы дня считаются в часовом поясе APP_TIMEZONE.
package checkin

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/api"
	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/retry"
)

// API — то, что сервису нужно от клиента игры.
type API interface {
	GetCheckinOptions(ctx context.Context) (api.Result[api.CheckinOptions], error)
	ClaimCheckin(ctx context.Context, checkinID string) (api.Result[api.ClaimReply], error)
}

// Service выполняет чек-ин одной сессии.
type Service struct {
	api API
	loc *time.Location
	now func() time.Time
}

// NewService создаёт сервис чек-ина.
func NewService(a API, loc *time.Location, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{api: a, loc: loc, now: now}
}

// NextClaimable возвращает день, который можно забрать сейчас.
// Без lastCheckinTime в ответе чек-ин не трогаем.
func NextClaimable(opts api.CheckinOptions, now time.Time, loc *time.Location) (api.CheckinDay, bool) {
	if opts.LastCheckinTime == nil || !common.IsNewDay(*opts.LastCheckinTime, now, loc) {
		return api.CheckinDay{}, false
	}
	for _, day := range opts.Result {
		if !day.Status {
			return day, true
		}
	}
	return api.CheckinDay{}, false
}

// Run забирает награду за день, если можно. Возвращает полученный день.
func (s *Service) Run(ctx context.Context, logger *log.Entry) (*api.CheckinDay, error) {
	res, err := s.api.GetCheckinOptions(ctx)
	if err != nil {
		if retry.ShouldPropagate(err) {
			return nil, err
		}
		logger.WithError(err).Warn("Не удалось получить чек-ин")
		return nil, nil
	}
	if !res.OK() {
		logger.WithField("fault", res.Fault.String()).Warn("Сервер не отдал чек-ин")
		return nil, nil
	}

	day, ok := NextClaimable(res.Value, s.now(), s.loc)
	if !ok {
		logger.Debug("Чек-ин сегодня уже получен")
		return nil, nil
	}

	entry := logger.WithFields(log.Fields{"checkin_id": day.ID, "reward": day.Reward})
	claim, err := s.api.ClaimCheckin(ctx, day.ID)
	switch {
	case err != nil && retry.ShouldPropagate(err):
		return nil, err
	case err != nil:
		entry.WithError(err).Warn("Ошибка чек-ина")
		return nil, nil
	case !claim.OK():
		entry.WithField("fault", claim.Fault.String()).Warn("Чек-ин не засчитан")
		return nil, nil
	case !claim.Value.Success():
		entry.WithField("status", claim.Value.Status).Info("Чек-ин не засчитан")
		return nil, nil
	}

	entry.Info("Чек-ин получен")
	return &day, nil
}
