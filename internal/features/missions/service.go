// Package missions выполняет задания (миссии) игры.
//
// За цикл каждое подходящее задание пытаемся выполнить ровно один раз,
// независимо от результата. Между заданиями — случайная пауза.
package missions

import (
	"context"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/api"
	"serotonyl.ru/goats-farm/internal/delay"
	"serotonyl.ru/goats-farm/internal/retry"
)

// API — то, что сервису нужно от клиента игры.
type API interface {
	ListTasks(ctx context.Context) (api.Result[api.TaskList], error)
	ClaimTask(ctx context.Context, taskID string) (api.Result[api.ClaimReply], error)
}

// Summary — итог прохода по заданиям.
type Summary struct {
	Attempted int
	Claimed   int
	Reward    int64
}

// Service выполняет задания одной сессии.
type Service struct {
	api      API
	delay    delay.Provider
	pauseMin time.Duration
	pauseMax time.Duration
}

// NewService создаёт сервис заданий.
func NewService(a API, d delay.Provider) *Service {
	return &Service{
		api:      a,
		delay:    d,
		pauseMin: 3 * time.Second,
		pauseMax: 7 * time.Second,
	}
}

// Eligible — задание стоит выполнить: оно не выполнено или у него есть cooldown.
// Выполненные задания с cooldown тоже попадают сюда: так устроены повторяемые задания.
func Eligible(t api.Task) bool {
	return !t.Status || t.HasCooldown()
}

// Run проходит по всем заданиям и выполняет подходящие.
// Ошибку возвращает, только если её нужно отдать циклу воркера.
func (s *Service) Run(ctx context.Context, logger *log.Entry) (Summary, error) {
	var sum Summary

	res, err := s.api.ListTasks(ctx)
	if err != nil {
		if retry.ShouldPropagate(err) {
			return sum, err
		}
		logger.WithError(err).Warn("Не удалось получить задания")
		return sum, nil
	}
	if !res.OK() {
		logger.WithField("fault", res.Fault.String()).Warn("Сервер не отдал задания")
		return sum, nil
	}

	// Проекты по алфавиту, чтобы порядок был стабильным
	projects := make([]string, 0, len(res.Value))
	for p := range res.Value {
		projects = append(projects, p)
	}
	sort.Strings(projects)

	for _, project := range projects {
		for _, task := range res.Value[project] {
			if !Eligible(task) {
				continue
			}
			sum.Attempted++

			entry := logger.WithFields(log.Fields{
				"project": project,
				"task_id": task.ID,
				"task":    task.Name,
			})

			claim, err := s.api.ClaimTask(ctx, task.ID)
			switch {
			case err != nil && retry.ShouldPropagate(err):
				return sum, err
			case err != nil:
				entry.WithError(err).Warn("Ошибка выполнения задания")
			case !claim.OK():
				entry.WithField("fault", claim.Fault.String()).Warn("Задание не выполнено")
			case claim.Value.Success():
				sum.Claimed++
				sum.Reward += task.Reward
				entry.WithField("reward", task.Reward).Info("Задание выполнено")
			default:
				entry.WithField("status", claim.Value.Status).Info("Задание не засчитано")
			}

			if err := s.delay.Sleep(ctx, s.delay.Between(s.pauseMin, s.pauseMax)); err != nil {
				return sum, err
			}
		}
	}

	return sum, nil
}
