// Package sessions — service.go связывает воркеры с хранилищем сессий.
package sessions

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/telegram"
)

// Service ведёт учёт сессий поверх Store.
type Service struct {
	store Store
}

// NewService создаёт сервис сессий.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// RecordLogin отмечает успешный логин. Telegram user ID берётся из init data.
//
// Параметры:
//   - ctx: контекст
//   - name: имя сессии
//   - initData: init data, с которой прошёл логин
//   - logger: логгер сессии
//
// Возвращает true, если сессия запущена впервые.
func (s *Service) RecordLogin(ctx context.Context, name, initData string, logger *log.Entry) (bool, error) {
	userID := telegram.UserID(initData)
	firstRun, err := s.store.TouchLogin(ctx, name, userID)
	if err != nil {
		return false, fmt.Errorf("ошибка учёта логина: %w", err)
	}
	if firstRun {
		logger.WithField("tg_user_id", userID).Info("Первый запуск сессии")
	}
	return firstRun, nil
}

// Invalidate помечает сессию недействительной, чтобы её не запускать повторно.
func (s *Service) Invalidate(ctx context.Context, name string, cause error) error {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	if err := s.store.MarkInvalid(ctx, name, reason); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"session": name,
		"reason":  reason,
	}).Warn("Сессия помечена недействительной")
	return nil
}

// IsInvalid проверяет пометку сессии.
func (s *Service) IsInvalid(ctx context.Context, name string) (bool, error) {
	return s.store.IsInvalid(ctx, name)
}

// SaveSnapshot сохраняет снимок баланса за цикл.
func (s *Service) SaveSnapshot(ctx context.Context, snap Snapshot) error {
	return s.store.SaveSnapshot(ctx, snap)
}
