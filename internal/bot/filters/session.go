// Package filters решает, какие сессии допускаются к запуску.
package filters

import (
	"context"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/accounts"
	"serotonyl.ru/goats-farm/internal/features/sessions"
)

// SessionFilter пропускает сессию, если у неё есть запись в accounts.yaml
// с user agent и она не помечена недействительной.
type SessionFilter struct {
	registry *accounts.Registry
	sessions *sessions.Service
}

func NewSessionFilter(registry *accounts.Registry, sessionService *sessions.Service) *SessionFilter {
	return &SessionFilter{registry: registry, sessions: sessionService}
}

// CheckAccess возвращает настройки сессии и true, если её можно запускать.
func (f *SessionFilter) CheckAccess(ctx context.Context, name string) (accounts.Account, bool) {
	logger := log.WithFields(log.Fields{
		"component": "SessionFilter",
		"session":   name,
	})

	if f.registry == nil {
		logger.Error("registry is nil")
		return accounts.Account{}, false
	}

	acc, ok := f.registry.Get(name)
	if !ok {
		logger.Warn("Сессии нет в accounts.yaml, пропускаем")
		return accounts.Account{}, false
	}
	if acc.UserAgent == "" {
		logger.Warn("У сессии нет user agent, пропускаем")
		return accounts.Account{}, false
	}

	if f.sessions != nil {
		invalid, err := f.sessions.IsInvalid(ctx, name)
		if err != nil {
			// Хранилище недоступно: сессию всё равно запускаем
			logger.WithError(err).Warn("Не удалось проверить сессию, запускаем")
			return acc, true
		}
		if invalid {
			logger.Info("Сессия помечена недействительной, пропускаем")
			return accounts.Account{}, false
		}
	}

	return acc, true
}
