// Package middleware содержит промежуточные обработчики для HTTP-запросов
// и воркеров: логирование, восстановление после паники и rate-limiting.
package middleware

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// LogRequest логирует исходящий запрос к API игры.
// Записывает: сессию, метод, URL (первые 120 символов), статус и длительность.
func LogRequest(session, method, url string, status int, took time.Duration, err error) {
	if len(url) > 120 {
		url = url[:120] + "..."
	}

	entry := log.WithFields(log.Fields{
		"session": session,
		"method":  method,
		"url":     url,
		"status":  status,
		"took_ms": took.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Debug("Запрос завершился ошибкой")
		return
	}
	entry.Debug("Запрос выполнен")
}
