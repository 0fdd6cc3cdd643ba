// Package common — errors.go определяет ошибки, которые используются
// во всех модулях фермы. Воркер различает по ним, что делать дальше:
// подождать и повторить авторизацию, уйти в cooldown или остановиться насовсем.
package common

import "errors"

// Ошибки сессии (авторизация в Telegram и в API игры)
var (
	// ErrInvalidSession — сессия отозвана, аккаунт забанен или удалён. Воркер останавливается.
	ErrInvalidSession = errors.New("сессия недействительна")
	// ErrAuthFailed — не удалось получить init data или токен. Повторяем через 300 секунд.
	ErrAuthFailed = errors.New("не удалось авторизоваться")
	// ErrNoAccessToken — ответ логина не содержит tokens.access.token
	ErrNoAccessToken = errors.New("в ответе логина нет access token")
	// ErrBotNotFound — бот мини-приложения не найден через resolve username
	ErrBotNotFound = errors.New("бот мини-приложения не найден")
)

// Ошибки окружения
var (
	// ErrProxyUnavailable — прокси не прошёл проверку перед циклом
	ErrProxyUnavailable = errors.New("прокси недоступен")
	// ErrNoSessions — в папке сессий нет ни одного файла *.session
	ErrNoSessions = errors.New("не найдено ни одной сессии")
)
