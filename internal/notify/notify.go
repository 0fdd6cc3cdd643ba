// Package notify отправляет уведомления владельцу фермы:
// отчёты о состоянии сессий и сообщения о невалидных сессиях.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Notifier доставляет текстовое уведомление.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Nop ничего не отправляет. Используется, когда уведомления выключены.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }

// maxMessageLen — лимит длины сообщения Telegram
const maxMessageLen = 4096

// Telegram шлёт уведомления в чат через Bot API.
type Telegram struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram авторизует бота уведомлений.
//
// Параметры:
//   - token: токен бота
//   - chatID: чат, куда слать уведомления
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	return NewTelegramWithClient(token, tgbotapi.APIEndpoint, chatID, &http.Client{})
}

// NewTelegramWithClient — то же с заданным адресом Bot API и HTTP-клиентом.
func NewTelegramWithClient(token, endpoint string, chatID int64, client tgbotapi.HTTPClient) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	log.Infof("Уведомления через @%s", api.Self.UserName)
	return &Telegram{api: api, chatID: chatID}, nil
}

// Notify отправляет текст. Длинный текст режется на несколько сообщений.
func (t *Telegram) Notify(ctx context.Context, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, part)
		msg.DisableWebPagePreview = true
		if _, err := t.api.Send(msg); err != nil {
			return fmt.Errorf("ошибка отправки уведомления: %w", err)
		}
	}
	return nil
}

// splitMessage режет текст по строкам так, чтобы каждая часть была не длиннее limit рун.
func splitMessage(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	var cur []rune
	for _, r := range text {
		cur = append(cur, r)
		if len(cur) < limit {
			continue
		}
		// режем по последнему переводу строки, если он есть
		cut := len(cur)
		for i := len(cur) - 1; i > 0; i-- {
			if cur[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(cur[:cut]))
		cur = append([]rune(nil), cur[cut:]...)
	}
	if len(cur) > 0 {
		parts = append(parts, string(cur))
	}
	return parts
}
