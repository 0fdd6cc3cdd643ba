package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// ExtractInitData достаёт tgWebAppData из URL веб-приложения.
//
// Telegram кладёт параметры во фрагмент: https://host/#tgWebAppData=...&tgWebAppVersion=7.0.
// Значение снимается с одного уровня процентного кодирования, '+' не трогается.
func ExtractInitData(rawURL string) (string, error) {
	const key = "tgWebAppData="

	idx := strings.Index(rawURL, key)
	if idx < 0 {
		return "", fmt.Errorf("в URL веб-приложения нет tgWebAppData")
	}
	value := rawURL[idx+len(key):]
	if end := strings.IndexByte(value, '&'); end >= 0 {
		value = value[:end]
	}

	data, err := url.PathUnescape(value)
	if err != nil {
		return "", fmt.Errorf("ошибка декодирования tgWebAppData: %w", err)
	}
	if data == "" {
		return "", fmt.Errorf("пустой tgWebAppData")
	}
	return data, nil
}

// UserID достаёт id пользователя из init data (поле user — JSON).
// 0 — если поля нет или его не удалось разобрать.
func UserID(initData string) int64 {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return 0
	}
	raw := values.Get("user")
	if raw == "" {
		return 0
	}

	var user struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return 0
	}
	return user.ID
}
