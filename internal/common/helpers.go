// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: работа с часовыми поясами и датами, русская плюрализация,
// форматирование чисел.
package common

import (
	"math"
	"time"
)

// LoadLocation загружает часовой пояс по имени.
// Если tzdata недоступна (голый контейнер), для Europe/Moscow используется UTC+3,
// для остальных — UTC.
func LoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err == nil {
		return loc
	}
	if name == "Europe/Moscow" {
		return time.FixedZone("MSK", 3*60*60)
	}
	return time.UTC
}

// UnixToTime переводит серверную метку времени в time.Time.
// Сервер отдаёт то секунды, то миллисекунды: значения больше 1e12 считаем миллисекундами.
func UnixToTime(v int64) time.Time {
	if v > 1_000_000_000_000 {
		return time.UnixMilli(v)
	}
	return time.Unix(v, 0)
}

// StartOfDay возвращает полночь того же дня в часовом поясе loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// IsNewDay сообщает, что метка last относится не к сегодняшнему дню (в поясе loc).
// last == 0 означает «никогда» и тоже даёт true.
//
// Примеры (loc = Europe/Moscow, now = 2024-05-02 10:00 MSK):
//
//	IsNewDay(0, now, loc)                       → true
//	IsNewDay(<2024-05-01 23:59 MSK>, now, loc)  → true
//	IsNewDay(<2024-05-02 00:01 MSK>, now, loc)  → false
func IsNewDay(last int64, now time.Time, loc *time.Location) bool {
	if last == 0 {
		return true
	}
	return !StartOfDay(UnixToTime(last), loc).Equal(StartOfDay(now, loc))
}

// Pluralize выбирает форму слова для числа n по правилам русского языка.
//
// Правила:
//   - n%10==1 И n%100!=11 → one (1, 21, 101)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → few (2, 3, 22)
//   - остальные → many (0, 5-20, 100)
//
// Пример: Pluralize(3, "игра", "игры", "игр") → "игры"
func Pluralize(n int64, one, few, many string) string {
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return one
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return few
	}
	return many
}

// PluralizeGames возвращает форму слова «игра» для числа n.
func PluralizeGames(n int64) string {
	return Pluralize(n, "игра", "игры", "игр")
}

// PluralizeSessions возвращает форму слова «сессия» для числа n.
func PluralizeSessions(n int64) string {
	return Pluralize(n, "сессия", "сессии", "сессий")
}
