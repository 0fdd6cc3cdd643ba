// Package common — pluralize.go содержит форматирование сумм для логов и отчётов.
package common

import "fmt"

// FormatNumber форматирует число с разделителями тысяч (пробелами).
// Пример: FormatNumber(2350) → "2 350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	rest := n / 1000
	last := n % 1000
	return fmt.Sprintf("%s %03d", FormatNumber(rest), last)
}

// FormatSigned создаёт строку вида "+1 000" или "-250".
// Используется для чистого выигрыша раунда.
func FormatSigned(amount int64) string {
	if amount >= 0 {
		return "+" + FormatNumber(amount)
	}
	return FormatNumber(amount)
}

// FormatPercent форматирует процент с одним знаком: 42.5 → "42.5%".
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}
