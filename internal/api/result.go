package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Fault — разобранное тело ответа, который не удалось принять как успех.
type Fault struct {
	StatusCode int
	Status     string
	Message    string
	Raw        string
}

func (f *Fault) String() string {
	if f == nil {
		return ""
	}
	msg := f.Message
	if msg == "" {
		msg = f.Raw
	}
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return fmt.Sprintf("%d %s: %s", f.StatusCode, f.Status, msg)
}

func (f *Fault) contains(words ...string) bool {
	text := strings.ToLower(f.Message + " " + f.Status + " " + f.Raw)
	for _, w := range words {
		if !strings.Contains(text, w) {
			return false
		}
	}
	return true
}

// TooManyRequests — сервер просит притормозить.
func (f *Fault) TooManyRequests() bool {
	return f != nil && (f.StatusCode == http.StatusTooManyRequests || f.contains("too many requests"))
}

// CashoutCompleted — партия уже закрыта на стороне сервера.
func (f *Fault) CashoutCompleted() bool {
	return f != nil && f.contains("cashout", "complet")
}

// Unauthorized — токен не принят.
func (f *Fault) Unauthorized() bool {
	return f != nil && f.StatusCode == http.StatusUnauthorized
}

// Banned — аккаунт заблокирован на стороне игры.
func (f *Fault) Banned() bool {
	return f != nil && (f.contains("banned") || f.contains("blocked"))
}

// Result — значение или Fault.
type Result[T any] struct {
	Value T
	Fault *Fault
}

// OK сообщает, что ответ успешный.
func (r Result[T]) OK() bool {
	return r.Fault == nil
}

// faultBody — поля, в которых сервер сообщает об ошибке.
// status бывает и строкой, и числом, message — строкой или массивом строк.
type faultBody struct {
	Status     any    `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error"`
}

// parseFault разбирает не-2xx ответ. Ничего не теряет: если тело не JSON,
// оно целиком попадает в Raw.
func parseFault(status int, body []byte) *Fault {
	f := &Fault{StatusCode: status, Raw: strings.TrimSpace(string(body))}

	var fb faultBody
	if err := json.Unmarshal(body, &fb); err != nil {
		return f
	}
	if fb.Status != nil {
		f.Status = fmt.Sprint(fb.Status)
	}
	f.Message = flatten(fb.Message)
	if f.Message == "" {
		f.Message = fb.Error
	}
	return f
}

func flatten(v any) string {
	switch m := v.(type) {
	case nil:
		return ""
	case string:
		return m
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(m)
	}
}

// decodeResult превращает ответ транспорта в Result[T].
// 2xx с телом, которое не разбирается в T, тоже становится Fault: ошибки бизнес-логики
// сервер иногда отдаёт с кодом 200.
func decodeResult[T any](status int, body []byte) Result[T] {
	var res Result[T]
	if status < 200 || status >= 300 {
		res.Fault = parseFault(status, body)
		return res
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return res
	}
	if err := json.Unmarshal(body, &res.Value); err != nil {
		res.Fault = parseFault(status, body)
		if res.Fault.Message == "" {
			res.Fault.Message = err.Error()
		}
		return res
	}

	// {"statusCode":429,"message":"..."} с HTTP 200
	var fb faultBody
	if json.Unmarshal(body, &fb) == nil && (fb.StatusCode >= 400 || fb.Status == "error") {
		res.Fault = parseFault(status, body)
		if fb.StatusCode >= 400 {
			res.Fault.StatusCode = fb.StatusCode
		}
	}
	return res
}
