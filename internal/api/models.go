package api

import (
	"bytes"
	"encoding/json"
)

// Прогресс ставок: 100% при суммарном заработке 10 000 000
const gamblingCap = 10_000_000

// Token — один токен из ответа логина.
type Token struct {
	Token   string `json:"token"`
	Expires string `json:"expires"`
}

// LoginReply — ответ POST /auth/login.
type LoginReply struct {
	User struct {
		ID  string `json:"id"`
		Age int    `json:"age"`
	} `json:"user"`
	Tokens struct {
		Access  Token `json:"access"`
		Refresh Token `json:"refresh"`
	} `json:"tokens"`
}

// AccessToken возвращает tokens.access.token (пустой, если его нет).
func (l LoginReply) AccessToken() string {
	return l.Tokens.Access.Token
}

// Profile — ответ GET /users/me.
type Profile struct {
	ID         string `json:"_id"`
	TelegramID int64  `json:"telegram_id"`
	Age        int    `json:"age"`
	Balance    int64  `json:"balance"`
}

// PassInfo — прогресс пропуска.
type PassInfo struct {
	Point     int64 `json:"point"`
	TotalEarn int64 `json:"totalEarn"`
}

// GamblingProgress — процент до потолка заработка, не больше 100.
func (p PassInfo) GamblingProgress() float64 {
	progress := float64(p.TotalEarn) / gamblingCap * 100
	if progress > 100 {
		return 100
	}
	return progress
}

// Task — миссия.
type Task struct {
	ID     string `json:"_id"`
	Name   string `json:"name"`
	Reward int64  `json:"reward"`
	// Status: true — выполнена, false — ждёт выполнения.
	Status bool `json:"status"`
	// CooldownTime приходит числом, строкой или null, поэтому храним как есть.
	CooldownTime json.RawMessage `json:"cooldown_time,omitempty"`
}

// HasCooldown сообщает, что у задания выставлено время перезарядки.
// null, 0, "" и false считаются отсутствием.
func (t Task) HasCooldown() bool {
	v := bytes.TrimSpace(t.CooldownTime)
	switch string(v) {
	case "", "null", "0", `""`, "false":
		return false
	}
	return true
}

// TaskList — задания, сгруппированные по проектам.
type TaskList map[string][]Task

// ClaimReply — ответ на выполнение задания или чек-ина.
type ClaimReply struct {
	Status string `json:"status"`
}

// Success сообщает, что сервер подтвердил выполнение.
func (c ClaimReply) Success() bool {
	return c.Status == "success"
}

// CheckinDay — один день чек-ина.
type CheckinDay struct {
	ID     string `json:"_id"`
	Day    int    `json:"day"`
	Reward int64  `json:"reward"`
	// Status: true — день уже получен.
	Status bool `json:"status"`
}

// CheckinOptions — ответ GET /checkin/user.
type CheckinOptions struct {
	Result []CheckinDay `json:"result"`
	// LastCheckinTime: nil, если поля нет в ответе; 0 — чек-ина ещё не было.
	LastCheckinTime *int64 `json:"lastCheckinTime"`
}

// CinemaRemaining — сколько фильмов ещё можно посмотреть.
type CinemaRemaining struct {
	Remaining int   `json:"remaining"`
	Reward    int64 `json:"reward"`
}

// WatchReply — ответ POST /cinema/watch.
type WatchReply struct {
	Status string `json:"status"`
	Reward int64  `json:"reward"`
}

// GameState — состояние партии «поймай, не попади на бомбу».
type GameState struct {
	ID          string `json:"_id"`
	BetAmount   int64  `json:"bet_amount"`
	IsCompleted bool   `json:"is_completed"`
	IsBomb      bool   `json:"is_bomb"`
	Reward      int64  `json:"reward"`
	Locations   []int  `json:"locations,omitempty"`
	// Balance присылается не всегда.
	Balance *int64 `json:"balance,omitempty"`
}

// Active сообщает, что партию можно продолжать.
func (g *GameState) Active() bool {
	return g != nil && g.ID != "" && !g.IsCompleted && !g.IsBomb
}

// CatchingGame — ответ GET /catching-game/user.
type CatchingGame struct {
	Game *GameState `json:"game"`
}

// Тела запросов мини-игры
type startGameBody struct {
	Location  int   `json:"location"`
	BetAmount int64 `json:"bet_amount"`
}

type continueGameBody struct {
	Location int    `json:"location"`
	GameID   string `json:"game_id"`
}

type cashoutBody struct {
	GameID string `json:"game_id"`
}
