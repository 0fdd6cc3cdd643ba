// Package api — типизированный клиент REST API мини-приложения GOATS.
//
// Каждая операция возвращает Result[T]: либо значение, либо Fault с разобранным
// телом не-2xx ответа. Go-ошибка возвращается только при сетевом сбое
// (после повторов retry.Policy) или если ответ совсем не удалось прочитать.
package api

import (
	"net/http"
	"time"
)

// Endpoints — базовые адреса доменов API. Тесты подменяют их на httptest.
type Endpoints struct {
	Auth     string
	Me       string
	Pass     string
	Missions string
	Checkin  string
	Cinema   string
	Catching string
}

// DefaultEndpoints возвращает боевые адреса.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Auth:     "https://dev-api.goatsbot.xyz",
		Me:       "https://api-me.goatsbot.xyz",
		Pass:     "https://api-pass.goatsbot.xyz",
		Missions: "https://api-mission.goatsbot.xyz",
		Checkin:  "https://api-checkin.goatsbot.xyz",
		Cinema:   "https://api-cinema.goatsbot.xyz",
		Catching: "https://api-catching.goatsbot.xyz",
	}
}

// SingleHost направляет все домены на один адрес. Удобно для тестов и локального мока.
func SingleHost(base string) Endpoints {
	return Endpoints{
		Auth:     base,
		Me:       base,
		Pass:     base,
		Missions: base,
		Checkin:  base,
		Cinema:   base,
		Catching: base,
	}
}

// Таймауты по группам эндпоинтов
const (
	timeoutAuth  = 30 * time.Second
	timeoutRead  = 30 * time.Second
	timeoutClaim = 15 * time.Second
	timeoutGame  = 10 * time.Second
)

// route — метод, путь и таймаут одной операции.
type route struct {
	method  string
	path    string
	timeout time.Duration
	auth    bool
}

var (
	routeLogin        = route{http.MethodPost, "/auth/login", timeoutAuth, false}
	routeProfile      = route{http.MethodGet, "/users/me", timeoutAuth, true}
	routePassInfo     = route{http.MethodGet, "/pass/user", timeoutRead, true}
	routeTasks        = route{http.MethodGet, "/missions/user", timeoutRead, true}
	routeClaimTask    = route{http.MethodPost, "/missions/action/", timeoutClaim, true}
	routeCheckin      = route{http.MethodGet, "/checkin/user", timeoutRead, true}
	routeClaimCheckin = route{http.MethodPost, "/checkin/action/", timeoutClaim, true}
	routeCinemaLeft   = route{http.MethodGet, "/cinema/remaining", timeoutRead, true}
	routeCinemaWatch  = route{http.MethodPost, "/cinema/watch", timeoutClaim, true}
	routeCatchingGame = route{http.MethodGet, "/catching-game/user", timeoutGame, true}
	routeStartGame    = route{http.MethodPost, "/catching-game/new-game", timeoutGame, true}
	routeContinueGame = route{http.MethodPost, "/catching-game/continue-game", timeoutGame, true}
	routeCashoutGame  = route{http.MethodPost, "/catching-game/cashout", timeoutGame, true}
)
