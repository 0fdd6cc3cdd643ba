package api

import (
	"context"
	"fmt"
	"maps"
	"net/url"

	"serotonyl.ru/goats-farm/internal/retry"
	"serotonyl.ru/goats-farm/internal/transport"
)

// TokenSource отдаёт текущий access token сессии.
// Заголовок Authorization собирается из него на каждый запрос.
type TokenSource interface {
	AccessToken() string
}

// BaseHeaders возвращает заголовки мини-приложения для заданного user agent.
func BaseHeaders(userAgent string) map[string]string {
	return map[string]string{
		"Accept":             "application/json, text/plain, */*",
		"Accept-Language":    "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
		"Origin":             "https://dev.goatsbot.xyz",
		"Referer":            "https://dev.goatsbot.xyz/",
		"Sec-Fetch-Dest":     "empty",
		"Sec-Fetch-Mode":     "cors",
		"Sec-Fetch-Site":     "same-site",
		"Sec-Ch-Ua-Mobile":   "?1",
		"Sec-Ch-Ua-Platform": `"Android"`,
		"User-Agent":         userAgent,
	}
}

// Client — клиент API игры для одной сессии.
type Client struct {
	doer    transport.Doer
	ep      Endpoints
	headers map[string]string
	tokens  TokenSource
	retry   retry.Policy
}

// NewClient создаёт клиент.
//
// Параметры:
//   - doer: транспорт сессии (с её прокси)
//   - ep: адреса API
//   - headers: базовые заголовки, копируются и больше не меняются
//   - tokens: источник access token
//   - policy: политика повторов при временных сбоях
func NewClient(doer transport.Doer, ep Endpoints, headers map[string]string, tokens TokenSource, policy retry.Policy) *Client {
	if policy.Classify == nil {
		policy.Classify = transport.IsTransient
	}
	return &Client{
		doer:    doer,
		ep:      ep,
		headers: maps.Clone(headers),
		tokens:  tokens,
		retry:   policy,
	}
}

// requestHeaders собирает свежий набор заголовков для одного запроса.
func (c *Client) requestHeaders(r route, extra map[string]string) map[string]string {
	h := maps.Clone(c.headers)
	if h == nil {
		h = make(map[string]string)
	}
	if r.auth && c.tokens != nil {
		if token := c.tokens.AccessToken(); token != "" {
			h["Authorization"] = "Bearer " + token
		}
	}
	maps.Copy(h, extra)
	return h
}

// call выполняет запрос с повторами и разбирает ответ в Result[T].
func call[T any](ctx context.Context, c *Client, base string, r route, suffix string, body any, extra map[string]string) (Result[T], error) {
	req := transport.Request{
		Method:  r.method,
		URL:     base + r.path + suffix,
		Headers: c.requestHeaders(r, extra),
		Body:    body,
		Timeout: r.timeout,
	}

	op := r.method + " " + r.path
	resp, err := retry.Do(ctx, c.retry, op, func(ctx context.Context) (*transport.Response, error) {
		return c.doer.Do(ctx, req)
	})
	if err != nil {
		return Result[T]{}, err
	}
	return decodeResult[T](resp.Status, resp.Body), nil
}

// Login обменивает init data на токены. Init data уходит в заголовке Rawdata.
func (c *Client) Login(ctx context.Context, initData string) (Result[LoginReply], error) {
	return call[LoginReply](ctx, c, c.ep.Auth, routeLogin, "", map[string]any{},
		map[string]string{"Rawdata": initData})
}

// GetProfile возвращает профиль с балансом.
func (c *Client) GetProfile(ctx context.Context) (Result[Profile], error) {
	return call[Profile](ctx, c, c.ep.Me, routeProfile, "", nil, nil)
}

// GetPassInfo возвращает очки пропуска и суммарный заработок.
func (c *Client) GetPassInfo(ctx context.Context) (Result[PassInfo], error) {
	return call[PassInfo](ctx, c, c.ep.Pass, routePassInfo, "", nil, nil)
}

// ListTasks возвращает задания по проектам.
func (c *Client) ListTasks(ctx context.Context) (Result[TaskList], error) {
	return call[TaskList](ctx, c, c.ep.Missions, routeTasks, "", nil, nil)
}

// ClaimTask выполняет задание.
func (c *Client) ClaimTask(ctx context.Context, taskID string) (Result[ClaimReply], error) {
	if taskID == "" {
		return Result[ClaimReply]{}, fmt.Errorf("пустой id задания")
	}
	return call[ClaimReply](ctx, c, c.ep.Auth, routeClaimTask, url.PathEscape(taskID), map[string]any{}, nil)
}

// GetCheckinOptions возвращает дни чек-ина и время последнего.
func (c *Client) GetCheckinOptions(ctx context.Context) (Result[CheckinOptions], error) {
	return call[CheckinOptions](ctx, c, c.ep.Checkin, routeCheckin, "", nil, nil)
}

// ClaimCheckin забирает награду за день.
func (c *Client) ClaimCheckin(ctx context.Context, checkinID string) (Result[ClaimReply], error) {
	if checkinID == "" {
		return Result[ClaimReply]{}, fmt.Errorf("пустой id чек-ина")
	}
	return call[ClaimReply](ctx, c, c.ep.Checkin, routeClaimCheckin, url.PathEscape(checkinID), map[string]any{}, nil)
}

// GetCinemaRemaining возвращает число доступных просмотров.
func (c *Client) GetCinemaRemaining(ctx context.Context) (Result[CinemaRemaining], error) {
	return call[CinemaRemaining](ctx, c, c.ep.Cinema, routeCinemaLeft, "", nil, nil)
}

// WatchMovie засчитывает один просмотр.
func (c *Client) WatchMovie(ctx context.Context) (Result[WatchReply], error) {
	return call[WatchReply](ctx, c, c.ep.Cinema, routeCinemaWatch, "", map[string]any{}, nil)
}

// GetCatchingGame возвращает текущую партию мини-игры, если она есть.
func (c *Client) GetCatchingGame(ctx context.Context) (Result[CatchingGame], error) {
	return call[CatchingGame](ctx, c, c.ep.Catching, routeCatchingGame, "", nil, nil)
}

// StartGame начинает партию с первым ходом в location.
func (c *Client) StartGame(ctx context.Context, location int, betAmount int64) (Result[GameState], error) {
	return call[GameState](ctx, c, c.ep.Catching, routeStartGame, "",
		startGameBody{Location: location, BetAmount: betAmount}, nil)
}

// ContinueGame делает следующий ход.
func (c *Client) ContinueGame(ctx context.Context, location int, gameID string) (Result[GameState], error) {
	return call[GameState](ctx, c, c.ep.Catching, routeContinueGame, "",
		continueGameBody{Location: location, GameID: gameID}, nil)
}

// CashoutGame забирает выигрыш партии.
func (c *Client) CashoutGame(ctx context.Context, gameID string) (Result[GameState], error) {
	return call[GameState](ctx, c, c.ep.Catching, routeCashoutGame, "",
		cashoutBody{GameID: gameID}, nil)
}
