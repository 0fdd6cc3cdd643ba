// Package gambling — engine.go ведёт партии мини-игры от начала до конца.
//
// Раунд: new-game на первую клетку, continue-game на оставшиеся, cashout.
// Бомба — проигрыш, ставка удваивается. Выигрыш — ставка пересчитывается
// от нового баланса. Баланс берётся только из ответов сервера.
package gambling

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/api"
	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/delay"
)

// API — вызовы мини-игры.
type API interface {
	GetProfile(ctx context.Context) (api.Result[api.Profile], error)
	GetCatchingGame(ctx context.Context) (api.Result[api.CatchingGame], error)
	StartGame(ctx context.Context, location int, betAmount int64) (api.Result[api.GameState], error)
	ContinueGame(ctx context.Context, location int, gameID string) (api.Result[api.GameState], error)
	CashoutGame(ctx context.Context, gameID string) (api.Result[api.GameState], error)
}

// RoundRecorder сохраняет сыгранные раунды.
type RoundRecorder interface {
	RecordRound(ctx context.Context, r Round) error
}

type nopRecorder struct{}

func (nopRecorder) RecordRound(context.Context, Round) error { return nil }

// Config — параметры движка.
type Config struct {
	MaxGames   int
	MinBalance int64
	// TooManyAttempts — сколько раз повторять вызов при "too many requests".
	TooManyAttempts int
	// TooManyBackoff — базовая пауза, растёт линейно с номером попытки.
	TooManyBackoff time.Duration
}

// Engine играет партии за одну сессию.
type Engine struct {
	api      API
	delay    delay.Provider
	recorder RoundRecorder
	cfg      Config
	session  string
}

// NewEngine создаёт движок. recorder может быть nil.
func NewEngine(session string, a API, d delay.Provider, recorder RoundRecorder, cfg Config) *Engine {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.TooManyAttempts <= 0 {
		cfg.TooManyAttempts = 5
	}
	if cfg.TooManyBackoff <= 0 {
		cfg.TooManyBackoff = 2 * time.Second
	}
	return &Engine{api: a, delay: d, recorder: recorder, cfg: cfg, session: session}
}

// withBackoff повторяет вызов, пока сервер отвечает "too many requests".
// Это не проигрыш и не ошибка: после исчерпания попыток вернётся последний Fault.
func withBackoff[T any](ctx context.Context, e *Engine, logger *log.Entry, op string, fn func(ctx context.Context) (api.Result[T], error)) (api.Result[T], error) {
	var res api.Result[T]
	for attempt := 1; attempt <= e.cfg.TooManyAttempts; attempt++ {
		var err error
		res, err = fn(ctx)
		if err != nil {
			return res, err
		}
		if !res.Fault.TooManyRequests() {
			return res, nil
		}

		wait := e.cfg.TooManyBackoff * time.Duration(attempt)
		logger.WithFields(log.Fields{"op": op, "attempt": attempt, "wait": wait.String()}).
			Debug("Too many requests, ждём")
		if err := e.delay.Sleep(ctx, wait); err != nil {
			return res, err
		}
	}
	return res, nil
}

// pickLocations выбирает MovesPerRound разных клеток из BoardSize.
func (e *Engine) pickLocations() []int {
	cells := make([]int, BoardSize)
	for i := range cells {
		cells[i] = i
	}
	for i := 0; i < MovesPerRound; i++ {
		j := i + e.delay.Intn(BoardSize-i)
		cells[i], cells[j] = cells[j], cells[i]
	}
	return append([]int(nil), cells[:MovesPerRound]...)
}

// balanceAfter берёт баланс из ответа, а если его там нет — из профиля.
func (e *Engine) balanceAfter(ctx context.Context, st api.GameState, fallback int64) (int64, error) {
	if st.Balance != nil {
		return *st.Balance, nil
	}
	res, err := e.api.GetProfile(ctx)
	if err != nil {
		return fallback, err
	}
	if !res.OK() {
		return fallback, nil
	}
	return res.Value.Balance, nil
}

func (e *Engine) record(ctx context.Context, logger *log.Entry, r Round) {
	r.Session = e.session
	if err := e.recorder.RecordRound(ctx, r); err != nil {
		logger.WithError(err).Warn("Не удалось сохранить раунд")
	}
}

// Play играет, пока не кончатся партии, деньги или не сработает порог баланса.
//
// Параметры:
//   - ctx: контекст
//   - balance: баланс из последнего ответа профиля
//   - logger: логгер сессии
//
// Возвращает итог и ошибку, только если вызов API не удался на сетевом уровне.
func (e *Engine) Play(ctx context.Context, balance int64, logger *log.Entry) (Summary, error) {
	gamesLeft := e.delay.IntBetween(e.cfg.MaxGames/2, e.cfg.MaxGames)
	bet := BetFor(balance)
	sum := Summary{FinalBalance: balance, FinalBet: bet}

	logger = logger.WithField("component", "gambling")
	logger.WithFields(log.Fields{
		"games":   gamesLeft,
		"bet":     bet,
		"balance": balance,
	}).Infof("Начинаем ставки: %d %s", gamesLeft, common.PluralizeGames(int64(gamesLeft)))

	// Незаконченная партия с прошлого запуска
	var game *api.GameState
	cur, err := withBackoff(ctx, e, logger, "catching-game", e.api.GetCatchingGame)
	if err != nil {
		return sum, err
	}
	if cur.OK() && cur.Value.Game.Active() {
		game = cur.Value.Game
		if game.BetAmount > 0 {
			bet = game.BetAmount
		}
		logger.WithFields(log.Fields{"game_id": game.ID, "bet": bet}).Info("Продолжаем незаконченную партию")
	}

	finish := func(reason StopReason) (Summary, error) {
		sum.Reason = reason
		sum.FinalBalance = balance
		sum.FinalBet = bet
		logger.WithFields(log.Fields{
			"reason":  reason,
			"wins":    sum.Wins,
			"losses":  sum.Losses,
			"aborted": sum.Aborted,
			"net":     common.FormatSigned(sum.Net),
			"balance": common.FormatNumber(balance),
		}).Info("Ставки закончены")
		return sum, nil
	}

	for gamesLeft > 0 {
		if game == nil {
			if bet > balance || bet < MinBet {
				return finish(StopInsufficient)
			}
			if balance <= e.cfg.MinBalance {
				return finish(StopFloor)
			}
		}

		locations := e.pickLocations()
		moves := locations[1:]
		roundLog := logger.WithFields(log.Fields{"bet": bet, "locations": locations})

		if game == nil {
			res, err := withBackoff(ctx, e, roundLog, "new-game", func(ctx context.Context) (api.Result[api.GameState], error) {
				return e.api.StartGame(ctx, locations[0], bet)
			})
			if err != nil {
				return sum, err
			}
			if !res.OK() {
				roundLog.WithField("fault", res.Fault.String()).Warn("Сервер не дал начать партию")
				return finish(StopServerFault)
			}

			st := res.Value
			if st.IsBomb {
				if balance, err = e.balanceAfter(ctx, st, balance-bet); err != nil {
					return sum, err
				}
				e.lose(ctx, roundLog, &sum, st.ID, bet, balance, locations[:1])
				bet *= 2
				continue
			}
			game = &st
		}

		gameLog := roundLog.WithField("game_id", game.ID)

		// Ходы по оставшимся клеткам
		var lost, aborted bool
		for _, loc := range moves {
			res, err := withBackoff(ctx, e, gameLog, "continue-game", func(ctx context.Context) (api.Result[api.GameState], error) {
				return e.api.ContinueGame(ctx, loc, game.ID)
			})
			if err != nil {
				return sum, err
			}
			if !res.OK() {
				if res.Fault.CashoutCompleted() {
					gameLog.Info("Партия уже закрыта на сервере")
				} else {
					gameLog.WithField("fault", res.Fault.String()).Warn("Ход не принят")
				}
				aborted = true
				break
			}
			if res.Value.IsBomb {
				if balance, err = e.balanceAfter(ctx, res.Value, balance-bet); err != nil {
					return sum, err
				}
				lost = true
				break
			}
		}

		switch {
		case lost:
			e.lose(ctx, gameLog, &sum, game.ID, bet, balance, locations)
			bet *= 2
			game = nil
			continue
		case aborted:
			sum.Aborted++
			e.record(ctx, gameLog, Round{GameID: game.ID, BetAmount: bet, Outcome: OutcomeAborted, BalanceAfter: balance, Locations: encodeLocations(locations)})
			game = nil
			gamesLeft--
			continue
		}

		// Забираем выигрыш
		res, err := withBackoff(ctx, e, gameLog, "cashout", func(ctx context.Context) (api.Result[api.GameState], error) {
			return e.api.CashoutGame(ctx, game.ID)
		})
		if err != nil {
			return sum, err
		}
		if !res.OK() {
			gameLog.WithField("fault", res.Fault.String()).Warn("Cashout не принят")
			sum.Aborted++
			e.record(ctx, gameLog, Round{GameID: game.ID, BetAmount: bet, Outcome: OutcomeAborted, BalanceAfter: balance, Locations: encodeLocations(locations)})
			game = nil
			gamesLeft--
			continue
		}

		if balance, err = e.balanceAfter(ctx, res.Value, balance); err != nil {
			return sum, err
		}
		round := Round{GameID: game.ID, BetAmount: bet, Reward: res.Value.Reward, Outcome: OutcomeWin, BalanceAfter: balance, Locations: encodeLocations(locations)}
		sum.Wins++
		sum.Net += round.Net()
		gameLog.WithFields(log.Fields{
			"net":     common.FormatSigned(round.Net()),
			"balance": common.FormatNumber(balance),
		}).Info("Выигрыш")
		e.record(ctx, gameLog, round)

		bet = BetFor(balance)
		game = nil
		gamesLeft--
	}

	return finish(StopGamesDone)
}

// lose учитывает проигрыш раунда.
func (e *Engine) lose(ctx context.Context, logger *log.Entry, sum *Summary, gameID string, bet, balance int64, locations []int) {
	round := Round{GameID: gameID, BetAmount: bet, Outcome: OutcomeLoss, BalanceAfter: balance, Locations: encodeLocations(locations)}
	sum.Losses++
	sum.Net += round.Net()
	logger.WithFields(log.Fields{
		"net":      common.FormatSigned(round.Net()),
		"balance":  common.FormatNumber(balance),
		"next_bet": bet * 2,
	}).Info("Бомба, проигрыш")
	e.record(ctx, logger, round)
}

func encodeLocations(locations []int) json.RawMessage {
	data, _ := json.Marshal(locations)
	return data
}
