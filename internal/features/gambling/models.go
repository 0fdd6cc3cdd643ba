// Package gambling играет в мини-игру «поймай, не попади на бомбу».
// models.go описывает раунды, статистику и итоги игровой сессии.
package gambling

import (
	"encoding/json"
	"time"
)

// Параметры доски и ставок
const (
	BoardSize     = 16  // клеток на доске
	MovesPerRound = 2   // ходов за раунд
	MinBet        = 100 // минимальная ставка
	betDivisor    = 4000
)

// Outcome — чем закончился раунд.
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeLoss    Outcome = "loss"
	OutcomeAborted Outcome = "aborted"
)

// StopReason — почему движок перестал играть.
type StopReason string

const (
	StopGamesDone    StopReason = "games_done"    // сыграно запланированное число партий
	StopInsufficient StopReason = "insufficient"  // ставка больше баланса или меньше минимума
	StopFloor        StopReason = "balance_floor" // баланс опустился до MIN_GAMBLING_BALANCE
	StopServerFault  StopReason = "server_fault"  // сервер не дал начать партию
)

// Round — запись одного раунда в БД.
type Round struct {
	ID           int64           `db:"id"`
	Session      string          `db:"session_name"`
	GameID       string          `db:"game_id"`
	BetAmount    int64           `db:"bet_amount"`
	Reward       int64           `db:"reward"`
	Outcome      Outcome         `db:"outcome"`
	BalanceAfter int64           `db:"balance_after"`
	Locations    json.RawMessage `db:"locations"`
	CreatedAt    time.Time       `db:"created_at"`
}

// Net — чистый результат раунда.
func (r Round) Net() int64 {
	switch r.Outcome {
	case OutcomeWin:
		return r.Reward - r.BetAmount
	case OutcomeLoss:
		return -r.BetAmount
	}
	return 0
}

// Stats — накопленная статистика ставок сессии.
type Stats struct {
	ID           int64     `db:"id"`
	Session      string    `db:"session_name"`
	TotalRounds  int       `db:"total_rounds"`
	TotalWagered int64     `db:"total_wagered"`
	TotalWon     int64     `db:"total_won"`
	BiggestWin   int64     `db:"biggest_win"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// RTP — фактический возврат игроку в процентах: выиграно / поставлено.
// Без ставок возвращает 0.
func (s Stats) RTP() float64 {
	if s.TotalWagered <= 0 {
		return 0
	}
	return float64(s.TotalWon) / float64(s.TotalWagered) * 100
}

// Summary — итог одного запуска движка.
type Summary struct {
	Wins         int
	Losses       int
	Aborted      int
	Net          int64
	FinalBalance int64
	FinalBet     int64
	Reason       StopReason
}

// Rounds — всего сыграно раундов.
func (s Summary) Rounds() int {
	return s.Wins + s.Losses + s.Aborted
}

// BetFor считает ставку от баланса: 0.025% баланса, но не меньше MinBet.
func BetFor(balance int64) int64 {
	bet := balance / betDivisor
	if bet < MinBet {
		return MinBet
	}
	return bet
}
