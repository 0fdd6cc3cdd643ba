package gambling

import (
	"context"
	"net/http"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"serotonyl.ru/goats-farm/internal/api"
	"serotonyl.ru/goats-farm/internal/delay/delaytest"
)

// fakeAPI ведёт баланс как сервер. Поведение по умолчанию: ходы без бомб,
// cashout возвращает 2x ставки.
type fakeAPI struct {
	balance int64
	active  *api.GameState

	startFn            func(n int, loc int, bet int64) api.Result[api.GameState]
	continueFn         func(n int, loc int, gameID string) api.Result[api.GameState]
	omitCashoutBalance bool
	omitBombBalance    bool
	profileFault       bool

	startBets     []int64
	startLocs     []int
	continueGames []string
	cashouts      int
	profileCalls  int
	bets          map[string]int64
}

func newFake(balance int64) *fakeAPI {
	return &fakeAPI{balance: balance, bets: make(map[string]int64)}
}

func ptr(v int64) *int64 { return &v }

func (f *fakeAPI) GetProfile(ctx context.Context) (api.Result[api.Profile], error) {
	f.profileCalls++
	if f.profileFault {
		return api.Result[api.Profile]{Fault: &api.Fault{StatusCode: http.StatusInternalServerError}}, nil
	}
	return api.Result[api.Profile]{Value: api.Profile{Balance: f.balance}}, nil
}

func (f *fakeAPI) GetCatchingGame(ctx context.Context) (api.Result[api.CatchingGame], error) {
	return api.Result[api.CatchingGame]{Value: api.CatchingGame{Game: f.active}}, nil
}

func (f *fakeAPI) StartGame(ctx context.Context, loc int, bet int64) (api.Result[api.GameState], error) {
	n := len(f.startBets)
	f.startBets = append(f.startBets, bet)
	f.startLocs = append(f.startLocs, loc)
	if f.startFn != nil {
		if res := f.startFn(n, loc, bet); !res.OK() || res.Value.IsBomb || res.Value.ID != "" {
			if res.OK() && res.Value.IsBomb {
				f.balance -= bet
				res.Value.Balance = ptr(f.balance)
			}
			if res.OK() && res.Value.ID != "" {
				f.bets[res.Value.ID] = bet
			}
			return res, nil
		}
	}
	id := "g" + string(rune('A'+n%26))
	f.bets[id] = bet
	return api.Result[api.GameState]{Value: api.GameState{ID: id, BetAmount: bet}}, nil
}

func (f *fakeAPI) ContinueGame(ctx context.Context, loc int, gameID string) (api.Result[api.GameState], error) {
	n := len(f.continueGames)
	f.continueGames = append(f.continueGames, gameID)
	if f.continueFn != nil {
		res := f.continueFn(n, loc, gameID)
		if res.OK() && res.Value.IsBomb {
			f.balance -= f.bets[gameID]
			if !f.omitBombBalance {
				res.Value.Balance = ptr(f.balance)
			}
		}
		return res, nil
	}
	return api.Result[api.GameState]{Value: api.GameState{ID: gameID}}, nil
}

func (f *fakeAPI) CashoutGame(ctx context.Context, gameID string) (api.Result[api.GameState], error) {
	f.cashouts++
	bet := f.bets[gameID]
	f.balance += bet
	st := api.GameState{ID: gameID, IsCompleted: true, Reward: 2 * bet}
	if !f.omitCashoutBalance {
		st.Balance = ptr(f.balance)
	}
	return api.Result[api.GameState]{Value: st}, nil
}

func bomb() api.Result[api.GameState] {
	return api.Result[api.GameState]{Value: api.GameState{ID: "bomb", IsBomb: true}}
}

func testLogger() *log.Entry {
	logger, _ := test.NewNullLogger()
	return log.NewEntry(logger)
}

type memRecorder struct{ rounds []Round }

func (m *memRecorder) RecordRound(ctx context.Context, r Round) error {
	m.rounds = append(m.rounds, r)
	return nil
}

func TestBetFor(t *testing.T) {
	cases := map[int64]int64{
		0:         100,
		399_999:   100,
		400_000:   100,
		1_000_000: 250,
		1_000_500: 250,
		4_000_000: 1000,
	}
	for balance, want := range cases {
		if got := BetFor(balance); got != want {
			t.Errorf("BetFor(%d) = %d, want %d", balance, got, want)
		}
	}
}

func TestScenarioLossThenWin(t *testing.T) {
	fake := newFake(1_000_000)
	fake.startFn = func(n int, loc int, bet int64) api.Result[api.GameState] {
		if n == 0 {
			return bomb()
		}
		return api.Result[api.GameState]{}
	}
	rec := &memRecorder{}
	d := delaytest.New()
	e := NewEngine("alice", fake, d, rec, Config{MaxGames: 100, MinBalance: 100_000})

	sum, err := e.Play(context.Background(), 1_000_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}

	if len(fake.startBets) < 3 {
		t.Fatalf("starts = %v", fake.startBets)
	}
	if fake.startBets[0] != 250 {
		t.Errorf("initial bet = %d, want 250", fake.startBets[0])
	}
	if fake.startBets[1] != 500 {
		t.Errorf("bet after loss = %d, want 500", fake.startBets[1])
	}
	// после выигрыша: 999 750 + 500 = 1 000 250 → 250
	if fake.startBets[2] != BetFor(1_000_250) {
		t.Errorf("bet after win = %d, want %d", fake.startBets[2], BetFor(1_000_250))
	}

	// IntBetween в фейке возвращает нижнюю границу: 50 партий
	if sum.Wins != 50 || sum.Losses != 1 || sum.Reason != StopGamesDone {
		t.Errorf("summary = %+v", sum)
	}
	if sum.FinalBalance != fake.balance {
		t.Errorf("final balance = %d, server has %d", sum.FinalBalance, fake.balance)
	}
	if len(rec.rounds) != 51 || rec.rounds[0].Outcome != OutcomeLoss || rec.rounds[0].Session != "alice" {
		t.Errorf("recorded %d rounds, first %+v", len(rec.rounds), rec.rounds[0])
	}
}

func TestLocationsDistinct(t *testing.T) {
	fake := newFake(1_000_000)
	d := delaytest.New()
	e := NewEngine("alice", fake, d, nil, Config{MaxGames: 2, MinBalance: 0})

	locs := e.pickLocations()
	if len(locs) != MovesPerRound || locs[0] == locs[1] {
		t.Fatalf("locations = %v", locs)
	}
	for _, l := range locs {
		if l < 0 || l >= BoardSize {
			t.Fatalf("location out of board: %d", l)
		}
	}
}

func TestBetDoublesUntilInsufficient(t *testing.T) {
	fake := newFake(350)
	fake.startFn = func(n int, loc int, bet int64) api.Result[api.GameState] { return bomb() }
	e := NewEngine("alice", fake, delaytest.New(), nil, Config{MaxGames: 10, MinBalance: 0})

	sum, err := e.Play(context.Background(), 350, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	// 350 → ставка 100 → 250 → ставка 200 → 50 → ставка 400 > 50
	if len(fake.startBets) != 2 || fake.startBets[0] != 100 || fake.startBets[1] != 200 {
		t.Fatalf("starts = %v", fake.startBets)
	}
	if sum.Reason != StopInsufficient || sum.Losses != 2 || sum.FinalBet != 400 {
		t.Errorf("summary = %+v", sum)
	}
	if fake.cashouts != 0 {
		t.Error("no cashout after a bomb on start")
	}
}

func TestFloorStopsIndependentOfGamesLeft(t *testing.T) {
	fake := newFake(100_000)
	e := NewEngine("alice", fake, delaytest.New(), nil, Config{MaxGames: 100, MinBalance: 100_000})

	sum, err := e.Play(context.Background(), 100_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sum.Reason != StopFloor || len(fake.startBets) != 0 {
		t.Fatalf("summary = %+v, starts = %v", sum, fake.startBets)
	}

	// баланс падает ниже порога после проигрыша
	fake = newFake(100_050)
	fake.startFn = func(n int, loc int, bet int64) api.Result[api.GameState] { return bomb() }
	e = NewEngine("alice", fake, delaytest.New(), nil, Config{MaxGames: 100, MinBalance: 100_000})
	sum, _ = e.Play(context.Background(), 100_050, testLogger())
	if sum.Reason != StopFloor || sum.Losses != 1 {
		t.Fatalf("summary = %+v", sum)
	}
}

func TestLossOnContinueDoublesBet(t *testing.T) {
	fake := newFake(1_000_000)
	fake.continueFn = func(n int, loc int, gameID string) api.Result[api.GameState] {
		if n == 0 {
			return api.Result[api.GameState]{Value: api.GameState{ID: gameID, IsBomb: true}}
		}
		return api.Result[api.GameState]{Value: api.GameState{ID: gameID}}
	}
	e := NewEngine("alice", fake, delaytest.New(), nil, Config{MaxGames: 2, MinBalance: 0})

	sum, err := e.Play(context.Background(), 1_000_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(fake.startBets) != 2 || fake.startBets[1] != 2*fake.startBets[0] {
		t.Fatalf("starts = %v", fake.startBets)
	}
	if sum.Losses != 1 || sum.Wins != 1 || fake.cashouts != 1 {
		t.Errorf("summary = %+v, cashouts = %d", sum, fake.cashouts)
	}
}

func TestCashoutCompletedAbortsRound(t *testing.T) {
	fake := newFake(1_000_000)
	fake.continueFn = func(n int, loc int, gameID string) api.Result[api.GameState] {
		return api.Result[api.GameState]{Fault: &api.Fault{StatusCode: 400, Message: "Cashout completed"}}
	}
	rec := &memRecorder{}
	// MaxGames 2 → IntBetween(1, 2) → 1 партия
	e := NewEngine("alice", fake, delaytest.New(), rec, Config{MaxGames: 2, MinBalance: 0})

	sum, err := e.Play(context.Background(), 1_000_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sum.Aborted != 1 || sum.Wins != 0 || sum.Losses != 0 || fake.cashouts != 0 {
		t.Errorf("summary = %+v, cashouts = %d", sum, fake.cashouts)
	}
	if len(rec.rounds) != 1 || rec.rounds[0].Outcome != OutcomeAborted {
		t.Errorf("rounds = %+v", rec.rounds)
	}
}

func TestTooManyRequestsRetriedNotLost(t *testing.T) {
	fake := newFake(1_000_000)
	fake.startFn = func(n int, loc int, bet int64) api.Result[api.GameState] {
		if n < 2 {
			return api.Result[api.GameState]{Fault: &api.Fault{StatusCode: http.StatusTooManyRequests}}
		}
		return api.Result[api.GameState]{}
	}
	d := delaytest.New()
	e := NewEngine("alice", fake, d, nil, Config{MaxGames: 2, MinBalance: 0, TooManyBackoff: time.Second})

	sum, err := e.Play(context.Background(), 1_000_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if sum.Losses != 0 || sum.Wins != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if len(fake.startBets) != 3 || fake.startBets[2] != 250 {
		t.Errorf("starts = %v", fake.startBets)
	}
	if d.Count(time.Second) != 1 || d.Count(2*time.Second) != 1 {
		t.Errorf("backoff sleeps = %v", d.Sleeps())
	}
}

func TestTooManyRequestsBounded(t *testing.T) {
	fake := newFake(1_000_000)
	fake.startFn = func(n int, loc int, bet int64) api.Result[api.GameState] {
		return api.Result[api.GameState]{Fault: &api.Fault{StatusCode: http.StatusTooManyRequests}}
	}
	e := NewEngine("alice", fake, delaytest.New(), nil, Config{MaxGames: 2, TooManyAttempts: 3})

	sum, err := e.Play(context.Background(), 1_000_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(fake.startBets) != 3 || sum.Reason != StopServerFault || sum.Losses != 0 {
		t.Errorf("starts = %v, summary = %+v", fake.startBets, sum)
	}
}

func TestResumesActiveGame(t *testing.T) {
	fake := newFake(1_000_000)
	fake.active = &api.GameState{ID: "old", BetAmount: 800}
	fake.bets["old"] = 800
	e := NewEngine("alice", fake, delaytest.New(), nil, Config{MaxGames: 2, MinBalance: 0})

	sum, err := e.Play(context.Background(), 1_000_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(fake.startBets) != 0 {
		t.Errorf("must not start a new game: %v", fake.startBets)
	}
	if len(fake.continueGames) != 1 || fake.continueGames[0] != "old" {
		t.Errorf("continued = %v", fake.continueGames)
	}
	if sum.Wins != 1 || sum.Net != 800 {
		t.Errorf("summary = %+v", sum)
	}
	if sum.FinalBet != BetFor(1_000_800) {
		t.Errorf("final bet = %d", sum.FinalBet)
	}
}

func TestBalanceFallsBackToProfile(t *testing.T) {
	fake := newFake(1_000_000)
	fake.omitCashoutBalance = true
	e := NewEngine("alice", fake, delaytest.New(), nil, Config{MaxGames: 2, MinBalance: 0})

	sum, err := e.Play(context.Background(), 1_000_000, testLogger())
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if fake.profileCalls != 1 || sum.FinalBalance != 1_000_250 {
		t.Errorf("profile calls = %d, balance = %d", fake.profileCalls, sum.FinalBalance)
	}
}

func TestLossOnContinueWithoutBalanceSubtractsBet(t *testing.T) {
	fake := newFake(1_000_000)
	fake.omitBombBalance = true
	fake.profileFault = true
	fake.continueFn = func(n int, loc int, gameID string) api.Result[api.GameState] {
		if n == 0 {
			return bomb()
		}
		return api.Result[api.GameState]{Value: api.GameState{ID: gameID}}
	}
	rec := &memRecorder{}
	e := NewEngine("alice", fake, delaytest.New(), rec, Config{MaxGames: 2, MinBalance: 0})

	if _, err := e.Play(context.Background(), 1_000_000, testLogger()); err != nil {
		t.Fatalf("Play: %v", err)
	}

	if fake.profileCalls == 0 {
		t.Fatal("profile was not asked for the balance")
	}
	if len(rec.rounds) == 0 || rec.rounds[0].Outcome != OutcomeLoss {
		t.Fatalf("rounds = %+v", rec.rounds)
	}
	if got := rec.rounds[0].BalanceAfter; got != 999_750 {
		t.Errorf("balance after loss = %d, want 999750", got)
	}
	if len(fake.startBets) < 2 || fake.startBets[1] != 500 {
		t.Errorf("bets = %v, want doubled 500 after the loss", fake.startBets)
	}
}
