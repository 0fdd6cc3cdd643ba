package bot

import (
	"sort"
	"sync"
	"time"
)

// State — состояние воркера.
type State string

const (
	StateStarting       State = "STARTING"
	StateAuthenticating State = "AUTHENTICATING"
	StateActiveCycle    State = "ACTIVE_CYCLE"
	StateSleeping       State = "SLEEPING"
	StateStopped        State = "STOPPED"
)

// Status — то, что видно об одном воркере снаружи.
type Status struct {
	Session          string
	State            State
	Balance          int64
	GamblingProgress float64
	Cycles           int
	LastCycleAt      time.Time
	LastError        string
	NextWakeAt       time.Time
}

// Board — состояния всех воркеров для отчётов. Воркеры пишут, планировщик читает.
type Board struct {
	mu    sync.RWMutex
	items map[string]*Status
}

func NewBoard() *Board {
	return &Board{items: make(map[string]*Status)}
}

// Update меняет статус сессии под блокировкой, создавая его при необходимости.
func (b *Board) Update(session string, fn func(s *Status)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.items[session]
	if !ok {
		st = &Status{Session: session}
		b.items[session] = st
	}
	fn(st)
}

func (b *Board) SetState(session string, state State) {
	b.Update(session, func(s *Status) { s.State = state })
}

// Get возвращает копию статуса.
func (b *Board) Get(session string) (Status, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	st, ok := b.items[session]
	if !ok {
		return Status{}, false
	}
	return *st, true
}

// Snapshot возвращает копии всех статусов, отсортированные по имени сессии.
func (b *Board) Snapshot() []Status {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]Status, 0, len(b.items))
	for _, st := range b.items {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session < out[j].Session })
	return out
}
