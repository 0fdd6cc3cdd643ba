// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасный отчёт о сессиях
// и ежедневная сводка по ставкам.
package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/bot"
	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/features/gambling"
	"serotonyl.ru/goats-farm/internal/notify"
)

// StatsSource отдаёт накопленную статистику ставок сессии.
type StatsSource interface {
	GetStatsOrDefault(ctx context.Context, session string) *gambling.Stats
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron     *cron.Cron
	board    *bot.Board
	notifier notify.Notifier
	stats    StatsSource // nil — без БД
	loc      *time.Location
}

// NewScheduler создаёт планировщик в часовом поясе loc.
func NewScheduler(board *bot.Board, notifier notify.Notifier, stats StatsSource, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = common.LoadLocation("Europe/Moscow")
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}

	return &Scheduler{
		cron:     cron.New(cron.WithLocation(loc)),
		board:    board,
		notifier: notifier,
		stats:    stats,
		loc:      loc,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	// Отчёт о сессиях каждый час
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Отчёт о сессиях")
		if err := s.SendReport(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка отчёта")
		}
	}); err != nil {
		return fmt.Errorf("ошибка расписания отчёта: %w", err)
	}

	// Сводка по ставкам раз в сутки, только с БД
	if s.stats != nil {
		if _, err := s.cron.AddFunc("0 0 * * *", func() {
			log.Info("[CRON] Сводка по ставкам")
			if err := s.SendGamblingSummary(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка сводки")
			}
		}); err != nil {
			return fmt.Errorf("ошибка расписания сводки: %w", err)
		}
	}

	s.cron.Start()
	log.Infof("Планировщик задач запущен (%s)", s.loc)
	return nil
}

// Stop останавливает планировщик и ждёт текущие задачи.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// SendReport пишет отчёт о сессиях в лог и отправляет его в уведомления.
func (s *Scheduler) SendReport(ctx context.Context) error {
	report := FormatReport(s.board.Snapshot(), time.Now(), s.loc)
	log.Info(report)
	return s.notifier.Notify(ctx, report)
}

// SendGamblingSummary отправляет накопленную статистику ставок по каждой сессии.
func (s *Scheduler) SendGamblingSummary(ctx context.Context) error {
	statuses := s.board.Snapshot()
	stats := make([]gambling.Stats, 0, len(statuses))
	for _, st := range statuses {
		stats = append(stats, *s.stats.GetStatsOrDefault(ctx, st.Session))
	}
	return s.notifier.Notify(ctx, FormatGamblingSummary(stats))
}

// FormatReport собирает текст отчёта о сессиях.
func FormatReport(statuses []bot.Status, now time.Time, loc *time.Location) string {
	var b strings.Builder

	var total int64
	active := 0
	for _, st := range statuses {
		total += st.Balance
		if st.State != bot.StateStopped {
			active++
		}
	}

	fmt.Fprintf(&b, "📊 Отчёт на %s\n", now.In(loc).Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "В работе %d/%d, общий баланс %s\n", active, len(statuses), common.FormatNumber(total))

	for _, st := range statuses {
		fmt.Fprintf(&b, "\n• %s [%s] баланс %s, ставки %s, циклов %d",
			st.Session, st.State, common.FormatNumber(st.Balance),
			common.FormatPercent(st.GamblingProgress), st.Cycles)
		if !st.LastCycleAt.IsZero() {
			fmt.Fprintf(&b, ", последний цикл %s", st.LastCycleAt.In(loc).Format("15:04"))
		}
		if st.LastError != "" {
			fmt.Fprintf(&b, "\n  ошибка: %s", st.LastError)
		}
	}
	return b.String()
}

// FormatGamblingSummary собирает текст сводки по ставкам.
func FormatGamblingSummary(stats []gambling.Stats) string {
	var b strings.Builder
	b.WriteString("🎲 Ставки за всё время\n")

	for _, st := range stats {
		fmt.Fprintf(&b, "\n• %s: %d %s, поставлено %s, выиграно %s, итог %s, лучший выигрыш %s, RTP %s",
			st.Session, st.TotalRounds, common.PluralizeGames(int64(st.TotalRounds)),
			common.FormatNumber(st.TotalWagered), common.FormatNumber(st.TotalWon),
			common.FormatSigned(st.TotalWon-st.TotalWagered), common.FormatNumber(st.BiggestWin),
			common.FormatPercent(st.RTP()))
	}
	return b.String()
}
