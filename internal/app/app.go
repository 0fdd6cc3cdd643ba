// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул (если включён), хранилища, уведомления,
// реестр аккаунтов, фабрику воркеров и собирает всё в один объект Bot.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/accounts"
	"serotonyl.ru/goats-farm/internal/api"
	"serotonyl.ru/goats-farm/internal/bot"
	"serotonyl.ru/goats-farm/internal/bot/filters"
	"serotonyl.ru/goats-farm/internal/config"
	"serotonyl.ru/goats-farm/internal/db/postgres"
	"serotonyl.ru/goats-farm/internal/delay"
	"serotonyl.ru/goats-farm/internal/features/gambling"
	"serotonyl.ru/goats-farm/internal/features/sessions"
	"serotonyl.ru/goats-farm/internal/jobs"
	"serotonyl.ru/goats-farm/internal/lock"
	"serotonyl.ru/goats-farm/internal/middleware"
	"serotonyl.ru/goats-farm/internal/notify"
	"serotonyl.ru/goats-farm/internal/retry"
	"serotonyl.ru/goats-farm/internal/telegram"
	"serotonyl.ru/goats-farm/internal/transport"
)

// App содержит все компоненты приложения.
type App struct {
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool // nil, если DB_ENABLED=false
	Limiter   *middleware.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных (необязательна) ===
	var (
		pool        *pgxpool.Pool
		store       sessions.Store = sessions.NewMemoryStore()
		locker      lock.Locker    = lock.NewLocal()
		recorder    gambling.RoundRecorder
		statsSource jobs.StatsSource
	)
	if cfg.DBEnabled {
		var err error
		pool, err = postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		if err := runMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}

		// === 2. Репозитории ===
		gambleRepo := gambling.NewRepository(pool)
		store = sessions.NewRepository(pool)
		locker = postgres.NewAdvisoryLocker(pool)
		recorder = gambleRepo
		statsSource = gambleRepo
	} else {
		log.Info("БД выключена, состояние сессий хранится в памяти")
	}

	// === 3. Сервисы ===
	sessionService := sessions.NewService(store)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.NotifyEnabled() {
		tg, err := notify.NewTelegram(cfg.NotifyBotToken, cfg.NotifyChatID)
		if err != nil {
			closePool(pool)
			return nil, err
		}
		notifier = tg
	}

	// === 4. Аккаунты и прокси ===
	registry, err := accounts.Load(cfg.AccountsFile)
	if err != nil {
		closePool(pool)
		return nil, err
	}
	var proxies []string
	if cfg.UseProxyFromFile {
		if proxies, err = accounts.LoadProxies(cfg.ProxiesFile); err != nil {
			closePool(pool)
			return nil, err
		}
		log.WithField("count", len(proxies)).Info("Прокси загружены")
	}

	// === 5. Общие ресурсы воркеров ===
	rnd := delay.New()
	board := bot.NewBoard()
	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	endpoints := api.DefaultEndpoints()

	policy := retry.Default(transport.IsTransient)
	policy.Attempts = cfg.RetryAttempts
	policy.Incremental = cfg.RetryIncremental

	sleepMin, sleepMax := cfg.SleepWindow()
	workerCfg := bot.DefaultWorkerConfig()
	workerCfg.StartDelay = cfg.StartDelay()
	workerCfg.SleepMin = sleepMin
	workerCfg.SleepMax = sleepMax
	workerCfg.EnableGambling = cfg.EnableGambling
	workerCfg.Gambling = gambling.Config{MaxGames: cfg.MaxGames, MinBalance: cfg.MinGamblingBalance}
	workerCfg.Location = cfg.Location()

	// === 6. Фабрика воркеров ===
	factory := func(acc accounts.Account) (*bot.Worker, error) {
		tr, err := transport.New(transport.Options{
			Session: acc.Session,
			Proxy:   acc.Proxy,
			Timeout: 30 * time.Second,
			Limiter: limiter,
		})
		if err != nil {
			return nil, fmt.Errorf("транспорт: %w", err)
		}

		provider, err := telegram.NewProvider(telegram.Options{
			APIID:       cfg.APIID,
			APIHash:     cfg.APIHash,
			SessionPath: accounts.SessionPath(cfg.SessionsDir, acc.Session),
			Proxy:       acc.Proxy,
			StartParam:  cfg.RefID,
			Delay:       rnd,
		})
		if err != nil {
			return nil, fmt.Errorf("провайдер init data: %w", err)
		}

		session := bot.NewSession(acc.Session)
		client := api.NewClient(tr, endpoints, api.BaseHeaders(acc.UserAgent), session, policy)

		return bot.NewWorker(bot.Deps{
			Session:  session,
			Provider: provider,
			API:      client,
			Proxy:    tr,
			Locker:   locker,
			Sessions: sessionService,
			Recorder: recorder,
			Notifier: notifier,
			Board:    board,
			Delay:    rnd,
		}, workerCfg), nil
	}

	// === 7. Фильтры ===
	sessionFilter := filters.NewSessionFilter(registry, sessionService)

	// === 8. Собираем мультиплексор ===
	b := bot.New(
		bot.Options{
			SessionsDir:      cfg.SessionsDir,
			MaxWorkers:       cfg.BotMaxWorkers,
			Proxies:          proxies,
			SessionsPerProxy: cfg.SessionsPerProxy,
		},
		registry, sessionFilter, factory, board, rnd,
	)

	// === 9. Планировщик задач ===
	scheduler := jobs.NewScheduler(board, notifier, statsSource, cfg.Location())

	return &App{
		Bot:       b,
		Scheduler: scheduler,
		DB:        pool,
		Limiter:   limiter,
	}, nil
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	a.Limiter.Close()
	closePool(a.DB)
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	applied, err := postgres.Migrate(ctx, pool, migrations)
	if err != nil {
		return err
	}
	log.Infof("Миграции применены: %d новых из %d", applied, len(migrations))
	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.
var migrations = []postgres.Migration{
	{Version: 1, Name: "farm_sessions", SQL: migration001Sessions},
	{Version: 2, Name: "balance_snapshots", SQL: migration002Snapshots},
	{Version: 3, Name: "gamble", SQL: migration003Gamble},
}

var migration001Sessions = `
CREATE TABLE IF NOT EXISTS farm_sessions (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) UNIQUE NOT NULL,
    tg_user_id BIGINT NOT NULL DEFAULT 0,
    is_invalid BOOLEAN NOT NULL DEFAULT FALSE,
    invalid_reason TEXT NOT NULL DEFAULT '',
    balance BIGINT NOT NULL DEFAULT 0,
    first_run_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    last_login_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_farm_sessions_tg_user_id ON farm_sessions(tg_user_id);
`

var migration002Snapshots = `
CREATE TABLE IF NOT EXISTS balance_snapshots (
    id BIGSERIAL PRIMARY KEY,
    session_name VARCHAR(255) NOT NULL,
    cycle_id UUID NOT NULL,
    balance BIGINT NOT NULL,
    pass_points BIGINT NOT NULL DEFAULT 0,
    gambling_progress DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_balance_snapshots_session ON balance_snapshots(session_name, created_at DESC);
`

var migration003Gamble = `
CREATE TABLE IF NOT EXISTS gamble_rounds (
    id BIGSERIAL PRIMARY KEY,
    session_name VARCHAR(255) NOT NULL,
    game_id VARCHAR(64) NOT NULL DEFAULT '',
    bet_amount BIGINT NOT NULL,
    reward BIGINT NOT NULL DEFAULT 0,
    outcome VARCHAR(16) NOT NULL,
    balance_after BIGINT NOT NULL DEFAULT 0,
    locations JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_gamble_rounds_session ON gamble_rounds(session_name, created_at DESC);
CREATE TABLE IF NOT EXISTS gamble_stats (
    id BIGSERIAL PRIMARY KEY,
    session_name VARCHAR(255) UNIQUE NOT NULL,
    total_rounds INTEGER NOT NULL DEFAULT 0,
    total_wagered BIGINT NOT NULL DEFAULT 0,
    total_won BIGINT NOT NULL DEFAULT 0,
    biggest_win BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
