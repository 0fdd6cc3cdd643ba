package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/api"
	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/delay"
	"serotonyl.ru/goats-farm/internal/features/checkin"
	"serotonyl.ru/goats-farm/internal/features/cinema"
	"serotonyl.ru/goats-farm/internal/features/gambling"
	"serotonyl.ru/goats-farm/internal/features/missions"
	"serotonyl.ru/goats-farm/internal/features/sessions"
	"serotonyl.ru/goats-farm/internal/lock"
	"serotonyl.ru/goats-farm/internal/notify"
	"serotonyl.ru/goats-farm/internal/retry"
)

// InitDataProvider отдаёт init data мини-приложения от имени сессии.
// Может ждать flood wait. common.ErrInvalidSession — сессия мертва.
type InitDataProvider interface {
	InitData(ctx context.Context) (string, error)
}

// GameAPI — все вызовы игры, которые делает воркер.
type GameAPI interface {
	Login(ctx context.Context, initData string) (api.Result[api.LoginReply], error)
	GetPassInfo(ctx context.Context) (api.Result[api.PassInfo], error)
	missions.API
	checkin.API
	cinema.API
	gambling.API
}

// ProxyChecker проверяет прокси сессии перед циклом.
type ProxyChecker interface {
	HasProxy() bool
	CheckProxy(ctx context.Context) (string, error)
}

// WorkerConfig — тайминги воркера.
type WorkerConfig struct {
	// StartDelay — верхняя граница случайной задержки перед первым циклом
	StartDelay time.Duration
	SleepMin   time.Duration
	SleepMax   time.Duration

	// AuthRetryDelay — пауза после неудачной авторизации
	AuthRetryDelay time.Duration
	// ProxyRetryDelay — пауза после неудачной проверки прокси
	ProxyRetryDelay time.Duration
	CooldownMin     time.Duration
	CooldownMax     time.Duration

	// Сколько ещё держать блокировку сессии после запроса init data
	LockCooldownMin time.Duration
	LockCooldownMax time.Duration

	TokenTTLMin time.Duration
	TokenTTLMax time.Duration

	EnableGambling bool
	Gambling       gambling.Config
	Location       *time.Location
}

// DefaultWorkerConfig — тайминги по умолчанию.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		StartDelay:      360 * time.Second,
		SleepMin:        3600 * time.Second,
		SleepMax:        10800 * time.Second,
		AuthRetryDelay:  300 * time.Second,
		ProxyRetryDelay: 300 * time.Second,
		CooldownMin:     60 * time.Second,
		CooldownMax:     120 * time.Second,
		LockCooldownMin: 1 * time.Second,
		LockCooldownMax: 3 * time.Second,
		TokenTTLMin:     3500 * time.Second,
		TokenTTLMax:     3600 * time.Second,
	}
}

func (c WorkerConfig) withDefaults() WorkerConfig {
	def := DefaultWorkerConfig()
	if c.SleepMin <= 0 {
		c.SleepMin = def.SleepMin
	}
	if c.SleepMax < c.SleepMin {
		c.SleepMax = c.SleepMin
	}
	if c.AuthRetryDelay <= 0 {
		c.AuthRetryDelay = def.AuthRetryDelay
	}
	if c.ProxyRetryDelay <= 0 {
		c.ProxyRetryDelay = def.ProxyRetryDelay
	}
	if c.CooldownMin <= 0 {
		c.CooldownMin, c.CooldownMax = def.CooldownMin, def.CooldownMax
	}
	if c.CooldownMax < c.CooldownMin {
		c.CooldownMax = c.CooldownMin
	}
	if c.LockCooldownMin <= 0 {
		c.LockCooldownMin, c.LockCooldownMax = def.LockCooldownMin, def.LockCooldownMax
	}
	if c.LockCooldownMax < c.LockCooldownMin {
		c.LockCooldownMax = c.LockCooldownMin
	}
	if c.TokenTTLMin <= 0 {
		c.TokenTTLMin, c.TokenTTLMax = def.TokenTTLMin, def.TokenTTLMax
	}
	if c.TokenTTLMax < c.TokenTTLMin {
		c.TokenTTLMax = c.TokenTTLMin
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return c
}

// Deps — зависимости воркера. Обязательны Session, Provider и API.
type Deps struct {
	Session  *Session
	Provider InitDataProvider
	API      GameAPI
	Proxy    ProxyChecker // nil — без прокси
	Locker   lock.Locker
	Sessions *sessions.Service
	Recorder gambling.RoundRecorder
	Notifier notify.Notifier
	Board    *Board
	Delay    delay.Provider
	Now      func() time.Time
}

// Worker крутит цикл фермы одной сессии.
type Worker struct {
	name     string
	session  *Session
	provider InitDataProvider
	api      GameAPI
	proxy    ProxyChecker
	locker   lock.Locker
	sessions *sessions.Service
	notifier notify.Notifier
	board    *Board
	delay    delay.Provider
	now      func() time.Time
	cfg      WorkerConfig
	logger   *log.Entry

	missions *missions.Service
	checkin  *checkin.Service
	cinema   *cinema.Service
	engine   *gambling.Engine
}

// NewWorker собирает воркер. Необязательные зависимости получают значения
// по умолчанию: локальная блокировка, сессии в памяти, без уведомлений.
func NewWorker(d Deps, cfg WorkerConfig) *Worker {
	cfg = cfg.withDefaults()
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Sessions == nil {
		d.Sessions = sessions.NewService(sessions.NewMemoryStore())
	}
	if d.Notifier == nil {
		d.Notifier = notify.Nop{}
	}
	if d.Board == nil {
		d.Board = NewBoard()
	}
	if d.Delay == nil {
		d.Delay = delay.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	name := d.Session.Name()
	w := &Worker{
		name:     name,
		session:  d.Session,
		provider: d.Provider,
		proxy:    d.Proxy,
		locker:   d.Locker,
		sessions: d.Sessions,
		notifier: d.Notifier,
		board:    d.Board,
		delay:    d.Delay,
		now:      d.Now,
		cfg:      cfg,
		logger:   log.WithField("session", name),
	}

	// Все вызовы игры идут через проверку токена
	guarded := &tokenGuard{api: d.API, w: w}
	w.api = guarded
	w.missions = missions.NewService(guarded, d.Delay)
	w.checkin = checkin.NewService(guarded, cfg.Location, d.Now)
	w.cinema = cinema.NewService(guarded, d.Delay)
	w.engine = gambling.NewEngine(name, guarded, d.Delay, d.Recorder, cfg.Gambling)
	w.board.SetState(name, StateStarting)
	return w
}

// Name — имя сессии воркера.
func (w *Worker) Name() string { return w.name }

func (w *Worker) setState(s State) {
	w.board.SetState(w.name, s)
}

// Run крутит цикл до отмены контекста или смерти сессии.
//
// Возвращает nil при отмене контекста и ошибку с common.ErrInvalidSession,
// если сессия недействительна.
func (w *Worker) Run(ctx context.Context) error {
	w.setState(StateStarting)
	start := w.delay.Between(0, w.cfg.StartDelay)
	w.logger.WithField("delay", start.Round(time.Second).String()).Info("Сессия запустится после задержки")
	if err := w.delay.Sleep(ctx, start); err != nil {
		return w.stop()
	}

	for {
		cycleID := uuid.New()
		logger := w.logger.WithField("cycle_id", cycleID.String())

		err := w.cycle(ctx, cycleID, logger)
		if ctx.Err() != nil {
			return w.stop()
		}

		var pause time.Duration
		switch {
		case err == nil:
			pause = w.delay.Between(w.cfg.SleepMin, w.cfg.SleepMax)
			logger.WithField("sleep", pause.Round(time.Second).String()).Info("Цикл завершён, спим")
		case errors.Is(err, common.ErrInvalidSession):
			return w.fatal(ctx, err)
		case errors.Is(err, common.ErrAuthFailed):
			pause = w.cfg.AuthRetryDelay
			logger.WithError(err).Warn("Авторизация не удалась, повтор позже")
		case errors.Is(err, common.ErrProxyUnavailable):
			pause = w.cfg.ProxyRetryDelay
			logger.WithError(err).Warn("Прокси не отвечает, повтор позже")
		default:
			pause = w.delay.Between(w.cfg.CooldownMin, w.cfg.CooldownMax)
			logger.WithError(err).WithField("cooldown", pause.String()).Error("Ошибка цикла")
		}

		wake := w.now().Add(pause)
		w.board.Update(w.name, func(s *Status) {
			s.State = StateSleeping
			s.NextWakeAt = wake
			if err != nil {
				s.LastError = err.Error()
			}
		})
		if err := w.delay.Sleep(ctx, pause); err != nil {
			return w.stop()
		}
	}
}

func (w *Worker) stop() error {
	w.setState(StateStopped)
	w.logger.Info("Воркер остановлен")
	return nil
}

// fatal останавливает воркер навсегда: сессия помечается недействительной.
func (w *Worker) fatal(ctx context.Context, cause error) error {
	w.session.Invalidate()
	w.board.Update(w.name, func(s *Status) {
		s.State = StateStopped
		s.LastError = cause.Error()
	})
	w.logger.WithError(cause).Error("Сессия недействительна, воркер остановлен")

	if err := w.sessions.Invalidate(ctx, w.name, cause); err != nil {
		w.logger.WithError(err).Warn("Не удалось пометить сессию")
	}
	text := fmt.Sprintf("⚠️ Сессия %s недействительна и остановлена: %v", w.name, cause)
	if err := w.notifier.Notify(ctx, text); err != nil {
		w.logger.WithError(err).Warn("Не удалось отправить уведомление")
	}
	return cause
}

// cycle — один проход: проверка прокси, авторизация, профиль, задания,
// чек-ин, фильмы и ставки.
func (w *Worker) cycle(ctx context.Context, cycleID uuid.UUID, logger *log.Entry) error {
	if w.proxy != nil && w.proxy.HasProxy() {
		ip, err := w.proxy.CheckProxy(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", common.ErrProxyUnavailable, err)
		}
		logger.WithField("ip", ip).Debug("Прокси работает")
	}

	if w.session.Expired(w.now()) {
		w.setState(StateAuthenticating)
		if err := w.authenticate(ctx, logger); err != nil {
			return err
		}
	}

	w.setState(StateActiveCycle)

	balance, err := w.balance(ctx)
	if err != nil {
		return err
	}

	pass, passOK, err := w.passInfo(ctx, logger)
	if err != nil {
		return err
	}
	progress := pass.GamblingProgress()

	logger.WithFields(log.Fields{
		"balance":  common.FormatNumber(balance),
		"progress": common.FormatPercent(progress),
	}).Info("Профиль получен")

	snap := sessions.Snapshot{Session: w.name, CycleID: cycleID, Balance: balance, PassPoints: pass.Point, GamblingProgress: progress}
	if err := w.sessions.SaveSnapshot(ctx, snap); err != nil {
		logger.WithError(err).Warn("Не удалось сохранить снимок баланса")
	}

	if sum, err := w.missions.Run(ctx, logger); err != nil {
		return fmt.Errorf("задания: %w", err)
	} else if sum.Claimed > 0 {
		logger.WithFields(log.Fields{"claimed": sum.Claimed, "reward": sum.Reward}).Info("Задания выполнены")
	}

	if _, err := w.checkin.Run(ctx, logger); err != nil {
		return fmt.Errorf("чек-ин: %w", err)
	}

	if sum, err := w.cinema.Run(ctx, logger); err != nil {
		return fmt.Errorf("фильмы: %w", err)
	} else if sum.Watched > 0 {
		logger.WithFields(log.Fields{"watched": sum.Watched, "reward": sum.Reward}).Info("Фильмы просмотрены")
	}

	if w.cfg.EnableGambling {
		switch {
		case !passOK:
			logger.Debug("Прогресс ставок неизвестен, ставки пропускаем")
		case progress >= 100:
			logger.Info("Прогресс ставок 100%, ставки пропускаем")
		default:
			// Баланс мог вырасти за задания и фильмы
			fresh, err := w.balance(ctx)
			switch {
			case err == nil:
				balance = fresh
			case retry.ShouldPropagate(err):
				return fmt.Errorf("ставки: %w", err)
			}
			sum, err := w.engine.Play(ctx, balance, logger)
			if err != nil {
				return fmt.Errorf("ставки: %w", err)
			}
			balance = sum.FinalBalance
		}
	}

	now := w.now()
	w.board.Update(w.name, func(s *Status) {
		s.Balance = balance
		s.GamblingProgress = progress
		s.Cycles++
		s.LastCycleAt = now
		s.LastError = ""
	})
	return nil
}

// authenticate получает init data под блокировкой сессии и меняет её на access token.
func (w *Worker) authenticate(ctx context.Context, logger *log.Entry) error {
	initData, err := w.fetchInitData(ctx)
	if err != nil {
		if errors.Is(err, common.ErrInvalidSession) || ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: init data: %w", common.ErrAuthFailed, err)
	}

	res, err := w.api.Login(ctx, initData)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: логин: %w", common.ErrAuthFailed, err)
	}
	if !res.OK() {
		if res.Fault.Banned() {
			return fmt.Errorf("%w: %s", common.ErrInvalidSession, res.Fault)
		}
		return fmt.Errorf("%w: логин: %s", common.ErrAuthFailed, res.Fault)
	}

	token := res.Value.AccessToken()
	if token == "" {
		return fmt.Errorf("%w: %w", common.ErrAuthFailed, common.ErrNoAccessToken)
	}

	ttl := w.delay.Between(w.cfg.TokenTTLMin, w.cfg.TokenTTLMax)
	w.session.Refresh(token, w.now(), ttl)
	logger.WithField("ttl", ttl.String()).Info("Авторизация прошла")

	if _, err := w.sessions.RecordLogin(ctx, w.name, initData, logger); err != nil {
		logger.WithError(err).Warn("Не удалось записать логин")
	}
	return nil
}

// fetchInitData держит блокировку сессии на время запроса и ещё 1–3 секунды после.
func (w *Worker) fetchInitData(ctx context.Context) (string, error) {
	unlock, err := w.locker.Lock(ctx, w.name)
	if err != nil {
		return "", err
	}
	defer unlock()

	initData, err := w.provider.InitData(ctx)
	pause := w.delay.Between(w.cfg.LockCooldownMin, w.cfg.LockCooldownMax)
	if serr := w.delay.Sleep(ctx, pause); serr != nil && err == nil {
		return "", serr
	}
	return initData, err
}

// balance читает баланс из профиля. 401 сбрасывает токен.
func (w *Worker) balance(ctx context.Context) (int64, error) {
	res, err := w.api.GetProfile(ctx)
	if err != nil {
		return 0, fmt.Errorf("профиль: %w", err)
	}
	if !res.OK() {
		if res.Fault.Unauthorized() {
			w.session.Invalidate()
		}
		return 0, fmt.Errorf("профиль: %s", res.Fault)
	}
	return res.Value.Balance, nil
}

// passInfo читает прогресс ставок. Ошибку отдаёт, только если её нужно поднять в цикл.
func (w *Worker) passInfo(ctx context.Context, logger *log.Entry) (api.PassInfo, bool, error) {
	res, err := w.api.GetPassInfo(ctx)
	if err != nil {
		if retry.ShouldPropagate(err) {
			return api.PassInfo{}, false, fmt.Errorf("pass: %w", err)
		}
		logger.WithError(err).Warn("Не удалось получить pass")
		return api.PassInfo{}, false, nil
	}
	if !res.OK() {
		logger.WithField("fault", res.Fault.String()).Warn("Сервер не отдал pass")
		return api.PassInfo{}, false, nil
	}
	return res.Value, true, nil
}
