// Package config загружает конфигурацию фермы из переменных окружения.
// Файл .env подхватывается godotenv, если он есть, затем envconfig
// раскладывает переменные по полям структуры.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/delay"
)

// Config содержит ВСЕ настройки приложения.
type Config struct {
	// --- Telegram (MTProto) ---
	APIID   int    `envconfig:"API_ID" required:"true"`
	APIHash string `envconfig:"API_HASH" required:"true"`
	// Стартовый параметр мини-приложения (реферальный код)
	RefID string `envconfig:"REF_ID" default:"d3f52790-77b5-4809-a0ea-56b4e4ba1ee6"`

	// --- Сессии и аккаунты ---
	SessionsDir      string `envconfig:"SESSIONS_DIR" default:"sessions"`
	AccountsFile     string `envconfig:"ACCOUNTS_FILE" default:"accounts.yaml"`
	ProxiesFile      string `envconfig:"PROXIES_FILE" default:"proxies.txt"`
	UseProxyFromFile bool   `envconfig:"USE_PROXY_FROM_FILE" default:"true"`
	SessionsPerProxy int    `envconfig:"SESSIONS_PER_PROXY" default:"1"`

	// --- Цикл фермы (секунды) ---
	SessionStartDelay int `envconfig:"SESSION_START_DELAY" default:"360"`
	SleepTimeMin      int `envconfig:"SLEEP_TIME_MIN" default:"3600"`
	SleepTimeMax      int `envconfig:"SLEEP_TIME_MAX" default:"10800"`

	// --- Ставки ---
	EnableGambling     bool  `envconfig:"ENABLE_GAMBLING" default:"false"`
	MinGamblingBalance int64 `envconfig:"MIN_GAMBLING_BALANCE" default:"100000"`
	MaxGames           int   `envconfig:"MAX_GAMES" default:"100"`

	// --- Повторы и ограничение запросов ---
	RetryAttempts     int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryIncremental  bool          `envconfig:"RETRY_INCREMENTAL" default:"false"`
	RateLimitRequests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`
	RateLimitWindow   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m"`

	// --- Bot runtime ---
	// Сколько воркеров работает одновременно
	BotMaxWorkers int `envconfig:"BOT_MAX_WORKERS" default:"64"`

	// --- Application ---
	AppLogLevel  string `envconfig:"APP_LOG_LEVEL" default:"info"`
	DebugLogging bool   `envconfig:"DEBUG_LOGGING" default:"false"`
	AppTimezone  string `envconfig:"APP_TIMEZONE" default:"Europe/Moscow"`

	// --- Database ---
	// Без БД состояние сессий хранится в памяти и теряется при перезапуске.
	DBEnabled  bool   `envconfig:"DB_ENABLED" default:"false"`
	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"farm"`
	DBPassword string `envconfig:"DB_PASSWORD"`
	DBName     string `envconfig:"DB_NAME" default:"goats_farm"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"80"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// --- Уведомления ---
	NotifyBotToken string `envconfig:"NOTIFY_BOT_TOKEN"`
	NotifyChatID   int64  `envconfig:"NOTIFY_CHAT_ID"`
}

// DatabaseDSN возвращает строку подключения к PostgreSQL в формате DSN.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

// SleepWindow — границы паузы между циклами.
func (c *Config) SleepWindow() (time.Duration, time.Duration) {
	return delay.Seconds(c.SleepTimeMin), delay.Seconds(c.SleepTimeMax)
}

// StartDelay — верхняя граница задержки перед первым циклом.
func (c *Config) StartDelay() time.Duration {
	return delay.Seconds(c.SessionStartDelay)
}

// Location — часовой пояс для границ суток и расписания.
func (c *Config) Location() *time.Location {
	return common.LoadLocation(c.AppTimezone)
}

// LogLevel — уровень логов; DEBUG_LOGGING включает debug независимо от APP_LOG_LEVEL.
func (c *Config) LogLevel() string {
	if c.DebugLogging {
		return "debug"
	}
	return c.AppLogLevel
}

// NotifyEnabled — заданы ли токен и чат для уведомлений.
func (c *Config) NotifyEnabled() bool {
	return c.NotifyBotToken != "" && c.NotifyChatID != 0
}

func (c *Config) Validate() error {
	if c.APIID <= 0 || c.APIHash == "" {
		return fmt.Errorf("API_ID и API_HASH обязательны")
	}
	if c.SessionStartDelay < 0 {
		return fmt.Errorf("SESSION_START_DELAY должен быть >= 0")
	}
	if c.SleepTimeMin <= 0 || c.SleepTimeMax < c.SleepTimeMin {
		return fmt.Errorf("некорректные SLEEP_TIME_MIN/SLEEP_TIME_MAX")
	}
	if c.MaxGames <= 0 {
		return fmt.Errorf("MAX_GAMES должен быть > 0")
	}
	if c.MinGamblingBalance < 0 {
		return fmt.Errorf("MIN_GAMBLING_BALANCE должен быть >= 0")
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("RETRY_ATTEMPTS должен быть > 0")
	}
	if c.SessionsPerProxy <= 0 {
		return fmt.Errorf("SESSIONS_PER_PROXY должен быть > 0")
	}
	if c.BotMaxWorkers <= 0 {
		return fmt.Errorf("BOT_MAX_WORKERS должен быть > 0")
	}
	if c.DBEnabled {
		if c.DBPassword == "" {
			return fmt.Errorf("DB_PASSWORD обязателен при DB_ENABLED=true")
		}
		if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("некорректные DB_MIN_CONNS/DB_MAX_CONNS")
		}
	}
	if (c.NotifyBotToken == "") != (c.NotifyChatID == 0) {
		return fmt.Errorf("NOTIFY_BOT_TOKEN и NOTIFY_CHAT_ID задаются вместе")
	}
	return nil
}

// Load читает .env (если есть) и переменные окружения.
//
// Параметры:
//   - envFiles: пути к .env; пусто — ".env" в рабочей папке
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("не удалось прочитать .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
