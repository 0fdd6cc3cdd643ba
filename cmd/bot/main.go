// Package main — точка входа фермы.
// Загружает конфигурацию, инициализирует приложение и запускает воркеры сессий.
// Поддерживает graceful shutdown по SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/goats-farm/internal/app"
	"serotonyl.ru/goats-farm/internal/common"
	"serotonyl.ru/goats-farm/internal/config"
)

func main() {
	// Настраиваем логирование
	setupLogging()

	log.Info("=== Ферма запускается ===")

	// Загружаем конфигурацию из .env и переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Не удалось загрузить конфигурацию")
	}

	// Устанавливаем уровень логирования из конфига
	level, err := log.ParseLevel(cfg.LogLevel())
	if err == nil {
		log.SetLevel(level)
	}

	// Контекст с отменой для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем приложение (БД, хранилища, воркеры)
	application, err := app.New(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("Не удалось инициализировать приложение")
	}
	defer application.Close()

	// Запускаем планировщик задач (cron)
	if err := application.Scheduler.Start(ctx); err != nil {
		log.WithError(err).Fatal("Не удалось запустить планировщик")
	}
	defer application.Scheduler.Stop()

	// Обрабатываем сигналы остановки (Ctrl+C, docker stop)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Запускаем воркеры в отдельной горутине
	done := make(chan error, 1)
	go func() {
		done <- application.Bot.Start(ctx)
	}()

	log.Info("=== Ферма работает ===")

	select {
	case sig := <-quit:
		log.Infof("Получен сигнал %s, останавливаемся...", sig)
		// Отменяем контекст — воркеры завершат текущий шаг и выйдут
		cancel()
		<-done
	case err := <-done:
		switch {
		case errors.Is(err, common.ErrNoSessions):
			log.Error("Сессии не найдены, запускать нечего")
		case err != nil:
			log.WithError(err).Error("Ферма остановилась с ошибкой")
		default:
			log.Info("Все сессии завершили работу")
		}
	}

	log.Info("=== Ферма остановлена ===")
}

// setupLogging настраивает формат логов.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
