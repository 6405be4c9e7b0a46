// Package app собирает зависимости сервера и утилиты администрирования.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/config"
	"github.com/mmeshcher/creditbook/internal/notify"
	"github.com/mmeshcher/creditbook/internal/otp"
	"github.com/mmeshcher/creditbook/internal/reminder"
	"github.com/mmeshcher/creditbook/internal/repository"
	"github.com/mmeshcher/creditbook/internal/service"
)

// Deps инициализированные зависимости процесса.
type Deps struct {
	Repo       *repository.PostgresRepository
	Redis      *redis.Client
	Dispatcher *notify.Dispatcher
	Service    *service.Service
	Reminders  *reminder.Job
}

// Build подключается к PostgreSQL (с применением миграций) и Redis и собирает сервис.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Deps, error) {
	repo, err := repository.NewPostgresRepository(cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("database initialization: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = repo.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	dispatcher, err := NewDispatcher(ctx, cfg, logger)
	if err != nil {
		_ = repo.Close()
		_ = rdb.Close()
		return nil, err
	}

	svc := service.NewService(repo, otp.NewManager(otp.NewRedisStore(rdb)), dispatcher, logger, service.Config{
		Region:   cfg.DefaultRegion,
		TestMode: cfg.TestMode,
	})
	dispatcher.OnUnregistered(svc.ForgetDevice)

	return &Deps{
		Repo:       repo,
		Redis:      rdb,
		Dispatcher: dispatcher,
		Service:    svc,
		Reminders:  reminder.NewJob(repo, dispatcher, reminder.NewRedisLocker(rdb), logger),
	}, nil
}

// Close освобождает соединения.
func (d *Deps) Close() {
	_ = d.Service.Close()
	_ = d.Redis.Close()
}

// NewDispatcher регистрирует отправителей по каналам. Без реквизитов или в
// тестовом режиме уведомления пишутся в лог.
func NewDispatcher(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*notify.Dispatcher, error) {
	d := notify.NewDispatcher(logger, cfg.NotifyTimeout)
	logSender := notify.NewLogSender(logger)

	if cfg.WhatsAppConfigured() {
		d.Register(notify.ChannelWhatsApp, notify.NewWhatsAppClient(
			cfg.WhatsAppAPIURL, cfg.WhatsAppPhoneNumberID, cfg.WhatsAppAccessToken, cfg.NotifyTimeout))
	} else {
		d.Register(notify.ChannelWhatsApp, logSender)
	}

	if cfg.FCMConfigured() {
		fcm, err := notify.NewFCMClientFromCredentials(ctx, cfg.FCMProjectID, cfg.FCMCredentialsFile, cfg.NotifyTimeout)
		if err != nil {
			return nil, fmt.Errorf("fcm client: %w", err)
		}
		d.Register(notify.ChannelPush, fcm)
	} else {
		d.Register(notify.ChannelPush, logSender)
	}

	return d, nil
}
