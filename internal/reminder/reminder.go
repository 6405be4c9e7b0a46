// Package reminder рассылает напоминания о приближающихся и просроченных оплатах.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/metrics"
	"github.com/mmeshcher/creditbook/internal/notify"
	"github.com/mmeshcher/creditbook/internal/repository"
)

const (
	lockTTL    = 30 * time.Minute
	dateLayout = "02 Jan 2006"
)

// ErrLocked возвращается, если прогон за дату уже выполняется другим процессом.
var ErrLocked = errors.New("reminder run already in progress")

// Repository источник счетов для напоминаний и журнал прогонов.
type Repository interface {
	DueReminders(ctx context.Context, today time.Time) ([]repository.ReminderAccount, error)
	ReminderRunFinished(ctx context.Context, date time.Time) (bool, error)
	StartReminderRun(ctx context.Context, id uuid.UUID, date time.Time) error
	FinishReminderRun(ctx context.Context, id uuid.UUID, preDue, overdue, failed int) error
	DeviceTokens(ctx context.Context, phone string) ([]string, error)
}

// Deliverer синхронно доставляет одно уведомление.
type Deliverer interface {
	Deliver(ctx context.Context, msg notify.Message) error
}

// Locker захватывает распределённую блокировку. Возвращает ErrLocked, если она занята.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// RedisLocker блокировка поверх redislock.
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb redislock.RedisClient) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if err != nil {
		if errors.Is(err, redislock.ErrNotObtained) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("obtain lock: %w", err)
	}
	return lock.Release, nil
}

// Summary итоги прогона.
type Summary struct {
	RunID   uuid.UUID
	Date    time.Time
	PreDue  int
	Overdue int
	Failed  int
	Skipped bool
}

// Job рассылка напоминаний за один день.
type Job struct {
	repo    Repository
	sender  Deliverer
	locker  Locker
	logger  *zap.Logger
	now     func() time.Time
	newUUID func() uuid.UUID
}

func NewJob(repo Repository, sender Deliverer, locker Locker, logger *zap.Logger) *Job {
	return &Job{
		repo:    repo,
		sender:  sender,
		locker:  locker,
		logger:  logger,
		now:     time.Now,
		newUUID: uuid.New,
	}
}

// Run рассылает напоминания за дату today. За одну дату прогон выполняется один раз:
// параллельные прогоны отсекаются блокировкой, повторные журналом прогонов.
// Каждый покупатель получает не больше одного напоминания каждого вида.
func (j *Job) Run(ctx context.Context, today time.Time) (Summary, error) {
	day := ledger.Day(today)
	sum := Summary{Date: day}

	release, err := j.locker.Obtain(ctx, "reminders:"+day.Format(time.DateOnly), lockTTL)
	if err != nil {
		if errors.Is(err, ErrLocked) {
			j.logger.Info("reminder run locked by another process", zap.Time("date", day))
			sum.Skipped = true
			return sum, nil
		}
		return sum, err
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			j.logger.Warn("failed to release reminder lock", zap.Error(err))
		}
	}()

	done, err := j.repo.ReminderRunFinished(ctx, day)
	if err != nil {
		return sum, err
	}
	if done {
		sum.Skipped = true
		return sum, nil
	}

	sum.RunID = j.newUUID()
	if err := j.repo.StartReminderRun(ctx, sum.RunID, day); err != nil {
		return sum, err
	}

	accounts, err := j.repo.DueReminders(ctx, day)
	if err != nil {
		return sum, err
	}

	for _, acc := range accounts {
		if ctx.Err() != nil {
			break
		}
		j.remind(ctx, acc, day, &sum)
	}

	if err := j.repo.FinishReminderRun(context.WithoutCancel(ctx), sum.RunID, sum.PreDue, sum.Overdue, sum.Failed); err != nil {
		return sum, err
	}

	j.logger.Info("reminder run completed",
		zap.String("run_id", sum.RunID.String()),
		zap.Time("date", day),
		zap.Int("pre_due", sum.PreDue),
		zap.Int("overdue", sum.Overdue),
		zap.Int("failed", sum.Failed),
	)
	return sum, ctx.Err()
}

func (j *Job) remind(ctx context.Context, acc repository.ReminderAccount, day time.Time, sum *Summary) {
	outstanding := ledger.Balance(acc.Credits, acc.Payments)
	if outstanding <= 0 {
		return
	}

	var overdueAnchor, preDue *time.Time
	for _, c := range ledger.OpenCredits(acc.CreditEvents, acc.Payments) {
		if c.DueDate == nil {
			continue
		}
		if ledger.DaysBetween(day, *c.DueDate) <= 0 {
			if overdueAnchor == nil || c.DueDate.Before(*overdueAnchor) {
				overdueAnchor = c.DueDate
			}
			continue
		}
		if c.ReminderDate != nil && ledger.Day(*c.ReminderDate).Equal(day) {
			if preDue == nil || c.DueDate.Before(*preDue) {
				preDue = c.DueDate
			}
		}
	}

	if preDue != nil {
		msg := notify.PreDueReminderMessage(acc.Phone, acc.Name, acc.ShopName, outstanding, preDue.Format(dateLayout))
		if j.send(ctx, msg) {
			sum.PreDue++
			metrics.RemindersSent.WithLabelValues("pre_due").Inc()
		} else {
			sum.Failed++
		}
	}

	if overdueAnchor != nil {
		days := ledger.DaysBetween(*overdueAnchor, day)
		msg := notify.OverdueReminderMessage(acc.Phone, acc.Name, acc.ShopName, outstanding, overdueAnchor.Format(dateLayout), days)
		if j.send(ctx, msg) {
			sum.Overdue++
			metrics.RemindersSent.WithLabelValues("overdue").Inc()
		} else {
			sum.Failed++
		}
	}
}

// send доставляет сообщение в WhatsApp и на устройства покупателя.
// Напоминание считается отправленным, если доставлено хотя бы по одному каналу.
func (j *Job) send(ctx context.Context, msg notify.Message) bool {
	ok := j.sender.Deliver(ctx, msg) == nil

	tokens, err := j.repo.DeviceTokens(ctx, msg.To)
	if err != nil {
		j.logger.Warn("failed to load device tokens", zap.Error(err))
		return ok
	}
	for _, t := range tokens {
		if j.sender.Deliver(ctx, msg.AsPush(t)) == nil {
			ok = true
		}
	}
	return ok
}

// Loop запускает прогон за текущую дату каждые every до отмены ctx.
func (j *Job) Loop(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := j.Run(ctx, j.now()); err != nil && ctx.Err() == nil {
			j.logger.Error("reminder run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
