package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/metrics"
)

const (
	defaultQueueSize = 256
	defaultWorkers   = 2
	maxRetryAfter    = 30 * time.Second
)

// Dispatcher доставляет уведомления асинхронно. Ошибки доставки только
// логируются и учитываются в метриках.
type Dispatcher struct {
	senders      map[Channel]Sender
	queue        chan Message
	logger       *zap.Logger
	timeout      time.Duration
	workers      int
	unregistered func(ctx context.Context, token string)
	mu           sync.RWMutex
}

// NewDispatcher создаёт диспетчер с ограничением времени на одну отправку.
func NewDispatcher(logger *zap.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		senders: make(map[Channel]Sender),
		queue:   make(chan Message, defaultQueueSize),
		logger:  logger,
		timeout: timeout,
		workers: defaultWorkers,
	}
}

// Register назначает отправителя для канала.
func (d *Dispatcher) Register(ch Channel, s Sender) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.senders[ch] = s
}

// OnUnregistered задаёт обработчик недействительных токенов устройств.
func (d *Dispatcher) OnUnregistered(fn func(ctx context.Context, token string)) {
	d.unregistered = fn
}

// Enqueue ставит уведомление в очередь без блокировки. Возвращает false,
// если очередь заполнена и уведомление отброшено.
func (d *Dispatcher) Enqueue(msg Message) bool {
	select {
	case d.queue <- msg:
		metrics.NotifyQueueDepth.Inc()
		return true
	default:
		metrics.Notifications.WithLabelValues(string(msg.Channel), "dropped").Inc()
		d.logger.Warn("notification queue full, message dropped",
			zap.String("channel", string(msg.Channel)),
			zap.String("template", msg.Template),
		)
		return false
	}
}

// Run обрабатывает очередь до отмены ctx.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case msg := <-d.queue:
					metrics.NotifyQueueDepth.Dec()
					_ = d.Deliver(ctx, msg)
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

// Deliver синхронно отправляет уведомление с ограничением по времени.
// При ответе 429 выполняется одна повторная попытка.
func (d *Dispatcher) Deliver(ctx context.Context, msg Message) error {
	d.mu.RLock()
	sender, ok := d.senders[msg.Channel]
	d.mu.RUnlock()
	if !ok {
		metrics.Notifications.WithLabelValues(string(msg.Channel), "no_sender").Inc()
		return fmt.Errorf("%w: %s", ErrNoSender, msg.Channel)
	}

	err := d.send(ctx, sender, msg)

	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter <= maxRetryAfter {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(rl.RetryAfter):
		}
		err = d.send(ctx, sender, msg)
	}

	switch {
	case err == nil:
		metrics.Notifications.WithLabelValues(string(msg.Channel), "sent").Inc()
		return nil
	case errors.Is(err, ErrUnregistered):
		metrics.Notifications.WithLabelValues(string(msg.Channel), "unregistered").Inc()
		if d.unregistered != nil {
			d.unregistered(ctx, msg.To)
		}
	default:
		metrics.Notifications.WithLabelValues(string(msg.Channel), "failed").Inc()
	}

	d.logger.Warn("notification delivery failed",
		zap.String("channel", string(msg.Channel)),
		zap.String("template", msg.Template),
		zap.Error(err),
	)
	return err
}

func (d *Dispatcher) send(ctx context.Context, sender Sender, msg Message) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return sender.Send(sendCtx, msg)
}
