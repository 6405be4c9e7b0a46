package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSender пишет уведомления в лог вместо отправки. Используется в тестовом режиме.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("notification (test mode)",
		zap.String("channel", string(msg.Channel)),
		zap.String("to", msg.To),
		zap.String("template", msg.Template),
		zap.String("body", msg.Body),
	)
	return nil
}
