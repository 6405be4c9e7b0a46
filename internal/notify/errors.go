package notify

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrRateLimited возвращается, если провайдер ограничил частоту запросов.
	ErrRateLimited = errors.New("rate limited by provider")
	// ErrUnregistered возвращается, если токен устройства больше не действителен.
	ErrUnregistered = errors.New("device token unregistered")
	// ErrNoSender возвращается для канала без зарегистрированного отправителя.
	ErrNoSender = errors.New("no sender for channel")
)

// RateLimitError ответ 429 с рекомендованной задержкой.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s, retry after %s", ErrRateLimited, e.RetryAfter)
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	seconds, err := strconv.Atoi(v)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
