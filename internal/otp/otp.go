// Package otp выдаёт и проверяет одноразовые коды подтверждения номера телефона.
package otp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// Purpose назначение кода; коды разных назначений не взаимозаменяемы.
type Purpose string

const (
	PurposeSignup        Purpose = "signup"
	PurposeRetailerLogin Purpose = "retailer_login"
	PurposeCustomerLogin Purpose = "customer_login"
)

const (
	// DefaultTTL время жизни кода.
	DefaultTTL = 5 * time.Minute
	// DefaultMaxAttempts количество попыток ввода кода.
	DefaultMaxAttempts = 3
)

var (
	// ErrNotFound возвращается, если код для номера не запрашивался или уже использован.
	ErrNotFound = errors.New("no otp found for this phone number")
	// ErrExpired возвращается для просроченного кода.
	ErrExpired = errors.New("otp expired, please request a new one")
	// ErrTooManyAttempts возвращается после исчерпания попыток.
	ErrTooManyAttempts = errors.New("too many attempts, please request a new otp")
	// ErrInvalidCode возвращается при неверном коде.
	ErrInvalidCode = errors.New("invalid otp")
)

// Record хранимое состояние выданного кода. Счётчик попыток хранится отдельно.
type Record struct {
	Hash      string          `json:"hash"`
	ExpiresAt time.Time       `json:"expires_at"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Store хранилище кодов с ограниченным временем жизни.
// Save сбрасывает счётчик попыток. Delete удаляет только запись и возвращает
// ErrNotFound, если её уже нет: счётчик не обнуляется до выдачи нового кода.
type Store interface {
	Save(ctx context.Context, key string, rec Record, ttl time.Duration) error
	Load(ctx context.Context, key string) (*Record, error)
	Delete(ctx context.Context, key string) error
	// Attempt атомарно увеличивает счётчик попыток и возвращает новое значение.
	Attempt(ctx context.Context, key string, ttl time.Duration) (int, error)
}

// Manager выдаёт и проверяет коды.
type Manager struct {
	store       Store
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	generate    func() (string, error)
}

// NewManager создаёт менеджер кодов с параметрами по умолчанию.
func NewManager(store Store) *Manager {
	return &Manager{
		store:       store,
		ttl:         DefaultTTL,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		generate:    generateCode,
	}
}

// Issue создаёт новый код для номера, заменяя предыдущий. Payload сохраняется
// вместе с кодом и возвращается при успешной проверке.
func (m *Manager) Issue(ctx context.Context, purpose Purpose, phone string, payload any) (string, error) {
	code, err := m.generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	rec := Record{
		Hash:      hashCode(phone, code),
		ExpiresAt: m.now().Add(m.ttl),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("marshal otp payload: %w", err)
		}
		rec.Payload = raw
	}

	if err := m.store.Save(ctx, key(purpose, phone), rec, m.ttl); err != nil {
		return "", fmt.Errorf("save otp: %w", err)
	}

	return code, nil
}

// Verify проверяет код. При успехе код удаляется, а сохранённый payload
// декодируется в out (если out не nil).
func (m *Manager) Verify(ctx context.Context, purpose Purpose, phone, code string, out any) error {
	k := key(purpose, phone)

	rec, err := m.store.Load(ctx, k)
	if err != nil {
		return err
	}

	now := m.now()
	if now.After(rec.ExpiresAt) {
		_ = m.store.Delete(ctx, k)
		return ErrExpired
	}

	// попытка засчитывается до сравнения кода
	attempts, err := m.store.Attempt(ctx, k, rec.ExpiresAt.Sub(now))
	if err != nil {
		return fmt.Errorf("count otp attempt: %w", err)
	}
	if attempts > m.maxAttempts {
		_ = m.store.Delete(ctx, k)
		return ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(rec.Hash), []byte(hashCode(phone, code))) != 1 {
		return fmt.Errorf("%w: %d attempts remaining", ErrInvalidCode, m.maxAttempts-attempts)
	}

	// код одноразовый: из параллельных верных проверок проходит та, что удалила запись
	if err := m.store.Delete(ctx, k); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete otp: %w", err)
	}

	if out != nil && len(rec.Payload) > 0 {
		if err := json.Unmarshal(rec.Payload, out); err != nil {
			return fmt.Errorf("decode otp payload: %w", err)
		}
	}

	return nil
}

func key(purpose Purpose, phone string) string {
	return string(purpose) + ":" + phone
}

func hashCode(phone, code string) string {
	sum := sha256.Sum256([]byte(phone + ":" + code))
	return hex.EncodeToString(sum[:])
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
