// Package service реализует бизнес-логику сервиса учёта долгов.
package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/model"
	"github.com/mmeshcher/creditbook/internal/notify"
	"github.com/mmeshcher/creditbook/internal/otp"
)

var (
	// ErrInvalidCredentials возвращается при неверном имени или пароле администратора.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRetailerInactive возвращается при входе в отключённый магазин.
	ErrRetailerInactive = errors.New("retailer account is inactive")
	// ErrNothingOutstanding возвращается при напоминании покупателю без задолженности.
	ErrNothingOutstanding = errors.New("customer has no outstanding balance")
	// ErrFutureDate возвращается для записи, датированной будущим днём.
	ErrFutureDate = errors.New("entry date cannot be in the future")
	// ErrInvalidStatus возвращается для неизвестного статуса магазина.
	ErrInvalidStatus = errors.New("invalid retailer status")
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	Ping(ctx context.Context) error

	CreateRetailer(ctx context.Context, phone, shopName, address string) (*model.Retailer, error)
	GetRetailer(ctx context.Context, id int64) (*model.Retailer, error)
	GetRetailerByPhone(ctx context.Context, phone string) (*model.Retailer, error)
	UpdateRetailerProfile(ctx context.Context, id int64, shopName, address string) (*model.Retailer, error)
	SetRetailerStatus(ctx context.Context, id int64, status model.RetailerStatus) error
	TouchRetailer(ctx context.Context, id int64, at time.Time) error
	RetailerTotals(ctx context.Context) ([]ledger.RetailerTotals, error)

	CreateCustomer(ctx context.Context, c model.Customer) (*model.Customer, error)
	GetCustomer(ctx context.Context, retailerID, customerID int64) (*model.Customer, error)
	GetCustomerByPhone(ctx context.Context, retailerID int64, phone string) (*model.Customer, error)
	CustomerExists(ctx context.Context, phone string) (bool, error)
	CustomerBalances(ctx context.Context, phone string) ([]model.RetailerBalance, error)

	RecordCredit(ctx context.Context, ev model.LedgerEvent) (*model.LedgerEvent, int64, error)
	RecordPayment(ctx context.Context, ev model.LedgerEvent) (*model.LedgerEvent, int64, error)
	GetBalance(ctx context.Context, retailerID, customerID int64) (int64, error)
	ListEvents(ctx context.Context, retailerID, customerID int64) ([]model.LedgerEvent, error)
	ListAccounts(ctx context.Context, retailerID int64) ([]ledger.Account, error)

	CreateAdmin(ctx context.Context, username string, passwordHash []byte, email string) (int64, error)
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	TouchAdminLogin(ctx context.Context, id int64, at time.Time) error
	AppendAudit(ctx context.Context, e model.AuditEntry) error
	ListAudit(ctx context.Context, limit int) ([]model.AuditEntry, error)

	SaveDeviceToken(ctx context.Context, phone, token, platform string) error
	DeviceTokens(ctx context.Context, phone string) ([]string, error)
	DeleteDeviceToken(ctx context.Context, token string) error
}

// Codes выдаёт и проверяет одноразовые коды.
type Codes interface {
	Issue(ctx context.Context, purpose otp.Purpose, phone string, payload any) (string, error)
	Verify(ctx context.Context, purpose otp.Purpose, phone, code string, out any) error
}

// Notifier принимает уведомления к асинхронной отправке.
type Notifier interface {
	Enqueue(msg notify.Message) bool
}

// Config параметры сервиса.
type Config struct {
	// Region регион для номеров без кода страны.
	Region string
	// TestMode возвращает выданный код в ответе на запрос кода.
	TestMode bool
}

// Service содержит бизнес-логику сервиса учёта долгов.
type Service struct {
	repo     Repository
	codes    Codes
	notifier Notifier
	logger   *zap.Logger
	cfg      Config
	now      func() time.Time
}

// NewService создаёт новый сервис.
func NewService(repo Repository, codes Codes, notifier Notifier, logger *zap.Logger, cfg Config) *Service {
	if cfg.Region == "" {
		cfg.Region = "IN"
	}
	return &Service{
		repo:     repo,
		codes:    codes,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// Ping проверяет доступность хранилища.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) today() time.Time {
	return ledger.Day(s.now())
}
