package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/creditbook/internal/metrics"
	"github.com/mmeshcher/creditbook/internal/model"
	"github.com/mmeshcher/creditbook/internal/notify"
	"github.com/mmeshcher/creditbook/internal/otp"
	"github.com/mmeshcher/creditbook/internal/repository"
	"github.com/mmeshcher/creditbook/internal/validation"
)

// OTPChallenge результат запроса кода. Code заполняется только в тестовом режиме.
type OTPChallenge struct {
	Phone     string
	ExpiresIn int
	Code      string
}

type pendingSignup struct {
	ShopName string `json:"shop_name"`
	Address  string `json:"address"`
}

func (s *Service) normalizePhone(raw string) (string, error) {
	return validation.NormalizePhone(raw, s.cfg.Region)
}

func (s *Service) issueCode(ctx context.Context, purpose otp.Purpose, phone string, payload any) (*OTPChallenge, error) {
	code, err := s.codes.Issue(ctx, purpose, phone, payload)
	if err != nil {
		return nil, fmt.Errorf("issue otp: %w", err)
	}

	ttl := int(otp.DefaultTTL.Minutes())
	s.notifier.Enqueue(notify.OTPMessage(phone, code, ttl))

	ch := &OTPChallenge{Phone: phone, ExpiresIn: int(otp.DefaultTTL.Seconds())}
	if s.cfg.TestMode {
		ch.Code = code
	}
	return ch, nil
}

func (s *Service) verifyCode(ctx context.Context, purpose otp.Purpose, phone, code string, out any) error {
	if err := s.codes.Verify(ctx, purpose, phone, code, out); err != nil {
		result := "invalid"
		switch {
		case errors.Is(err, otp.ErrExpired):
			result = "expired"
		case errors.Is(err, otp.ErrTooManyAttempts):
			result = "exhausted"
		case errors.Is(err, otp.ErrNotFound):
			result = "not_found"
		}
		metrics.OTPVerifications.WithLabelValues(result).Inc()
		return err
	}
	metrics.OTPVerifications.WithLabelValues("ok").Inc()
	return nil
}

// RequestSignup начинает регистрацию магазина: сохраняет профиль до подтверждения
// номера и отправляет код в WhatsApp.
func (s *Service) RequestSignup(ctx context.Context, phone, shopName, address string) (*OTPChallenge, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.GetRetailerByPhone(ctx, phone)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", repository.ErrRetailerExists, phone)
	case !errors.Is(err, repository.ErrRetailerNotFound):
		return nil, err
	}

	return s.issueCode(ctx, otp.PurposeSignup, phone, pendingSignup{ShopName: shopName, Address: address})
}

// VerifySignup подтверждает номер и создаёт магазин.
func (s *Service) VerifySignup(ctx context.Context, phone, code string) (*model.Retailer, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	var profile pendingSignup
	if err := s.verifyCode(ctx, otp.PurposeSignup, phone, code, &profile); err != nil {
		return nil, err
	}

	r, err := s.repo.CreateRetailer(ctx, phone, profile.ShopName, profile.Address)
	if err != nil {
		return nil, err
	}

	s.logger.Info("retailer registered", zap.Int64("retailer_id", r.ID))
	return r, nil
}

// RequestRetailerLogin отправляет код входа владельцу магазина.
func (s *Service) RequestRetailerLogin(ctx context.Context, phone string) (*OTPChallenge, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	r, err := s.repo.GetRetailerByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RetailerStatusActive {
		return nil, ErrRetailerInactive
	}

	return s.issueCode(ctx, otp.PurposeRetailerLogin, phone, nil)
}

// VerifyRetailerLogin проверяет код и возвращает магазин.
func (s *Service) VerifyRetailerLogin(ctx context.Context, phone, code string) (*model.Retailer, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	if err := s.verifyCode(ctx, otp.PurposeRetailerLogin, phone, code, nil); err != nil {
		return nil, err
	}

	r, err := s.repo.GetRetailerByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if r.Status != model.RetailerStatusActive {
		return nil, ErrRetailerInactive
	}

	if err := s.repo.TouchRetailer(ctx, r.ID, s.now()); err != nil {
		s.logger.Warn("failed to touch retailer", zap.Int64("retailer_id", r.ID), zap.Error(err))
	}

	return r, nil
}

// RequestCustomerLogin отправляет код входа покупателю, заведённому хотя бы у одного магазина.
func (s *Service) RequestCustomerLogin(ctx context.Context, phone string) (*OTPChallenge, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.CustomerExists(ctx, phone)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, repository.ErrCustomerNotFound
	}

	return s.issueCode(ctx, otp.PurposeCustomerLogin, phone, nil)
}

// VerifyCustomerLogin проверяет код покупателя и возвращает его номер в формате E.164.
func (s *Service) VerifyCustomerLogin(ctx context.Context, phone, code string) (string, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return "", err
	}

	if err := s.verifyCode(ctx, otp.PurposeCustomerLogin, phone, code, nil); err != nil {
		return "", err
	}
	return phone, nil
}

// CreateAdmin создаёт администратора с паролем, захешированным bcrypt.
func (s *Service) CreateAdmin(ctx context.Context, username, password, email string) (int64, error) {
	hashed, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	return s.repo.CreateAdmin(ctx, username, hashed, email)
}

// AdminLogin проверяет пароль администратора. Успешные и неудачные попытки
// записываются в журнал действий.
func (s *Service) AdminLogin(ctx context.Context, username, password, ip string) (*model.AdminUser, error) {
	admin, err := s.repo.GetAdminByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrAdminNotFound) {
		return nil, err
	}

	if admin == nil || bcrypt.CompareHashAndPassword(admin.PasswordHash, []byte(password)) != nil {
		s.audit(ctx, model.AuditEntry{
			AdminUser: username,
			Action:    "login_failed",
			Details:   "invalid username or password",
			IPAddress: ip,
		})
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.TouchAdminLogin(ctx, admin.ID, s.now()); err != nil {
		s.logger.Warn("failed to touch admin login", zap.String("admin", username), zap.Error(err))
	}
	s.audit(ctx, model.AuditEntry{AdminUser: username, Action: "login_success", IPAddress: ip})

	return admin, nil
}

func (s *Service) audit(ctx context.Context, e model.AuditEntry) {
	if err := s.repo.AppendAudit(ctx, e); err != nil {
		s.logger.Error("failed to write audit log", zap.String("action", e.Action), zap.Error(err))
	}
}

func hashPassword(password string) ([]byte, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}
