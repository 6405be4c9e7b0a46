package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/model"
)

// CustomerOverview задолженности покупателя перед всеми магазинами.
type CustomerOverview struct {
	Phone    string
	Balances []model.RetailerBalance
	Total    int64
}

// CustomerBalances возвращает задолженности покупателя по магазинам.
func (s *Service) CustomerBalances(ctx context.Context, phone string) (*CustomerOverview, error) {
	balances, err := s.repo.CustomerBalances(ctx, phone)
	if err != nil {
		return nil, err
	}

	o := &CustomerOverview{Phone: phone, Balances: balances}
	for _, b := range balances {
		o.Total += b.Outstanding
	}
	return o, nil
}

// CustomerRetailerAccount возвращает историю покупателя у одного магазина.
func (s *Service) CustomerRetailerAccount(ctx context.Context, phone string, retailerID int64) (*AccountView, error) {
	cust, err := s.repo.GetCustomerByPhone(ctx, retailerID, phone)
	if err != nil {
		return nil, err
	}
	return s.accountView(ctx, cust)
}

// RegisterDevice сохраняет токен FCM устройства покупателя.
func (s *Service) RegisterDevice(ctx context.Context, phone, token, platform string) error {
	return s.repo.SaveDeviceToken(ctx, phone, strings.TrimSpace(token), strings.ToLower(strings.TrimSpace(platform)))
}

// ForgetDevice удаляет токен, отвергнутый FCM.
func (s *Service) ForgetDevice(ctx context.Context, token string) {
	if err := s.repo.DeleteDeviceToken(ctx, token); err != nil {
		s.logger.Warn("failed to delete device token", zap.Error(err))
	}
}
