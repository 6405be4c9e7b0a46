package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/model"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 500
)

// Stats возвращает системную статистику.
func (s *Service) Stats(ctx context.Context) (ledger.Stats, error) {
	totals, err := s.repo.RetailerTotals(ctx)
	if err != nil {
		return ledger.Stats{}, err
	}
	return ledger.AggregateStats(totals), nil
}

// Retailers возвращает магазины с агрегатами в запрошенном порядке.
func (s *Service) Retailers(ctx context.Context, sort string) ([]ledger.RetailerTotals, ledger.RetailerSortKey, error) {
	totals, err := s.repo.RetailerTotals(ctx)
	if err != nil {
		return nil, "", err
	}
	key := ledger.ParseRetailerSortKey(sort)
	ledger.SortRetailers(totals, key)
	return totals, key, nil
}

// SetRetailerStatus включает или отключает магазин от имени администратора.
func (s *Service) SetRetailerStatus(ctx context.Context, admin, ip string, retailerID int64, status model.RetailerStatus) error {
	if status != model.RetailerStatusActive && status != model.RetailerStatusInactive {
		return ErrInvalidStatus
	}

	if err := s.repo.SetRetailerStatus(ctx, retailerID, status); err != nil {
		return err
	}

	s.audit(ctx, model.AuditEntry{
		AdminUser: admin,
		Action:    "retailer_status",
		Details:   fmt.Sprintf("retailer %d set to %s", retailerID, status),
		IPAddress: ip,
	})
	return nil
}

// AuditLog возвращает последние записи журнала действий.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	switch {
	case limit <= 0:
		limit = defaultAuditLimit
	case limit > maxAuditLimit:
		limit = maxAuditLimit
	}
	return s.repo.ListAudit(ctx, limit)
}
