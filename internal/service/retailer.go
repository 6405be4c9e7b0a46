package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/metrics"
	"github.com/mmeshcher/creditbook/internal/model"
	"github.com/mmeshcher/creditbook/internal/notify"
)

// CreditInput параметры выдачи в долг. Amount в минимальных единицах.
// Date по умолчанию сегодняшний день.
type CreditInput struct {
	CustomerID int64
	Amount     int64
	DueDays    *int
	Note       string
	Date       *time.Time
}

// PaymentInput параметры оплаты.
type PaymentInput struct {
	CustomerID int64
	Amount     int64
	Note       string
	Date       *time.Time
}

// EntryResult сохранённая запись и задолженность после неё.
type EntryResult struct {
	Event       *model.LedgerEvent
	Outstanding int64
}

// AccountView история счёта покупателя у одного магазина.
type AccountView struct {
	Retailer    *model.Retailer
	Customer    *model.Customer
	Outstanding int64
	Net         int64 // со знаком, отрицательна при переплате
	Debtor      *ledger.Debtor
	Events      []model.LedgerEvent
}

// AgeingReport распределение задолженности магазина по интервалам просрочки.
type AgeingReport struct {
	Today            time.Time
	Buckets          []ledger.BucketTotal
	Debtors          int
	TotalOutstanding int64
}

// Profile возвращает профиль магазина.
func (s *Service) Profile(ctx context.Context, retailerID int64) (*model.Retailer, error) {
	return s.repo.GetRetailer(ctx, retailerID)
}

// UpdateProfile меняет название и адрес магазина.
func (s *Service) UpdateProfile(ctx context.Context, retailerID int64, shopName, address string) (*model.Retailer, error) {
	return s.repo.UpdateRetailerProfile(ctx, retailerID, strings.TrimSpace(shopName), strings.TrimSpace(address))
}

// AddCustomer заводит покупателя магазину.
func (s *Service) AddCustomer(ctx context.Context, retailerID int64, name, phone, address string) (*model.Customer, error) {
	phone, err := s.normalizePhone(phone)
	if err != nil {
		return nil, err
	}
	if _, err := s.activeRetailer(ctx, retailerID); err != nil {
		return nil, err
	}
	return s.repo.CreateCustomer(ctx, model.Customer{
		RetailerID: retailerID,
		Name:       strings.TrimSpace(name),
		Phone:      phone,
		Address:    strings.TrimSpace(address),
	})
}

// CustomerAccount возвращает историю и текущее состояние счёта покупателя.
func (s *Service) CustomerAccount(ctx context.Context, retailerID, customerID int64) (*AccountView, error) {
	cust, err := s.repo.GetCustomer(ctx, retailerID, customerID)
	if err != nil {
		return nil, err
	}
	return s.accountView(ctx, cust)
}

func (s *Service) accountView(ctx context.Context, cust *model.Customer) (*AccountView, error) {
	ret, err := s.repo.GetRetailer(ctx, cust.RetailerID)
	if err != nil {
		return nil, err
	}

	events, err := s.repo.ListEvents(ctx, cust.RetailerID, cust.ID)
	if err != nil {
		return nil, err
	}

	acc := ledger.Account{CustomerID: cust.ID, Name: cust.Name, Phone: cust.Phone, LastActivity: cust.CreatedAt}
	for _, ev := range events {
		switch ev.Type {
		case model.EventTypeCredit:
			acc.Credits += ev.Amount
			acc.CreditEvents = append(acc.CreditEvents, ledger.Credit{
				ID: ev.ID, Amount: ev.Amount, EntryDate: ev.EntryDate,
				DueDate: ev.DueDate, ReminderDate: ev.ReminderDate,
			})
		case model.EventTypePayment:
			acc.Payments += ev.Amount
		}
		if ev.CreatedAt.After(acc.LastActivity) {
			acc.LastActivity = ev.CreatedAt
		}
	}

	view := &AccountView{
		Retailer:    ret,
		Customer:    cust,
		Outstanding: ledger.Balance(acc.Credits, acc.Payments),
		Net:         ledger.RawBalance(acc.Credits, acc.Payments),
		Events:      events,
	}
	if d, ok := ledger.NewDebtor(acc, s.today()); ok {
		view.Debtor = &d
	}
	return view, nil
}

// ListDebtors возвращает покупателей с задолженностью в запрошенном порядке.
func (s *Service) ListDebtors(ctx context.Context, retailerID int64, sort, order string) ([]ledger.Debtor, ledger.SortKey, error) {
	accounts, err := s.repo.ListAccounts(ctx, retailerID)
	if err != nil {
		return nil, 0, err
	}
	key := ledger.ParseSortKey(sort, order)
	return ledger.BuildDebtorList(accounts, key, s.today()), key, nil
}

// Ageing строит отчёт по интервалам просрочки.
func (s *Service) Ageing(ctx context.Context, retailerID int64) (*AgeingReport, error) {
	debtors, _, err := s.ListDebtors(ctx, retailerID, "", "")
	if err != nil {
		return nil, err
	}

	report := &AgeingReport{
		Today:   s.today(),
		Buckets: ledger.Summarize(debtors),
		Debtors: len(debtors),
	}
	for _, d := range debtors {
		report.TotalOutstanding += d.Outstanding
	}
	return report, nil
}

func (s *Service) entryDate(date *time.Time) (time.Time, error) {
	today := s.today()
	if date == nil {
		return today, nil
	}
	d := ledger.Day(*date)
	if d.After(today) {
		return time.Time{}, ErrFutureDate
	}
	return d, nil
}

// RecordCredit записывает выдачу в долг и уведомляет покупателя.
func (s *Service) RecordCredit(ctx context.Context, retailerID int64, in CreditInput) (*EntryResult, error) {
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	entry, err := s.entryDate(in.Date)
	if err != nil {
		return nil, err
	}

	ev := model.LedgerEvent{
		RetailerID: retailerID,
		CustomerID: in.CustomerID,
		Amount:     in.Amount,
		EntryDate:  entry,
		Note:       strings.TrimSpace(in.Note),
	}

	if in.DueDays != nil {
		due, reminder, err := ledger.DueDates(entry, *in.DueDays)
		if err != nil {
			return nil, err
		}
		days := *in.DueDays
		ev.DueDays, ev.DueDate, ev.ReminderDate = &days, &due, &reminder
	}

	cust, ret, err := s.accountParties(ctx, retailerID, in.CustomerID)
	if err != nil {
		return nil, err
	}

	saved, outstanding, err := s.repo.RecordCredit(ctx, ev)
	if err != nil {
		return nil, err
	}

	metrics.LedgerEvents.WithLabelValues(string(model.EventTypeCredit)).Inc()
	metrics.LedgerAmount.WithLabelValues(string(model.EventTypeCredit)).Add(float64(in.Amount))

	s.notifyCustomer(ctx, notify.CreditAddedMessage(cust.Phone, cust.Name, ret.ShopName, in.Amount, outstanding))

	return &EntryResult{Event: saved, Outstanding: outstanding}, nil
}

// RecordPayment записывает оплату, если она не превышает задолженность.
// При превышении возвращается *ledger.ExceedsBalanceError с текущей задолженностью.
func (s *Service) RecordPayment(ctx context.Context, retailerID int64, in PaymentInput) (*EntryResult, error) {
	if err := ledger.ValidateAmount(in.Amount); err != nil {
		return nil, err
	}

	entry, err := s.entryDate(in.Date)
	if err != nil {
		return nil, err
	}

	cust, ret, err := s.accountParties(ctx, retailerID, in.CustomerID)
	if err != nil {
		return nil, err
	}

	saved, outstanding, err := s.repo.RecordPayment(ctx, model.LedgerEvent{
		RetailerID: retailerID,
		CustomerID: in.CustomerID,
		Amount:     in.Amount,
		EntryDate:  entry,
		Note:       strings.TrimSpace(in.Note),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrExceedsBalance) {
			metrics.PaymentsRejected.Inc()
		}
		return nil, err
	}

	metrics.LedgerEvents.WithLabelValues(string(model.EventTypePayment)).Inc()
	metrics.LedgerAmount.WithLabelValues(string(model.EventTypePayment)).Add(float64(in.Amount))

	s.notifyCustomer(ctx, notify.PaymentRecordedMessage(cust.Phone, cust.Name, ret.ShopName, in.Amount, outstanding))

	return &EntryResult{Event: saved, Outstanding: outstanding}, nil
}

// SendReminder отправляет покупателю напоминание о задолженности.
func (s *Service) SendReminder(ctx context.Context, retailerID, customerID int64) (int64, error) {
	cust, ret, err := s.accountParties(ctx, retailerID, customerID)
	if err != nil {
		return 0, err
	}

	outstanding, err := s.repo.GetBalance(ctx, retailerID, customerID)
	if err != nil {
		return 0, err
	}
	if outstanding <= 0 {
		return 0, ErrNothingOutstanding
	}

	s.notifyCustomer(ctx, notify.ManualReminderMessage(cust.Phone, cust.Name, ret.ShopName, outstanding))
	metrics.RemindersSent.WithLabelValues("manual").Inc()

	return outstanding, nil
}

func (s *Service) accountParties(ctx context.Context, retailerID, customerID int64) (*model.Customer, *model.Retailer, error) {
	cust, err := s.repo.GetCustomer(ctx, retailerID, customerID)
	if err != nil {
		return nil, nil, err
	}
	ret, err := s.activeRetailer(ctx, retailerID)
	if err != nil {
		return nil, nil, err
	}
	return cust, ret, nil
}

// activeRetailer загружает магазин и отказывает отключённому. Токен остаётся
// действительным после отключения, поэтому статус проверяется при каждой записи.
func (s *Service) activeRetailer(ctx context.Context, retailerID int64) (*model.Retailer, error) {
	ret, err := s.repo.GetRetailer(ctx, retailerID)
	if err != nil {
		return nil, fmt.Errorf("get retailer: %w", err)
	}
	if ret.Status != model.RetailerStatusActive {
		return nil, ErrRetailerInactive
	}
	return ret, nil
}

// notifyCustomer ставит в очередь сообщение WhatsApp и push на устройства покупателя.
// Вызывается только после фиксации записи; ошибки не возвращаются.
func (s *Service) notifyCustomer(ctx context.Context, msg notify.Message) {
	s.notifier.Enqueue(msg)

	tokens, err := s.repo.DeviceTokens(ctx, msg.To)
	if err != nil {
		s.logger.Warn("failed to load device tokens", zap.Error(err))
		return
	}
	for _, t := range tokens {
		s.notifier.Enqueue(msg.AsPush(t))
	}
}
