package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/model"
	"github.com/mmeshcher/creditbook/internal/money"
	"github.com/mmeshcher/creditbook/internal/service"
)

const dateLayout = time.DateOnly

type signupRequest struct {
	Phone    string `json:"phone" validate:"required"`
	ShopName string `json:"shop_name" validate:"required,max=120"`
	Address  string `json:"address" validate:"max=250"`
}

type otpRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type verifyRequest struct {
	Phone string `json:"phone" validate:"required"`
	Code  string `json:"otp" validate:"required,len=6,numeric"`
}

type adminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type profileRequest struct {
	ShopName string `json:"shop_name" validate:"required,max=120"`
	Address  string `json:"address" validate:"max=250"`
}

type customerRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"required"`
	Address string `json:"address" validate:"max=250"`
}

// Сумма принимается и числом, и строкой: "120.50".
type creditRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	DueDays *int            `json:"due_days" validate:"omitempty,duedays"`
	Note    string          `json:"note" validate:"max=500"`
	Date    string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type paymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note" validate:"max=500"`
	Date   string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type deviceRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform" validate:"omitempty,oneof=android ios web"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// parseDate разбирает необязательную дату записи. Формат уже проверен валидатором.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

type otpResponse struct {
	Phone     string `json:"phone"`
	ExpiresIn int    `json:"expires_in"`
	Code      string `json:"otp,omitempty"`
}

func newOTPResponse(ch *service.OTPChallenge) otpResponse {
	return otpResponse{Phone: ch.Phone, ExpiresIn: ch.ExpiresIn, Code: ch.Code}
}

type tokenResponse struct {
	Token     string            `json:"token"`
	ExpiresAt string            `json:"expires_at"`
	Role      string            `json:"role"`
	Retailer  *retailerResponse `json:"retailer,omitempty"`
}

type retailerResponse struct {
	ID           int64   `json:"id"`
	Phone        string  `json:"phone"`
	ShopName     string  `json:"shop_name"`
	Address      string  `json:"address"`
	Status       string  `json:"status"`
	CreatedAt    string  `json:"created_at"`
	LastActiveAt *string `json:"last_active_at,omitempty"`
}

func newRetailerResponse(r *model.Retailer) *retailerResponse {
	resp := &retailerResponse{
		ID:        r.ID,
		Phone:     r.Phone,
		ShopName:  r.ShopName,
		Address:   r.Address,
		Status:    string(r.Status),
		CreatedAt: r.CreatedAt.Format(time.RFC3339),
	}
	if r.LastActiveAt != nil {
		s := r.LastActiveAt.Format(time.RFC3339)
		resp.LastActiveAt = &s
	}
	return resp
}

type customerResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	CreatedAt string `json:"created_at"`
}

func newCustomerResponse(c *model.Customer) *customerResponse {
	return &customerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Phone:     c.Phone,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

type eventResponse struct {
	ID           int64   `json:"id"`
	Type         string  `json:"type"`
	Amount       string  `json:"amount"`
	Date         string  `json:"date"`
	DueDays      *int    `json:"due_days,omitempty"`
	DueDate      *string `json:"due_date,omitempty"`
	ReminderDate *string `json:"reminder_date,omitempty"`
	Note         string  `json:"note,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

func newEventResponse(e *model.LedgerEvent) eventResponse {
	return eventResponse{
		ID:           e.ID,
		Type:         string(e.Type),
		Amount:       money.Format(e.Amount),
		Date:         e.EntryDate.Format(dateLayout),
		DueDays:      e.DueDays,
		DueDate:      formatDate(e.DueDate),
		ReminderDate: formatDate(e.ReminderDate),
		Note:         e.Note,
		CreatedAt:    e.CreatedAt.Format(time.RFC3339),
	}
}

type entryResponse struct {
	Event       eventResponse `json:"event"`
	Outstanding string        `json:"outstanding"`
}

type debtorResponse struct {
	CustomerID   int64          `json:"customer_id"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone"`
	Outstanding  string         `json:"outstanding"`
	NextDueDate  *string        `json:"next_due_date,omitempty"`
	Ageing       *ledger.Ageing `json:"ageing,omitempty"`
	OverdueCount int            `json:"overdue_count"`
	LastActivity string         `json:"last_activity"`
}

func newDebtorResponse(d ledger.Debtor) debtorResponse {
	return debtorResponse{
		CustomerID:   d.CustomerID,
		Name:         d.Name,
		Phone:        d.Phone,
		Outstanding:  money.Format(d.Outstanding),
		NextDueDate:  formatDate(d.NextDueDate),
		Ageing:       d.Ageing,
		OverdueCount: d.OverdueCount,
		LastActivity: d.LastActivity.Format(time.RFC3339),
	}
}

type debtorsResponse struct {
	Sort             string           `json:"sort"`
	TotalOutstanding string           `json:"total_outstanding"`
	Debtors          []debtorResponse `json:"debtors"`
}

type accountResponse struct {
	Retailer    *retailerResponse `json:"retailer,omitempty"`
	Customer    *customerResponse `json:"customer"`
	Outstanding string            `json:"outstanding"`
	Net         string            `json:"net"`
	Ageing      *ledger.Ageing    `json:"ageing,omitempty"`
	NextDueDate *string           `json:"next_due_date,omitempty"`
	Events      []eventResponse   `json:"events"`
}

func newAccountResponse(v *service.AccountView) accountResponse {
	resp := accountResponse{
		Customer:    newCustomerResponse(v.Customer),
		Outstanding: money.Format(v.Outstanding),
		Net:         money.Format(v.Net),
		Events:      make([]eventResponse, 0, len(v.Events)),
	}
	if v.Retailer != nil {
		resp.Retailer = newRetailerResponse(v.Retailer)
	}
	if v.Debtor != nil {
		resp.Ageing = v.Debtor.Ageing
		resp.NextDueDate = formatDate(v.Debtor.NextDueDate)
	}
	for i := range v.Events {
		resp.Events = append(resp.Events, newEventResponse(&v.Events[i]))
	}
	return resp
}

type bucketResponse struct {
	Bucket      string `json:"bucket"`
	Debtors     int    `json:"debtors"`
	Outstanding string `json:"outstanding"`
}

type ageingResponse struct {
	Date             string           `json:"date"`
	Debtors          int              `json:"debtors"`
	TotalOutstanding string           `json:"total_outstanding"`
	Buckets          []bucketResponse `json:"buckets"`
}

type balanceResponse struct {
	RetailerID  int64  `json:"retailer_id"`
	ShopName    string `json:"shop_name"`
	CustomerID  int64  `json:"customer_id"`
	Outstanding string `json:"outstanding"`
}

type balancesResponse struct {
	Phone     string            `json:"phone"`
	Total     string            `json:"total_outstanding"`
	Retailers []balanceResponse `json:"retailers"`
}

type statsResponse struct {
	TotalRetailers    int    `json:"total_retailers"`
	ActiveRetailers   int    `json:"active_retailers"`
	InactiveRetailers int    `json:"inactive_retailers"`
	TotalCustomers    int    `json:"total_customers"`
	TotalOutstanding  string `json:"total_outstanding"`
}

type retailerTotalsResponse struct {
	ID           int64   `json:"id"`
	Phone        string  `json:"phone"`
	ShopName     string  `json:"shop_name"`
	Address      string  `json:"address"`
	Status       string  `json:"status"`
	Customers    int     `json:"customers"`
	Credits      int     `json:"credits"`
	Outstanding  string  `json:"outstanding"`
	CreatedAt    string  `json:"created_at"`
	LastActiveAt *string `json:"last_active_at,omitempty"`
}

func newRetailerTotalsResponse(r ledger.RetailerTotals) retailerTotalsResponse {
	resp := retailerTotalsResponse{
		ID:          r.RetailerID,
		Phone:       r.Phone,
		ShopName:    r.ShopName,
		Address:     r.Address,
		Status:      string(r.Status),
		Customers:   r.Customers,
		Credits:     r.CreditCount,
		Outstanding: money.Format(r.Outstanding),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.LastActiveAt != nil {
		s := r.LastActiveAt.Format(time.RFC3339)
		resp.LastActiveAt = &s
	}
	return resp
}

type auditResponse struct {
	ID        int64  `json:"id"`
	AdminUser string `json:"admin_user"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	IPAddress string `json:"ip_address"`
	CreatedAt string `json:"created_at"`
}
