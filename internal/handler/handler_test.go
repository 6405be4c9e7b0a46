package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/middleware"
	"github.com/mmeshcher/creditbook/internal/model"
	"github.com/mmeshcher/creditbook/internal/otp"
	"github.com/mmeshcher/creditbook/internal/repository"
	"github.com/mmeshcher/creditbook/internal/service"
)

type stubService struct {
	pingErr error

	challenge *service.OTPChallenge
	otpErr    error
	retailer  *model.Retailer
	verifyErr error
	custPhone string
	admin     *model.AdminUser
	adminErr  error

	customer    *model.Customer
	customerErr error
	view        *service.AccountView
	viewErr     error
	debtors     []ledger.Debtor
	export      []byte
	ageing      *service.AgeingReport

	entry      *service.EntryResult
	entryErr   error
	credit     service.CreditInput
	payment    service.PaymentInput
	remindResp int64
	remindErr  error

	overview *service.CustomerOverview
	device   string

	stats      ledger.Stats
	totals     []ledger.RetailerTotals
	statusCall []string
	statusErr  error
	audit      []model.AuditEntry
	auditLimit int
}

func (s *stubService) Ping(ctx context.Context) error { return s.pingErr }

func (s *stubService) RequestSignup(ctx context.Context, phone, shopName, address string) (*service.OTPChallenge, error) {
	return s.challenge, s.otpErr
}

func (s *stubService) VerifySignup(ctx context.Context, phone, code string) (*model.Retailer, error) {
	return s.retailer, s.verifyErr
}

func (s *stubService) RequestRetailerLogin(ctx context.Context, phone string) (*service.OTPChallenge, error) {
	return s.challenge, s.otpErr
}

func (s *stubService) VerifyRetailerLogin(ctx context.Context, phone, code string) (*model.Retailer, error) {
	return s.retailer, s.verifyErr
}

func (s *stubService) RequestCustomerLogin(ctx context.Context, phone string) (*service.OTPChallenge, error) {
	return s.challenge, s.otpErr
}

func (s *stubService) VerifyCustomerLogin(ctx context.Context, phone, code string) (string, error) {
	return s.custPhone, s.verifyErr
}

func (s *stubService) AdminLogin(ctx context.Context, username, password, ip string) (*model.AdminUser, error) {
	return s.admin, s.adminErr
}

func (s *stubService) Profile(ctx context.Context, retailerID int64) (*model.Retailer, error) {
	return s.retailer, nil
}

func (s *stubService) UpdateProfile(ctx context.Context, retailerID int64, shopName, address string) (*model.Retailer, error) {
	r := *s.retailer
	r.ShopName, r.Address = shopName, address
	return &r, nil
}

func (s *stubService) AddCustomer(ctx context.Context, retailerID int64, name, phone, address string) (*model.Customer, error) {
	return s.customer, s.customerErr
}

func (s *stubService) CustomerAccount(ctx context.Context, retailerID, customerID int64) (*service.AccountView, error) {
	return s.view, s.viewErr
}

func (s *stubService) ListDebtors(ctx context.Context, retailerID int64, sort, order string) ([]ledger.Debtor, ledger.SortKey, error) {
	return s.debtors, ledger.ParseSortKey(sort, order), nil
}

func (s *stubService) ExportDebtors(ctx context.Context, retailerID int64, sort, order string) ([]byte, error) {
	return s.export, nil
}

func (s *stubService) Ageing(ctx context.Context, retailerID int64) (*service.AgeingReport, error) {
	return s.ageing, nil
}

func (s *stubService) RecordCredit(ctx context.Context, retailerID int64, in service.CreditInput) (*service.EntryResult, error) {
	s.credit = in
	return s.entry, s.entryErr
}

func (s *stubService) RecordPayment(ctx context.Context, retailerID int64, in service.PaymentInput) (*service.EntryResult, error) {
	s.payment = in
	return s.entry, s.entryErr
}

func (s *stubService) SendReminder(ctx context.Context, retailerID, customerID int64) (int64, error) {
	return s.remindResp, s.remindErr
}

func (s *stubService) CustomerBalances(ctx context.Context, phone string) (*service.CustomerOverview, error) {
	return s.overview, nil
}

func (s *stubService) CustomerRetailerAccount(ctx context.Context, phone string, retailerID int64) (*service.AccountView, error) {
	return s.view, s.viewErr
}

func (s *stubService) RegisterDevice(ctx context.Context, phone, token, platform string) error {
	s.device = phone + "/" + token
	return nil
}

func (s *stubService) Stats(ctx context.Context) (ledger.Stats, error) {
	return s.stats, nil
}

func (s *stubService) Retailers(ctx context.Context, sort string) ([]ledger.RetailerTotals, ledger.RetailerSortKey, error) {
	return s.totals, ledger.ParseRetailerSortKey(sort), nil
}

func (s *stubService) SetRetailerStatus(ctx context.Context, admin, ip string, retailerID int64, status model.RetailerStatus) error {
	s.statusCall = []string{admin, ip, string(status)}
	return s.statusErr
}

func (s *stubService) AuditLog(ctx context.Context, limit int) ([]model.AuditEntry, error) {
	s.auditLimit = limit
	return s.audit, nil
}

const (
	retailerPhone = "+919876543210"
	customerPhone = "+919812345678"
)

type testServer struct {
	handler *Handler
	router  http.Handler
	tokens  *middleware.TokenIssuer
}

func newTestHandler(t *testing.T, svc Service) *testServer {
	t.Helper()

	logger, err := zap.NewDevelopment()
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}

	tokens := middleware.NewTokenIssuer("test-secret", time.Hour)
	h := NewHandler(svc, logger, tokens, nil)
	return &testServer{handler: h, router: h.SetupRouter(), tokens: tokens}
}

func (s *testServer) token(t *testing.T, p middleware.Principal) string {
	t.Helper()
	tok, _, err := s.tokens.Issue(p)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			if err := json.NewEncoder(&buf).Encode(b); err != nil {
				t.Fatalf("encode body: %v", err)
			}
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) retailerToken(t *testing.T) string {
	return s.token(t, middleware.Principal{Role: middleware.RoleRetailer, RetailerID: 7})
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestSignup_Accepted(t *testing.T) {
	svc := &stubService{
		challenge: &service.OTPChallenge{Phone: retailerPhone, ExpiresIn: 300, Code: "123456"},
	}
	s := newTestHandler(t, svc)

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", signupRequest{
		Phone:    "98765 43210",
		ShopName: "Sharma Stores",
	})

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	resp := decode[otpResponse](t, rec)
	if resp.Code != "123456" || resp.ExpiresIn != 300 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestSignup_ValidationFailed(t *testing.T) {
	s := newTestHandler(t, &stubService{})

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", signupRequest{Phone: retailerPhone})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	resp := decode[errorResponse](t, rec)
	if resp.Fields["ShopName"] != "required" {
		t.Fatalf("fields = %v, want ShopName required", resp.Fields)
	}
}

func TestSignup_PhoneTaken(t *testing.T) {
	s := newTestHandler(t, &stubService{otpErr: repository.ErrRetailerExists})

	rec := s.do(t, http.MethodPost, "/api/auth/signup", "", signupRequest{Phone: retailerPhone, ShopName: "Sharma Stores"})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestVerifyLogin_IssuesRetailerToken(t *testing.T) {
	svc := &stubService{
		retailer: &model.Retailer{ID: 7, Phone: retailerPhone, ShopName: "Sharma Stores", Status: model.RetailerStatusActive},
	}
	s := newTestHandler(t, svc)

	rec := s.do(t, http.MethodPost, "/api/auth/login/verify", "", verifyRequest{Phone: retailerPhone, Code: "123456"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decode[tokenResponse](t, rec)
	p, err := s.tokens.Parse(resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if p.Role != middleware.RoleRetailer || p.RetailerID != 7 {
		t.Fatalf("principal = %+v", p)
	}
	if resp.Retailer == nil || resp.Retailer.ShopName != "Sharma Stores" {
		t.Fatalf("retailer = %+v", resp.Retailer)
	}
}

func TestVerifyLogin_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"wrong code", otp.ErrInvalidCode, http.StatusUnauthorized},
		{"expired code", otp.ErrExpired, http.StatusUnauthorized},
		{"attempts exhausted", otp.ErrTooManyAttempts, http.StatusUnauthorized},
		{"inactive retailer", service.ErrRetailerInactive, http.StatusForbidden},
		{"unknown phone", repository.ErrRetailerNotFound, http.StatusNotFound},
		{"storage failure", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestHandler(t, &stubService{verifyErr: tt.err})
			rec := s.do(t, http.MethodPost, "/api/auth/login/verify", "", verifyRequest{Phone: retailerPhone, Code: "123456"})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestVerifyLogin_MalformedCode(t *testing.T) {
	s := newTestHandler(t, &stubService{})

	rec := s.do(t, http.MethodPost, "/api/auth/login/verify", "", verifyRequest{Phone: retailerPhone, Code: "12ab"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCustomerLogin_IssuesPhoneToken(t *testing.T) {
	s := newTestHandler(t, &stubService{custPhone: customerPhone})

	rec := s.do(t, http.MethodPost, "/api/customer/auth/login/verify", "", verifyRequest{Phone: customerPhone, Code: "654321"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	p, err := s.tokens.Parse(decode[tokenResponse](t, rec).Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if p.Role != middleware.RoleCustomer || p.Phone != customerPhone {
		t.Fatalf("principal = %+v", p)
	}
}

func TestAdminLogin_InvalidCredentials(t *testing.T) {
	s := newTestHandler(t, &stubService{adminErr: service.ErrInvalidCredentials})

	rec := s.do(t, http.MethodPost, "/api/admin/login", "", adminLoginRequest{Username: "root", Password: "nope"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRoutes_RequireRole(t *testing.T) {
	s := newTestHandler(t, &stubService{retailer: &model.Retailer{ID: 7}})
	customer := s.token(t, middleware.Principal{Role: middleware.RoleCustomer, Phone: customerPhone})

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"no token", "/api/retailer/profile", "", http.StatusUnauthorized},
		{"garbage token", "/api/retailer/profile", "not-a-jwt", http.StatusUnauthorized},
		{"customer on retailer route", "/api/retailer/profile", customer, http.StatusForbidden},
		{"retailer on admin route", "/api/admin/stats", s.retailerToken(t), http.StatusForbidden},
		{"retailer on own route", "/api/retailer/profile", s.retailerToken(t), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, tt.token, nil)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestAddCredit_Created(t *testing.T) {
	due := time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC)
	days := 30
	svc := &stubService{entry: &service.EntryResult{
		Event: &model.LedgerEvent{
			ID: 11, CustomerID: 3, Type: model.EventTypeCredit, Amount: 12050,
			EntryDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), DueDays: &days, DueDate: &due,
		},
		Outstanding: 22050,
	}}
	s := newTestHandler(t, svc)

	rec := s.do(t, http.MethodPost, "/api/retailer/customers/3/credits", s.retailerToken(t),
		`{"amount":"120.50","due_days":30,"note":"rice","date":"2024-03-10"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, http.StatusCreated, rec.Body.String())
	}
	if svc.credit.CustomerID != 3 || svc.credit.Amount != 12050 || svc.credit.Note != "rice" {
		t.Fatalf("credit input = %+v", svc.credit)
	}
	if svc.credit.DueDays == nil || *svc.credit.DueDays != 30 {
		t.Fatalf("due days = %v, want 30", svc.credit.DueDays)
	}
	if svc.credit.Date == nil || !svc.credit.Date.Equal(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("date = %v", svc.credit.Date)
	}

	resp := decode[entryResponse](t, rec)
	if resp.Outstanding != "220.50" || resp.Event.Amount != "120.50" {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Event.DueDate == nil || *resp.Event.DueDate != "2024-04-09" {
		t.Fatalf("due date = %v", resp.Event.DueDate)
	}
}

func TestAddCredit_Rejected(t *testing.T) {
	tests := []struct {
		name string
		body string
		err  error
		want int
	}{
		{"zero amount", `{"amount":"0"}`, nil, http.StatusBadRequest},
		{"sub-paise amount", `{"amount":"10.005"}`, nil, http.StatusBadRequest},
		{"amount beyond int64", `{"amount":"184467440737095516.17"}`, nil, http.StatusBadRequest},
		{"amount above entry ceiling", `{"amount":1000000000.01}`, nil, http.StatusBadRequest},
		{"due days outside set", `{"amount":"10","due_days":5}`, nil, http.StatusBadRequest},
		{"bad date", `{"amount":"10","date":"10/03/2024"}`, nil, http.StatusBadRequest},
		{"unknown field", `{"amount":"10","currency":"INR"}`, nil, http.StatusBadRequest},
		{"future date", `{"amount":"10"}`, service.ErrFutureDate, http.StatusBadRequest},
		{"foreign customer", `{"amount":"10"}`, repository.ErrCustomerNotFound, http.StatusNotFound},
		{"deactivated retailer", `{"amount":"10"}`, service.ErrRetailerInactive, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestHandler(t, &stubService{entryErr: tt.err})
			rec := s.do(t, http.MethodPost, "/api/retailer/customers/3/credits", s.retailerToken(t), tt.body)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAddCredit_BadCustomerID(t *testing.T) {
	s := newTestHandler(t, &stubService{})

	rec := s.do(t, http.MethodPost, "/api/retailer/customers/abc/credits", s.retailerToken(t), `{"amount":"10"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAddPayment_ExceedsBalance(t *testing.T) {
	svc := &stubService{entryErr: &ledger.ExceedsBalanceError{Amount: 6001, Outstanding: 6000}}
	s := newTestHandler(t, svc)

	rec := s.do(t, http.MethodPost, "/api/retailer/customers/3/payments", s.retailerToken(t), `{"amount":60.01}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if svc.payment.Amount != 6001 {
		t.Fatalf("payment amount = %d, want 6001", svc.payment.Amount)
	}
	resp := decode[errorResponse](t, rec)
	if resp.Outstanding != "60.00" {
		t.Fatalf("outstanding = %q, want 60.00", resp.Outstanding)
	}
}

func TestListDebtors_JSONResponse(t *testing.T) {
	due := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	svc := &stubService{debtors: []ledger.Debtor{
		{
			CustomerID: 3, Name: "Ravi", Phone: customerPhone, Outstanding: 150000,
			NextDueDate: &due, OverdueCount: 1,
			Ageing: &ledger.Ageing{Status: ledger.StatusOverdue, Bucket: ledger.BucketOverdue0To7, DaysUntilDue: -5, DaysOverdue: 5},
		},
		{CustomerID: 4, Name: "Anil", Phone: "+919800000001", Outstanding: 2500},
	}}
	s := newTestHandler(t, svc)

	rec := s.do(t, http.MethodGet, "/api/retailer/debtors?sort=amount&order=desc", s.retailerToken(t), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	resp := decode[debtorsResponse](t, rec)
	if resp.Sort != "balance_desc" || resp.TotalOutstanding != "1525.00" || len(resp.Debtors) != 2 {
		t.Fatalf("response = %+v", resp)
	}
	first := resp.Debtors[0]
	if first.Outstanding != "1500.00" || first.Ageing == nil || first.Ageing.Bucket != ledger.BucketOverdue0To7 {
		t.Fatalf("first debtor = %+v", first)
	}
	if resp.Debtors[1].Ageing != nil || resp.Debtors[1].NextDueDate != nil {
		t.Fatalf("debtor without due date must not be classified: %+v", resp.Debtors[1])
	}
}

func TestExportDebtors_Spreadsheet(t *testing.T) {
	s := newTestHandler(t, &stubService{export: []byte("PK\x03\x04sheet")})

	rec := s.do(t, http.MethodGet, "/api/retailer/debtors/export", s.retailerToken(t), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Fatalf("content-type = %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "debtors.xlsx") {
		t.Fatalf("content-disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Body.String() != "PK\x03\x04sheet" {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestSendReminder_NothingOutstanding(t *testing.T) {
	s := newTestHandler(t, &stubService{remindErr: service.ErrNothingOutstanding})

	rec := s.do(t, http.MethodPost, "/api/retailer/customers/3/remind", s.retailerToken(t), nil)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestAddCustomer_Conflict(t *testing.T) {
	s := newTestHandler(t, &stubService{customerErr: repository.ErrCustomerExists})

	rec := s.do(t, http.MethodPost, "/api/retailer/customers", s.retailerToken(t), customerRequest{Name: "Ravi", Phone: customerPhone})

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
}

func TestCustomerBalances(t *testing.T) {
	svc := &stubService{overview: &service.CustomerOverview{
		Phone: customerPhone,
		Balances: []model.RetailerBalance{
			{RetailerID: 1, ShopName: "Sharma Stores", CustomerID: 3, Outstanding: 12000},
			{RetailerID: 2, ShopName: "Gupta Kirana", CustomerID: 9, Outstanding: 5000},
		},
		Total: 17000,
	}}
	s := newTestHandler(t, svc)
	tok := s.token(t, middleware.Principal{Role: middleware.RoleCustomer, Phone: customerPhone})

	rec := s.do(t, http.MethodGet, "/api/customer/balances", tok, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decode[balancesResponse](t, rec)
	if resp.Total != "170.00" || len(resp.Retailers) != 2 || resp.Retailers[1].Outstanding != "50.00" {
		t.Fatalf("response = %+v", resp)
	}
}

func TestRegisterDevice_UsesTokenPhone(t *testing.T) {
	svc := &stubService{}
	s := newTestHandler(t, svc)
	tok := s.token(t, middleware.Principal{Role: middleware.RoleCustomer, Phone: customerPhone})

	rec := s.do(t, http.MethodPost, "/api/customer/devices", tok, deviceRequest{Token: "fcm-token", Platform: "android"})

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if svc.device != customerPhone+"/fcm-token" {
		t.Fatalf("device = %q", svc.device)
	}
}

func TestAdmin_StatsAndStatus(t *testing.T) {
	svc := &stubService{stats: ledger.Stats{
		TotalRetailers: 3, ActiveRetailers: 2, InactiveRetailers: 1, TotalCustomers: 12, TotalOutstanding: 17000,
	}}
	s := newTestHandler(t, svc)
	tok := s.token(t, middleware.Principal{Role: middleware.RoleAdmin, Username: "root"})

	rec := s.do(t, http.MethodGet, "/api/admin/stats", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	stats := decode[statsResponse](t, rec)
	if stats.TotalRetailers != 3 || stats.InactiveRetailers != 1 || stats.TotalOutstanding != "170.00" {
		t.Fatalf("stats = %+v", stats)
	}

	rec = s.do(t, http.MethodPut, "/api/admin/retailers/5/status", tok, statusRequest{Status: "inactive"})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if len(svc.statusCall) != 3 || svc.statusCall[0] != "root" || svc.statusCall[2] != "inactive" {
		t.Fatalf("status call = %v", svc.statusCall)
	}

	rec = s.do(t, http.MethodPut, "/api/admin/retailers/5/status", tok, statusRequest{Status: "deleted"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	rec = s.do(t, http.MethodGet, "/api/admin/audit?limit=20", tok, nil)
	if rec.Code != http.StatusOK || svc.auditLimit != 20 {
		t.Fatalf("audit status = %d, limit = %d", rec.Code, svc.auditLimit)
	}
}

func TestHealth(t *testing.T) {
	s := newTestHandler(t, &stubService{})
	if rec := s.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	s = newTestHandler(t, &stubService{pingErr: errors.New("db down")})
	if rec := s.do(t, http.MethodGet, "/health", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
