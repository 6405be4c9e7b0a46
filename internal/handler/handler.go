// Package handler содержит HTTP-обработчики API сервиса учёта долгов.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/ledger"
	"github.com/mmeshcher/creditbook/internal/middleware"
	"github.com/mmeshcher/creditbook/internal/model"
	"github.com/mmeshcher/creditbook/internal/money"
	"github.com/mmeshcher/creditbook/internal/otp"
	"github.com/mmeshcher/creditbook/internal/repository"
	"github.com/mmeshcher/creditbook/internal/service"
	"github.com/mmeshcher/creditbook/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Ping(ctx context.Context) error

	RequestSignup(ctx context.Context, phone, shopName, address string) (*service.OTPChallenge, error)
	VerifySignup(ctx context.Context, phone, code string) (*model.Retailer, error)
	RequestRetailerLogin(ctx context.Context, phone string) (*service.OTPChallenge, error)
	VerifyRetailerLogin(ctx context.Context, phone, code string) (*model.Retailer, error)
	RequestCustomerLogin(ctx context.Context, phone string) (*service.OTPChallenge, error)
	VerifyCustomerLogin(ctx context.Context, phone, code string) (string, error)
	AdminLogin(ctx context.Context, username, password, ip string) (*model.AdminUser, error)

	Profile(ctx context.Context, retailerID int64) (*model.Retailer, error)
	UpdateProfile(ctx context.Context, retailerID int64, shopName, address string) (*model.Retailer, error)
	AddCustomer(ctx context.Context, retailerID int64, name, phone, address string) (*model.Customer, error)
	CustomerAccount(ctx context.Context, retailerID, customerID int64) (*service.AccountView, error)
	ListDebtors(ctx context.Context, retailerID int64, sort, order string) ([]ledger.Debtor, ledger.SortKey, error)
	ExportDebtors(ctx context.Context, retailerID int64, sort, order string) ([]byte, error)
	Ageing(ctx context.Context, retailerID int64) (*service.AgeingReport, error)
	RecordCredit(ctx context.Context, retailerID int64, in service.CreditInput) (*service.EntryResult, error)
	RecordPayment(ctx context.Context, retailerID int64, in service.PaymentInput) (*service.EntryResult, error)
	SendReminder(ctx context.Context, retailerID, customerID int64) (int64, error)

	CustomerBalances(ctx context.Context, phone string) (*service.CustomerOverview, error)
	CustomerRetailerAccount(ctx context.Context, phone string, retailerID int64) (*service.AccountView, error)
	RegisterDevice(ctx context.Context, phone, token, platform string) error

	Stats(ctx context.Context) (ledger.Stats, error)
	Retailers(ctx context.Context, sort string) ([]ledger.RetailerTotals, ledger.RetailerSortKey, error)
	SetRetailerStatus(ctx context.Context, admin, ip string, retailerID int64, status model.RetailerStatus) error
	AuditLog(ctx context.Context, limit int) ([]model.AuditEntry, error)
}

// Handler реализует HTTP-обработчики API сервиса учёта долгов.
type Handler struct {
	service        Service
	logger         *zap.Logger
	tokens         *middleware.TokenIssuer
	authMiddleware *middleware.AuthMiddleware
	corsOrigins    []string
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, tokens *middleware.TokenIssuer, corsOrigins []string) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		tokens:         tokens,
		authMiddleware: middleware.NewAuthMiddleware(tokens),
		corsOrigins:    corsOrigins,
	}
}

type errorResponse struct {
	Error       string            `json:"error"`
	Fields      map[string]string `json:"fields,omitempty"`
	Outstanding string            `json:"outstanding,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// decodeRequest разбирает тело запроса и проверяет его по тегам validate.
// При ошибке ответ уже записан.
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := decodeJSON(r, v); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	if err := validation.Struct(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: validation.FieldErrors(err),
		})
		return false
	}
	return true
}

// writeError сопоставляет ошибку бизнес-логики статусу ответа.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var exceeds *ledger.ExceedsBalanceError
	switch {
	case errors.As(err, &exceeds):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:       exceeds.Error(),
			Outstanding: money.Format(exceeds.Outstanding),
		})

	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidDueDays),
		errors.Is(err, money.ErrNotPositive),
		errors.Is(err, money.ErrTooPrecise),
		errors.Is(err, money.ErrTooLarge),
		errors.Is(err, validation.ErrInvalidPhone),
		errors.Is(err, service.ErrFutureDate),
		errors.Is(err, service.ErrInvalidStatus):
		writeMessage(w, http.StatusBadRequest, err.Error())

	case errors.Is(err, service.ErrNothingOutstanding):
		writeMessage(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, repository.ErrRetailerNotFound),
		errors.Is(err, repository.ErrCustomerNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())

	case errors.Is(err, repository.ErrRetailerExists),
		errors.Is(err, repository.ErrCustomerExists):
		writeMessage(w, http.StatusConflict, err.Error())

	case errors.Is(err, otp.ErrInvalidCode),
		errors.Is(err, otp.ErrExpired),
		errors.Is(err, otp.ErrNotFound),
		errors.Is(err, otp.ErrTooManyAttempts),
		errors.Is(err, service.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, service.ErrRetailerInactive):
		writeMessage(w, http.StatusForbidden, err.Error())

	default:
		h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func principal(w http.ResponseWriter, r *http.Request) (*middleware.Principal, bool) {
	p, ok := middleware.PrincipalFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
	}
	return p, ok
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Health проверяет доступность хранилища.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ping(r.Context()); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
