package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/creditbook/internal/middleware"
	"github.com/mmeshcher/creditbook/internal/model"
)

func (h *Handler) writeToken(w http.ResponseWriter, p middleware.Principal, retailer *model.Retailer) {
	token, exp, err := h.tokens.Issue(p)
	if err != nil {
		h.logger.Error("issue token error", zap.Error(err))
		writeMessage(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	resp := tokenResponse{
		Token:     token,
		ExpiresAt: exp.Format(time.RFC3339),
		Role:      string(p.Role),
	}
	if retailer != nil {
		resp.Retailer = newRetailerResponse(retailer)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Signup начинает регистрацию магазина и отправляет код подтверждения.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ch, err := h.service.RequestSignup(r.Context(), req.Phone, req.ShopName, req.Address)
	if err != nil {
		h.writeError(w, r, "signup", err)
		return
	}
	writeJSON(w, http.StatusAccepted, newOTPResponse(ch))
}

// VerifySignup подтверждает номер, создаёт магазин и выдаёт токен.
func (h *Handler) VerifySignup(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	retailer, err := h.service.VerifySignup(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.writeError(w, r, "verify signup", err)
		return
	}
	h.writeToken(w, middleware.Principal{Role: middleware.RoleRetailer, RetailerID: retailer.ID}, retailer)
}

// Login отправляет код входа магазину.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ch, err := h.service.RequestRetailerLogin(r.Context(), req.Phone)
	if err != nil {
		h.writeError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusAccepted, newOTPResponse(ch))
}

// VerifyLogin проверяет код входа магазина и выдаёт токен.
func (h *Handler) VerifyLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	retailer, err := h.service.VerifyRetailerLogin(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.writeError(w, r, "verify login", err)
		return
	}
	h.writeToken(w, middleware.Principal{Role: middleware.RoleRetailer, RetailerID: retailer.ID}, retailer)
}

// CustomerLogin отправляет код входа покупателю.
func (h *Handler) CustomerLogin(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ch, err := h.service.RequestCustomerLogin(r.Context(), req.Phone)
	if err != nil {
		h.writeError(w, r, "customer login", err)
		return
	}
	writeJSON(w, http.StatusAccepted, newOTPResponse(ch))
}

// VerifyCustomerLogin проверяет код покупателя. Токен покупателя привязан к номеру телефона.
func (h *Handler) VerifyCustomerLogin(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	phone, err := h.service.VerifyCustomerLogin(r.Context(), req.Phone, req.Code)
	if err != nil {
		h.writeError(w, r, "verify customer login", err)
		return
	}
	h.writeToken(w, middleware.Principal{Role: middleware.RoleCustomer, Phone: phone}, nil)
}

// AdminLogin выполняет вход администратора по паролю.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	admin, err := h.service.AdminLogin(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		h.writeError(w, r, "admin login", err)
		return
	}
	h.writeToken(w, middleware.Principal{Role: middleware.RoleAdmin, Username: admin.Username}, nil)
}
