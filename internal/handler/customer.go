package handler

import (
	"net/http"

	"github.com/mmeshcher/creditbook/internal/money"
)

// GetBalances возвращает задолженности покупателя перед всеми магазинами.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	o, err := h.service.CustomerBalances(r.Context(), p.Phone)
	if err != nil {
		h.writeError(w, r, "customer balances", err)
		return
	}

	resp := balancesResponse{
		Phone:     o.Phone,
		Total:     money.Format(o.Total),
		Retailers: make([]balanceResponse, 0, len(o.Balances)),
	}
	for _, b := range o.Balances {
		resp.Retailers = append(resp.Retailers, balanceResponse{
			RetailerID:  b.RetailerID,
			ShopName:    b.ShopName,
			CustomerID:  b.CustomerID,
			Outstanding: money.Format(b.Outstanding),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRetailerAccount возвращает историю покупателя в одном магазине.
func (h *Handler) GetRetailerAccount(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	retailerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.service.CustomerRetailerAccount(r.Context(), p.Phone, retailerID)
	if err != nil {
		h.writeError(w, r, "customer retailer account", err)
		return
	}
	writeJSON(w, http.StatusOK, newAccountResponse(view))
}

// RegisterDevice сохраняет токен FCM для push-уведомлений покупателю.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req deviceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.service.RegisterDevice(r.Context(), p.Phone, req.Token, req.Platform); err != nil {
		h.writeError(w, r, "register device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
