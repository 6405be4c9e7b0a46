package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mmeshcher/creditbook/internal/model"
	"github.com/mmeshcher/creditbook/internal/money"
)

// GetStats возвращает системную статистику.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, "stats", err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		TotalRetailers:    s.TotalRetailers,
		ActiveRetailers:   s.ActiveRetailers,
		InactiveRetailers: s.InactiveRetailers,
		TotalCustomers:    s.TotalCustomers,
		TotalOutstanding:  money.Format(s.TotalOutstanding),
	})
}

// ListRetailers возвращает магазины с агрегатами.
func (h *Handler) ListRetailers(w http.ResponseWriter, r *http.Request) {
	list, key, err := h.service.Retailers(r.Context(), r.URL.Query().Get("sort"))
	if err != nil {
		h.writeError(w, r, "list retailers", err)
		return
	}

	items := make([]retailerTotalsResponse, 0, len(list))
	for _, rt := range list {
		items = append(items, newRetailerTotalsResponse(rt))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sort":      string(key),
		"retailers": items,
	})
}

// SetRetailerStatus включает или отключает магазин.
func (h *Handler) SetRetailerStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	retailerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req statusRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	err := h.service.SetRetailerStatus(r.Context(), p.Username, clientIP(r), retailerID, model.RetailerStatus(req.Status))
	if err != nil {
		h.writeError(w, r, "set retailer status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAuditLog возвращает последние действия администраторов.
func (h *Handler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeMessage(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.service.AuditLog(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, "audit log", err)
		return
	}

	resp := make([]auditResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, auditResponse{
			ID:        e.ID,
			AdminUser: e.AdminUser,
			Action:    e.Action,
			Details:   e.Details,
			IPAddress: e.IPAddress,
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
