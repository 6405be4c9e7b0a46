package handler

import (
	"fmt"
	"net/http"

	"github.com/mmeshcher/creditbook/internal/money"
	"github.com/mmeshcher/creditbook/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// GetProfile возвращает профиль текущего магазина.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	retailer, err := h.service.Profile(r.Context(), p.RetailerID)
	if err != nil {
		h.writeError(w, r, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, newRetailerResponse(retailer))
}

// UpdateProfile меняет название и адрес магазина.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req profileRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	retailer, err := h.service.UpdateProfile(r.Context(), p.RetailerID, req.ShopName, req.Address)
	if err != nil {
		h.writeError(w, r, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, newRetailerResponse(retailer))
}

// AddCustomer заводит покупателя текущему магазину.
func (h *Handler) AddCustomer(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	var req customerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	cust, err := h.service.AddCustomer(r.Context(), p.RetailerID, req.Name, req.Phone, req.Address)
	if err != nil {
		h.writeError(w, r, "add customer", err)
		return
	}
	writeJSON(w, http.StatusCreated, newCustomerResponse(cust))
}

// GetCustomer возвращает счёт покупателя с историей записей.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.service.CustomerAccount(r.Context(), p.RetailerID, customerID)
	if err != nil {
		h.writeError(w, r, "get customer", err)
		return
	}
	resp := newAccountResponse(view)
	resp.Retailer = nil
	writeJSON(w, http.StatusOK, resp)
}

// ListDebtors возвращает покупателей с задолженностью в запрошенном порядке.
func (h *Handler) ListDebtors(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	debtors, key, err := h.service.ListDebtors(r.Context(), p.RetailerID, q.Get("sort"), q.Get("order"))
	if err != nil {
		h.writeError(w, r, "list debtors", err)
		return
	}

	resp := debtorsResponse{
		Sort:    key.String(),
		Debtors: make([]debtorResponse, 0, len(debtors)),
	}
	var total int64
	for _, d := range debtors {
		total += d.Outstanding
		resp.Debtors = append(resp.Debtors, newDebtorResponse(d))
	}
	resp.TotalOutstanding = money.Format(total)

	writeJSON(w, http.StatusOK, resp)
}

// ExportDebtors отдаёт список должников файлом XLSX.
func (h *Handler) ExportDebtors(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	data, err := h.service.ExportDebtors(r.Context(), p.RetailerID, q.Get("sort"), q.Get("order"))
	if err != nil {
		h.writeError(w, r, "export debtors", err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="debtors.xlsx"`)
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Ageing возвращает распределение задолженности по интервалам просрочки.
func (h *Handler) Ageing(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}

	report, err := h.service.Ageing(r.Context(), p.RetailerID)
	if err != nil {
		h.writeError(w, r, "ageing report", err)
		return
	}

	resp := ageingResponse{
		Date:             report.Today.Format(dateLayout),
		Debtors:          report.Debtors,
		TotalOutstanding: money.Format(report.TotalOutstanding),
		Buckets:          make([]bucketResponse, 0, len(report.Buckets)),
	}
	for _, b := range report.Buckets {
		resp.Buckets = append(resp.Buckets, bucketResponse{
			Bucket:      string(b.Bucket),
			Debtors:     b.Debtors,
			Outstanding: money.Format(b.Outstanding),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddCredit записывает выдачу в долг.
func (h *Handler) AddCredit(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req creditRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	amount, err := money.ToMinor(req.Amount)
	if err != nil {
		h.writeError(w, r, "add credit", err)
		return
	}

	res, err := h.service.RecordCredit(r.Context(), p.RetailerID, service.CreditInput{
		CustomerID: customerID,
		Amount:     amount,
		DueDays:    req.DueDays,
		Note:       req.Note,
		Date:       parseDate(req.Date),
	})
	if err != nil {
		h.writeError(w, r, "add credit", err)
		return
	}

	writeJSON(w, http.StatusCreated, entryResponse{
		Event:       newEventResponse(res.Event),
		Outstanding: money.Format(res.Outstanding),
	})
}

// AddPayment записывает оплату. Оплата больше задолженности отклоняется с 409.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req paymentRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	amount, err := money.ToMinor(req.Amount)
	if err != nil {
		h.writeError(w, r, "add payment", err)
		return
	}

	res, err := h.service.RecordPayment(r.Context(), p.RetailerID, service.PaymentInput{
		CustomerID: customerID,
		Amount:     amount,
		Note:       req.Note,
		Date:       parseDate(req.Date),
	})
	if err != nil {
		h.writeError(w, r, "add payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, entryResponse{
		Event:       newEventResponse(res.Event),
		Outstanding: money.Format(res.Outstanding),
	})
}

// SendReminder отправляет покупателю напоминание о задолженности.
func (h *Handler) SendReminder(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	customerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	outstanding, err := h.service.SendReminder(r.Context(), p.RetailerID, customerID)
	if err != nil {
		h.writeError(w, r, "send reminder", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"outstanding": money.Format(outstanding)})
}
