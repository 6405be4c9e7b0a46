package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/creditbook/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса учёта долгов.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimiddleware.Recoverer)
	if len(h.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: h.corsOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "Content-Encoding"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	auth := h.authMiddleware

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/signup/verify", h.VerifySignup)
			r.Post("/login", h.Login)
			r.Post("/login/verify", h.VerifyLogin)
		})

		r.Route("/retailer", func(r chi.Router) {
			r.Use(auth.Require(custommiddleware.RoleRetailer))

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)

			r.Get("/debtors", h.ListDebtors)
			r.Get("/debtors/export", h.ExportDebtors)
			r.Get("/ageing", h.Ageing)

			r.Post("/customers", h.AddCustomer)
			r.Route("/customers/{id}", func(r chi.Router) {
				r.Get("/", h.GetCustomer)
				r.Post("/credits", h.AddCredit)
				r.Post("/payments", h.AddPayment)
				r.Post("/remind", h.SendReminder)
			})
		})

		r.Route("/customer", func(r chi.Router) {
			r.Post("/auth/login", h.CustomerLogin)
			r.Post("/auth/login/verify", h.VerifyCustomerLogin)

			r.Group(func(r chi.Router) {
				r.Use(auth.Require(custommiddleware.RoleCustomer))

				r.Get("/balances", h.GetBalances)
				r.Get("/retailers/{id}", h.GetRetailerAccount)
				r.Post("/devices", h.RegisterDevice)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", h.AdminLogin)

			r.Group(func(r chi.Router) {
				r.Use(auth.Require(custommiddleware.RoleAdmin))

				r.Get("/stats", h.GetStats)
				r.Get("/retailers", h.ListRetailers)
				r.Put("/retailers/{id}/status", h.SetRetailerStatus)
				r.Get("/audit", h.GetAuditLog)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
