package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/bazar-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса управления базаром.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/user/register", h.Register)
		r.Post("/user/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/institution", h.GetInstitution)
			r.Put("/institution", h.SaveInstitution)

			r.Post("/products", h.AddProduct)
			r.Get("/products", h.GetProducts)
			r.Delete("/products/{id}", h.DeleteProduct)

			r.Post("/donations", h.RegisterDonation)
			r.Get("/donations", h.GetDonations)
			r.Post("/donations/{id}/resolve", h.ResolveDonation)

			r.Post("/donors", h.CreateDonor)
			r.Get("/donors", h.GetDonors)

			r.Post("/customers", h.CreateCustomer)
			r.Get("/customers", h.GetCustomers)
			r.Put("/customers/{id}/profile", h.UpdateCustomerProfile)

			r.Post("/pos/checkout", h.Checkout)
			r.Post("/transactions/expense", h.RecordExpense)
			r.Get("/transactions", h.GetTransactions)
			r.Get("/transactions/summary", h.GetSummary)

			r.Post("/partners", h.CreatePartner)
			r.Get("/partners", h.GetPartners)

			r.Post("/goals", h.CreateSocialGoal)
			r.Get("/goals", h.GetSocialGoals)

			r.Get("/backup", h.ExportBackup)
			r.Post("/backup/restore", h.RestoreBackup)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
