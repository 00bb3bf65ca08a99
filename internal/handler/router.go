package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/paybook/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.RequestID)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)

	r.Get("/", h.Index)
	r.Get("/healthz", h.Healthz)

	r.Get("/login", h.LoginPage)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterPage)
	r.Post("/register", h.Register)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware.Middleware)

		r.Get("/logout", h.Logout)
		r.Get("/dashboard", h.Dashboard)

		r.Post("/add_customer", h.AddCustomer)
		r.Get("/customer/{id}", h.CustomerDetail)
		r.Post("/add_payment/{id}", h.AddPayment)
		r.Post("/end_customer/{id}", h.EndCustomer)
		r.Post("/delete_customer/{id}", h.DeleteCustomer)

		r.Get("/users", h.Users)
		r.Get("/user/{id}", h.UserDetail)
		r.Get("/edit_user/{id}", h.EditUserPage)
		r.Post("/edit_user/{id}", h.EditUser)
		r.Post("/update_delivery/{userID}", h.UpdateDelivery)
		r.Post("/toggle_user_status/{userID}", h.ToggleUserStatus)

		r.Get("/reports", h.Reports)
		r.Get("/settings", h.SettingsPage)
		r.Post("/settings", h.SaveSettings)
		r.Get("/backup", h.Backup)
		r.Get("/export", h.Export)
		r.Post("/import_data", h.ImportData)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
