package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/offer-system/internal/middleware"
	"github.com/mmeshcher/offer-system/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/otp", h.RequestCode)
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/offers", h.ListOffers)
			r.Get("/offers/{id}", h.GetOffer)
			r.Put("/offers/{id}/like", h.ToggleLike)
			r.Put("/offers/{id}/save", h.ToggleSave)
			r.Post("/offers/{id}/claim", h.Claim)
			r.Post("/offers/{id}/redemption", h.StartRedemption)
			r.Get("/offers/{id}/redemption/qr", h.RedemptionQR)
			r.Post("/redemptions/confirm", h.ConfirmRedemption)
			r.Get("/users/profile", h.Profile)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(h.service, model.RoleAdmin))

				r.Post("/offers", h.CreateOffer)
				r.Put("/offers/{id}", h.UpdateOffer)
				r.Post("/offers/{id}/deactivate", h.DeactivateOffer)
				r.Post("/offers/{id}/activate", h.ActivateOffer)
				r.Delete("/offers/{id}", h.DeleteOffer)
				r.Post("/redemptions/verify", h.VerifyRedemption)
			})
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
