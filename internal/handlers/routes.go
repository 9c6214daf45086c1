package handlers

import (
	"net/http"
	"time"

	"tenderportal/internal/middleware"
	"tenderportal/internal/policy"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Routes собирает маршрутизатор API.
func (h *Handler) Routes(auth middleware.Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(auth))

			// вход и регистрация
			r.Post("/auth/login", h.LoginHandler)
			r.Post("/auth/register", h.RegisterHandler)
			r.With(middleware.RequireRoute(policy.RequireLogin)).Get("/auth/me", h.MeHandler)
			r.With(middleware.RequireRoute(policy.RequireAdmin)).Post("/auth/admin/register", h.RegisterAdminHandler)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoute(policy.RequireLogin))

				// тендеры
				r.Get("/tenders", h.GetTendersHandler)
				r.Get("/tenders/{tenderId}", h.GetTenderHandler)
				// предложения (bids)
				r.Post("/bids", h.CreateBidHandler)
				r.Get("/bids/my", h.GetUserBidsHandler)
				r.Get("/bids/tender/{tenderId}", h.GetBidsForTenderHandler)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoute(policy.RequireAdmin))

				r.Post("/tenders", h.CreateTenderHandler)
				r.Patch("/tenders/{tenderId}", h.EditTenderHandler)
				r.Delete("/tenders/{tenderId}", h.DeleteTenderHandler)
				r.Post("/tenders/{tenderId}/publish", h.PublishTenderHandler)
				r.Post("/tenders/{tenderId}/close", h.CloseTenderHandler)
				r.Post("/tenders/{tenderId}/award", h.AwardTenderHandler)
				r.Post("/tenders/{tenderId}/cancel", h.CancelTenderHandler)
				r.Get("/tenders/{tenderId}/history", h.TenderHistoryHandler)
				r.Patch("/bids/{bidId}/status", h.UpdateBidStatusHandler)

				r.Get("/users", h.GetUsersHandler)
				r.Patch("/users/{userId}", h.EditUserHandler)

				r.Get("/license/status", h.LicenseStatusHandler)
				r.Post("/license/configure", h.ConfigureLicenseHandler)
			})
		})
	})
	return r
}
