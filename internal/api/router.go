package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates the Chi router and registers every route. The
// health endpoint is open; everything else requires a bearer token.
func NewRouter(h *Handler, jwtSecret string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		r.Post("/bank-details/validate", h.handleValidateBankDetails)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.handleCreateAccount)
			r.Get("/{accountID}/capabilities", h.handleGetCapabilities)
			r.Post("/{accountID}/microdeposits", h.handleInitiateMicrodeposits)
			r.Post("/{accountID}/microdeposits/verify", h.handleVerifyMicrodeposits)
			r.Post("/{accountID}/prenote", h.handleGeneratePrenote)
		})

		r.Route("/strategies", func(r chi.Router) {
			r.Post("/select", h.handleSelectStrategy)
			r.Post("/estimate", h.handleEstimateCosts)
		})

		r.Route("/mandates", func(r chi.Router) {
			r.Post("/", h.handleCreateMandate)
			r.Post("/{mandateID}/validate", h.handleValidateMandate)
			r.Post("/{mandateID}/revoke", h.handleRevokeMandate)
		})

		r.Post("/transfers", h.handleQueueTransfer)
		r.Post("/transfers/{transferID}/assess", h.handleAssessTransfer)
		r.Post("/transfers/{transferID}/return", h.handleRecordReturn)
		r.Post("/batches", h.handleBuildBatch)
		r.Get("/return-codes", h.handleListReturnCodes)
	})

	return r
}
