package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-core/internal/api/handlers"
	"github.com/dvloznov/statement-core/internal/api/middleware"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Statements *handlers.StatementsHandler
	Recurring  *handlers.RecurringHandler
	Merchants  *handlers.MerchantsHandler
	Jobs       *handlers.JobsHandler
}

// NewRouter registers every API route and wraps it in the middleware chain.
// /health is served without authentication.
func NewRouter(h Handlers, defaultUser string, log zerolog.Logger) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Auth(defaultUser))

	api.HandleFunc("/statements/ingest", h.Statements.Ingest).Methods(http.MethodPost)
	api.HandleFunc("/recurring", h.Recurring.List).Methods(http.MethodGet)
	api.HandleFunc("/recurring/detect", h.Recurring.Detect).Methods(http.MethodPost)
	api.HandleFunc("/recurring/detect/async", h.Recurring.DetectAsync).Methods(http.MethodPost)
	api.HandleFunc("/merchants", h.Merchants.List).Methods(http.MethodGet)
	api.HandleFunc("/merchants", h.Merchants.Save).Methods(http.MethodPut)
	api.HandleFunc("/merchants/match", h.Merchants.Match).Methods(http.MethodPost)
	api.HandleFunc("/jobs", h.Jobs.ListJobs).Methods(http.MethodGet)
	api.HandleFunc("/jobs/{id}", h.Jobs.GetJob).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(r),
			),
		),
	)
}
