// Package api exposes sessions, ingestion jobs and reports over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/dvloznov/finance-health/internal/api/handlers"
	"github.com/dvloznov/finance-health/internal/api/middleware"
	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/rs/zerolog"
)

// Deps are the services behind the routes.
type Deps struct {
	Sessions  handlers.SessionStore
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Advice    handlers.AdviceGenerator
	Log       zerolog.Logger
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(d Deps) http.Handler {
	sessions := handlers.NewSessionsHandler(d.Sessions, d.Publisher, d.Advice)
	jobsHandler := handlers.NewJobsHandler(d.Jobs)

	withID := func(fn func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			fn(w, r, r.PathValue("id"))
		}
	}

	mux := http.NewServeMux()

	// Sessions endpoints
	mux.HandleFunc("GET /api/sessions", sessions.ListSessions)
	mux.HandleFunc("POST /api/sessions", sessions.CreateSession)
	mux.HandleFunc("GET /api/sessions/{id}", withID(sessions.GetSession))
	mux.HandleFunc("POST /api/sessions/{id}/files", withID(sessions.UploadFile))
	mux.HandleFunc("POST /api/sessions/{id}/ingest", withID(sessions.EnqueueIngest))
	mux.HandleFunc("GET /api/sessions/{id}/transactions", withID(sessions.ListTransactions))
	mux.HandleFunc("GET /api/sessions/{id}/report", withID(sessions.GetReport))
	mux.HandleFunc("POST /api/sessions/{id}/advice", withID(sessions.GenerateAdvice))
	mux.HandleFunc("GET /api/sessions/{id}/categories", withID(sessions.GetCategories))

	// Jobs endpoints
	mux.HandleFunc("GET /api/jobs", jobsHandler.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", withID(jobsHandler.GetJob))

	// Health check endpoint
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Chain(d.Log, mux)
}
