package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/dvloznov/finance-health/internal/advice"
	"github.com/dvloznov/finance-health/internal/api/middleware"
	"github.com/dvloznov/finance-health/internal/categorize"
	"github.com/dvloznov/finance-health/internal/domain"
	"github.com/dvloznov/finance-health/internal/jobs"
	"github.com/dvloznov/finance-health/internal/logger"
	"github.com/dvloznov/finance-health/internal/report"
	"github.com/dvloznov/finance-health/internal/session"
)

// MaxUploadBytes caps the body of a file upload.
const MaxUploadBytes = 32 << 20

// DefaultTransactionLimit applies when ?limit is absent.
const DefaultTransactionLimit = 1000

// SessionStore is the part of session.Store used by the API.
type SessionStore interface {
	Create(ctx context.Context, title, notes string) (session.Session, error)
	Get(ctx context.Context, id string) (session.Session, error)
	List(ctx context.Context) ([]session.Session, error)
	SaveOriginal(ctx context.Context, id, name string, data []byte) error
	Originals(ctx context.Context, id string) ([]string, error)
	ReadTable(ctx context.Context, id string) ([]domain.Transaction, error)
	ReadReport(ctx context.Context, id string) (*report.Report, error)
	WriteReport(ctx context.Context, id string, r *report.Report) error
	CategoryMap(ctx context.Context, id string) (*categorize.CategoryMap, error)
}

// AdviceGenerator produces advice for a table.
type AdviceGenerator interface {
	Generate(ctx context.Context, txs []domain.Transaction) advice.Result
}

// SessionsHandler handles the /api/sessions endpoints.
type SessionsHandler struct {
	store     SessionStore
	publisher jobs.Publisher
	advice    AdviceGenerator
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(store SessionStore, publisher jobs.Publisher, adv AdviceGenerator) *SessionsHandler {
	return &SessionsHandler{store: store, publisher: publisher, advice: adv}
}

// sessionView is a session with its uploaded originals.
type sessionView struct {
	session.Session
	Files []string `json:"files"`
}

// ListSessions handles GET /api/sessions
func (h *SessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessions, err := h.store.List(ctx)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list sessions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []session.Session{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": sessions,
		"count":    len(sessions),
	})
}

// CreateSession handles POST /api/sessions
func (h *SessionsHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
		Notes string `json:"notes"`
	}
	// An empty body creates an untitled session.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	sess, err := h.store.Create(ctx, req.Title, req.Notes)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to create session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, sess)
}

// GetSession handles GET /api/sessions/{id}
func (h *SessionsHandler) GetSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	sess, ok := h.lookup(w, r, sessionID)
	if !ok {
		return
	}
	files, err := h.store.Originals(ctx, sessionID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to list originals")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read session")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sessionView{Session: sess, Files: files})
}

// UploadFile handles POST /api/sessions/{id}/files?filename=...
// The raw request body is stored as a session original.
func (h *SessionsHandler) UploadFile(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		middleware.WriteError(w, http.StatusBadRequest, "filename is required")
		return
	}
	if _, ok := h.lookup(w, r, sessionID); !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read body")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Empty file")
		return
	}

	if err := h.store.SaveOriginal(ctx, sessionID, filename, data); err != nil {
		if errors.Is(err, session.ErrInvalidName) {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid filename")
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to store upload")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	log.Info().
		Str("session_id", sessionID).
		Str("file", filename).
		Int("bytes", len(data)).
		Msg("File uploaded successfully")

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sessionID,
		"filename":   filename,
		"bytes":      len(data),
		"status":     "uploaded",
	})
}

// EnqueueIngest handles POST /api/sessions/{id}/ingest
// An empty body or file list ingests every uploaded original.
func (h *SessionsHandler) EnqueueIngest(w http.ResponseWriter, r *http.Request, sessionID string) {
	var req struct {
		Files []string `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	log := logger.FromContext(ctx)

	if _, ok := h.lookup(w, r, sessionID); !ok {
		return
	}
	originals, err := h.store.Originals(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to list originals")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingestion job")
		return
	}
	if len(originals) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "No files uploaded")
		return
	}
	known := make(map[string]bool, len(originals))
	for _, name := range originals {
		known[name] = true
	}
	for _, name := range req.Files {
		if !known[name] {
			middleware.WriteError(w, http.StatusBadRequest, "Unknown file: "+name)
			return
		}
	}

	job := &jobs.IngestJob{SessionID: sessionID, Files: req.Files}
	if err := h.publisher.PublishIngest(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue ingestion job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue ingestion job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("session_id", sessionID).Msg("Ingestion job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":     job.JobID,
		"session_id": sessionID,
		"status":     string(job.Status),
	})
}

// ListTransactions handles GET /api/sessions/{id}/transactions?limit=N
func (h *SessionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	limit := DefaultTransactionLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	if _, ok := h.lookup(w, r, sessionID); !ok {
		return
	}
	txs, err := h.store.ReadTable(ctx, sessionID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read table")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read transactions")
		return
	}

	total := len(txs)
	if limit < len(txs) {
		txs = txs[:limit]
	}
	rows := make([]transactionView, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, newTransactionView(tx))
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": rows,
		"count":        len(rows),
		"total":        total,
	})
}

// GetReport handles GET /api/sessions/{id}/report
func (h *SessionsHandler) GetReport(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	if _, ok := h.lookup(w, r, sessionID); !ok {
		return
	}
	rep, err := h.store.ReadReport(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Report not found, ingest files first")
		return
	}
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read report")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, rep)
}

// GenerateAdvice handles POST /api/sessions/{id}/advice
// The advice is stored into the session report.
func (h *SessionsHandler) GenerateAdvice(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()
	log := logger.FromContext(ctx).With().Str("session_id", sessionID).Logger()

	if _, ok := h.lookup(w, r, sessionID); !ok {
		return
	}
	rep, err := h.store.ReadReport(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Report not found, ingest files first")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read report")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read report")
		return
	}
	txs, err := h.store.ReadTable(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read table")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read transactions")
		return
	}

	res := h.advice.Generate(ctx, txs)
	rep.SetAdvice(res.Markdown)
	if err := h.store.WriteReport(ctx, sessionID, rep); err != nil {
		log.Error().Err(err).Msg("Failed to store advice")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store advice")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"advice":     res.Markdown,
		"generated":  res.Generated,
		"score":      res.Score,
	})
}

// GetCategories handles GET /api/sessions/{id}/categories
func (h *SessionsHandler) GetCategories(w http.ResponseWriter, r *http.Request, sessionID string) {
	ctx := r.Context()

	if _, ok := h.lookup(w, r, sessionID); !ok {
		return
	}
	cm, err := h.store.CategoryMap(ctx, sessionID)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to read category map")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read categories")
		return
	}
	entries := cm.Entries()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": domain.CategoryNames(),
		"map":        entries,
		"count":      len(entries),
	})
}

// lookup writes 404 for unknown sessions.
func (h *SessionsHandler) lookup(w http.ResponseWriter, r *http.Request, sessionID string) (session.Session, bool) {
	sess, err := h.store.Get(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Session not found")
		return session.Session{}, false
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to get session")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get session")
		return session.Session{}, false
	}
	return sess, true
}
