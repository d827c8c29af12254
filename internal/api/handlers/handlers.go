package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-core/internal/api/middleware"
	"github.com/dvloznov/statement-core/internal/domain"
	"github.com/dvloznov/statement-core/internal/jobs"
	"github.com/dvloznov/statement-core/internal/logger"
	"github.com/dvloznov/statement-core/internal/merchant"
	"github.com/dvloznov/statement-core/internal/pipeline"
	"github.com/dvloznov/statement-core/internal/statement"
	"github.com/dvloznov/statement-core/internal/store"
)

// StatementIngester runs uploads through the ingestion pipeline.
type StatementIngester interface {
	Ingest(ctx context.Context, userID string, req pipeline.Request) (*pipeline.PipelineState, error)
	Preview(ctx context.Context, userID string, req pipeline.Request) (*pipeline.PipelineState, error)
}

// StatementsHandler handles statement ingestion.
type StatementsHandler struct {
	ingester StatementIngester
	maxBytes int64
}

// NewStatementsHandler creates a new statements handler. maxBytes bounds
// the request body; zero means unbounded.
func NewStatementsHandler(ingester StatementIngester, maxBytes int64) *StatementsHandler {
	return &StatementsHandler{ingester: ingester, maxBytes: maxBytes}
}

// Ingest handles POST /api/statements/ingest. With ?dryRun=true the
// statement is extracted but nothing is archived or stored.
func (h *StatementsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	body := r.Body
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	var req IngestRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Statement file is too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FileContent == "" || req.FileName == "" {
		middleware.WriteError(w, http.StatusBadRequest, "fileContent and fileName are required")
		return
	}

	content, err := decodeFileContent(req.FileContent)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "fileContent must be base64 encoded")
		return
	}

	preq := pipeline.Request{Content: content, FileName: req.FileName, FileType: req.FileType}
	userID := middleware.UserIDFromContext(ctx)
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dryRun"))

	run := h.ingester.Ingest
	if dryRun {
		run = h.ingester.Preview
	}
	state, err := run(ctx, userID, preq)
	if err != nil {
		writeStatementError(w, log, err)
		return
	}

	resp := NewIngestResponse(state.Statement)
	if !dryRun {
		resp.Persisted = &PersistedResponse{
			Inserted: state.Result.Inserted,
			Skipped:  state.Result.Skipped,
			Failed:   state.Result.Failed,
		}
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// decodeFileContent accepts plain base64 or a data URL.
func decodeFileContent(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			s = s[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// writeStatementError maps terminal user-facing errors to 4xx responses
// carrying their message; anything else is a 500.
func writeStatementError(w http.ResponseWriter, log zerolog.Logger, err error) {
	uf, ok := statement.UserFacing(err)
	if !ok {
		log.Error().Err(err).Msg("Statement ingestion failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to process statement")
		return
	}

	status := http.StatusUnprocessableEntity
	switch uf.(type) {
	case *statement.FormatUnsupportedError, *statement.MissingColumnsError:
		status = http.StatusBadRequest
	}
	log.Warn().Err(uf).Int("status", status).Msg("Statement rejected")
	middleware.WriteError(w, status, uf.Error())
}

// RecurringHandler handles recurring payment detection and listing.
type RecurringHandler struct {
	detector  jobs.RecurringDetector
	items     store.RecurringStore
	publisher jobs.Publisher
}

// NewRecurringHandler creates a new recurring handler. publisher may be nil,
// in which case asynchronous detection is unavailable.
func NewRecurringHandler(detector jobs.RecurringDetector, items store.RecurringStore, publisher jobs.Publisher) *RecurringHandler {
	return &RecurringHandler{detector: detector, items: items, publisher: publisher}
}

func decodeDetectRequest(r *http.Request) (DetectRequest, error) {
	var req DetectRequest
	if r.ContentLength == 0 {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	if req.LookbackMonths < 0 || req.LookbackMonths > 12 {
		return req, errors.New("lookbackMonths must be between 1 and 12")
	}
	return req, nil
}

// Detect handles POST /api/recurring/detect
func (h *RecurringHandler) Detect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := decodeDetectRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	res, err := h.detector.Detect(ctx, middleware.UserIDFromContext(ctx), req.LookbackMonths)
	if err != nil {
		log.Error().Err(err).Msg("Recurring detection failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to detect recurring payments")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, NewDetectResponse(res))
}

// DetectAsync handles POST /api/recurring/detect/async
func (h *RecurringHandler) DetectAsync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Background detection is not enabled")
		return
	}

	req, err := decodeDetectRequest(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	job := &jobs.DetectRecurringJob{
		UserID:         middleware.UserIDFromContext(ctx),
		LookbackMonths: req.LookbackMonths,
		Trigger:        "api",
	}
	if err := h.publisher.PublishDetectRecurring(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue detection job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue detection job")
		return
	}

	log.Info().Str("job_id", job.JobID).Msg("Detection job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"job_id":  job.JobID,
		"status":  string(job.Status),
	})
}

// List handles GET /api/recurring
func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.items.ListRecurringItems(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list recurring items")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list recurring items")
		return
	}

	out := make([]RecurringItemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, newRecurringItemResponse(item))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   out,
		"count":   len(out),
	})
}

// MerchantsHandler handles known merchant records and matching.
type MerchantsHandler struct {
	merchants store.MerchantStore
}

// NewMerchantsHandler creates a new merchants handler.
func NewMerchantsHandler(merchants store.MerchantStore) *MerchantsHandler {
	return &MerchantsHandler{merchants: merchants}
}

// Match handles POST /api/merchants/match
func (h *MerchantsHandler) Match(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Target) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "target is required")
		return
	}

	var candidates []*domain.MerchantRecord
	if len(req.Candidates) > 0 {
		for _, name := range req.Candidates {
			candidates = append(candidates, &domain.MerchantRecord{ID: uuid.New().String(), Name: name})
		}
	} else {
		records, err := h.merchants.ListMerchants(ctx, middleware.UserIDFromContext(ctx))
		if err != nil {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Msg("Failed to list merchants")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to list merchants")
			return
		}
		candidates = records
	}

	resp := MatchResponse{Success: true}
	if m, ok := merchant.FindBestMatch(req.Target, candidates, req.Threshold); ok {
		resp.Matched = true
		resp.Merchant = m.Record.Name
		resp.DisplayName = m.Record.Label()
		resp.Category = m.Record.Category
		resp.Score = m.Score
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

// List handles GET /api/merchants
func (h *MerchantsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	records, err := h.merchants.ListMerchants(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list merchants")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list merchants")
		return
	}

	merchants := make([]MerchantResponse, 0, len(records))
	for _, m := range records {
		merchants = append(merchants, newMerchantResponse(m))
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"merchants": merchants,
		"count":     len(merchants),
	})
}

// Save handles PUT /api/merchants. Records are keyed by user and pattern,
// so saving the same pattern again replaces the earlier record.
func (h *MerchantsHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)

	var req MerchantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	name := merchant.NormalizeName(req.Name)
	if strings.TrimSpace(req.Name) == "" || name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	pattern := strings.ToUpper(strings.TrimSpace(req.Pattern))
	if pattern == "" {
		pattern = merchant.ExtractCore(name)
	}

	record := &domain.MerchantRecord{
		ID:          pipeline.MerchantID(userID, pattern),
		UserID:      userID,
		Name:        name,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Pattern:     pattern,
		Category:    strings.TrimSpace(req.Category),
	}
	if err := h.merchants.UpsertMerchant(ctx, record); err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Str("pattern", pattern).Msg("Failed to save merchant")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save merchant")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"merchant": newMerchantResponse(record),
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore) *JobsHandler {
	return &JobsHandler{store: store}
}

// GetJob handles GET /api/jobs/{id}. Jobs of other users are reported as
// not found.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := mux.Vars(r)["id"]

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil || job.UserID != middleware.UserIDFromContext(ctx) {
		if err != nil && !errors.Is(err, jobs.ErrNotFound) {
			log := logger.FromContext(ctx)
			log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
			return
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: middleware.UserIDFromContext(ctx),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		log := logger.FromContext(ctx)
		log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	if jobsList == nil {
		jobsList = []*jobs.DetectRecurringJob{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
