package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"payments_ledger/internal/ledgerio"
	"payments_ledger/internal/service"
	"payments_ledger/pkg/crypto"
)

const (
	RunIDHeader = "X-Ledger-Run-ID"

	defaultMaxBodyBytes = 32 << 20
)

type APIHandler struct {
	ledgers        *service.LedgerService
	metrics        http.Handler
	logger         *slog.Logger
	maxBodyBytes   int64
	requestTimeout time.Duration
}

func NewAPIHandler(
	ledgers *service.LedgerService,
	metrics http.Handler,
	maxBodyBytes int64,
	logger *slog.Logger,
) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = defaultMaxBodyBytes
	}

	return &APIHandler{
		ledgers:        ledgers,
		metrics:        metrics,
		logger:         logger,
		maxBodyBytes:   maxBodyBytes,
		requestTimeout: 60 * time.Second,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CreateLedgerHandler builds a ledger from a transaction CSV in the request
// body. Each request is an independent run starting from an empty state.
func (h *APIHandler) CreateLedgerHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	format := negotiateFormat(r)

	report, err := h.ledgers.Run(ctx, r.Body, format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			h.sendError(w, "Request body too large", http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "")
		case errors.Is(err, service.ErrInvalidInput):
			h.sendError(w, "Invalid transaction input", http.StatusBadRequest, "INVALID_INPUT", err.Error())
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			h.sendError(w, "Ledger build timed out", http.StatusServiceUnavailable, "TIMEOUT", "")
		default:
			h.logger.ErrorContext(ctx, "Ledger build failed", slog.String("error", err.Error()))
			h.sendError(w, "Ledger build failed", http.StatusInternalServerError, "PROCESSING_ERROR", "")
		}
		return
	}

	w.Header().Set("Content-Type", report.Format.ContentType())
	w.Header().Set(RunIDHeader, report.RunID.String())
	if report.Signature != "" {
		w.Header().Set(crypto.SignatureHeader, report.Signature)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(report.Body); err != nil {
		h.logger.Warn("Failed to write ledger response",
			slog.String("run_id", report.RunID.String()),
			slog.String("error", err.Error()))
	}
}

func (h *APIHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	}
	h.sendJSON(w, response, http.StatusOK)
}

// Routes returns the router with every endpoint and middleware mounted.
func (h *APIHandler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(h.maxBodyBytes))

	r.Get("/api/health", h.HealthCheckHandler)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/ledgers", h.CreateLedgerHandler)
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	return r
}

func negotiateFormat(r *http.Request) ledgerio.Format {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return ledgerio.FormatJSON
	}
	return ledgerio.FormatCSV
}

func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to encode JSON response", slog.String("error", err.Error()))
	}
}

func (h *APIHandler) sendError(w http.ResponseWriter, message string, statusCode int, code, details string) {
	errorResponse := ErrorResponse{
		Error:   message,
		Code:    code,
		Details: details,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Warn("API error response",
		slog.String("message", message),
		slog.String("code", code),
		slog.Int("status", statusCode))
}
