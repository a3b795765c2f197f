package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"reit_valuation/pkg/core/ingest"
	"reit_valuation/pkg/core/pipeline"
	"reit_valuation/pkg/core/report"
	"reit_valuation/pkg/core/statement"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Service is the pipeline surface the handlers need.
type Service interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
	Periods(ctx context.Context, ticker string) ([]time.Time, error)
}

// Handler serves valuation endpoints.
type Handler struct {
	svc Service
	log zerolog.Logger
}

// NewHandler creates a handler over svc.
func NewHandler(svc Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log.With().Str("component", "api").Logger()}
}

// Routes builds the router. allowedOrigins feeds the CORS policy.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HandleHealth)
	r.Route("/api/valuation", func(r chi.Router) {
		r.Get("/{ticker}/periods", h.HandlePeriods)
		r.Post("/report", h.HandleValuationReport)
		r.Post("/report.html", h.HandleValuationReportHTML)
	})
	return r
}

// HandleHealth reports liveness.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePeriods lists the selectable period dates for a ticker, newest first.
func (h *Handler) HandlePeriods(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	dates, err := h.svc.Periods(r.Context(), ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(statement.DateLayout)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ticker": ticker, "periods": out})
}

// HandleValuationReport runs a valuation and returns the result as JSON.
func (h *Handler) HandleValuationReport(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleValuationReportHTML runs a valuation and returns a rendered report.
func (h *Handler) HandleValuationReportHTML(w http.ResponseWriter, r *http.Request) {
	res, ok := h.run(w, r)
	if !ok {
		return
	}
	html, err := report.HTML(res)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) (*pipeline.Result, bool) {
	var req pipeline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return nil, false
	}

	h.log.Info().Str("ticker", req.Ticker).Str("date", req.Date).Str("mode", req.Mode).Msg("Valuation request")
	res, err := h.svc.Run(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return res, true
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		h.log.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		h.log.Warn().Err(err).Int("status", status).Msg("Request rejected")
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, statement.ErrPeriodNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrDataSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, statement.ErrMergeKeyMismatch),
		errors.Is(err, statement.ErrInsufficientHistory),
		errors.Is(err, statement.ErrDivisionUndefined):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
