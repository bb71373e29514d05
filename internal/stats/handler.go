package stats

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// Handler exposes the statistics rollups over HTTP.
type Handler struct {
	aggregator *Aggregator
	logger     *logging.Logger
}

func NewHandler(aggregator *Aggregator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{aggregator: aggregator, logger: logger}
}

// RegisterRoutes mounts stats endpoints under a chi router.
// Expected to be mounted under /api/v1.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/doctors/{doctorID}/stats/monthly", h.monthly)
	r.Get("/doctors/{doctorID}/stats/vacation", h.vacation)
	r.Post("/doctors/{doctorID}/stats/recalculate", h.recalculate)
}

func (h *Handler) monthly(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "year must be numeric", http.StatusBadRequest)
		return
	}
	monthInt, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil || monthInt < 1 || monthInt > 12 {
		http.Error(w, "month must be 1-12", http.StatusBadRequest)
		return
	}

	stats, err := h.aggregator.MonthlyStats(r.Context(), doctorID, year, time.Month(monthInt))
	if err != nil {
		h.writeError(w, "monthly stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) vacation(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "year must be numeric", http.StatusBadRequest)
		return
	}

	stats, err := h.aggregator.YearlyStats(r.Context(), doctorID, year)
	if err != nil {
		h.writeError(w, "vacation stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type recalculateRequest struct {
	Year  int `json:"year"`
	Month int `json:"month,omitempty"`
}

// recalculate forces a rebuild. With a month it rebuilds that month and
// the year; without one it rebuilds the year only.
func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	var req recalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Year == 0 {
		http.Error(w, "year is required", http.StatusBadRequest)
		return
	}
	if req.Month != 0 {
		if req.Month < 1 || req.Month > 12 {
			http.Error(w, "month must be 1-12", http.StatusBadRequest)
			return
		}
		if err := h.aggregator.RecalculateMonth(r.Context(), doctorID, req.Year, time.Month(req.Month)); err != nil {
			h.writeError(w, "recalculate month", err)
			return
		}
	}
	if err := h.aggregator.RecalculateYear(r.Context(), doctorID, req.Year); err != nil {
		h.writeError(w, "recalculate year", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, schedule.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.logger.Error("stats handler: "+op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
