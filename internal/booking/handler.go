package booking

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// Handler exposes minute-slot reservation over HTTP.
type Handler struct {
	guard  *Guard
	logger *logging.Logger
}

// NewHandler creates a booking HTTP handler.
func NewHandler(guard *Guard, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{guard: guard, logger: logger}
}

// RegisterRoutes mounts reservation endpoints under a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/doctors/{doctorID}/reservations", h.reserve)
	r.Delete("/doctors/{doctorID}/reservations", h.release)
}

type reservationRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	doctorID, date, minute, ok := h.parseReservation(w, r)
	if !ok {
		return
	}
	if err := h.guard.Reserve(r.Context(), doctorID, date, minute); err != nil {
		if errors.Is(err, ErrConflict) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.logger.Error("booking handler: reserve", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"doctor_id": doctorID,
		"date":      date,
		"minute":    minute,
	})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	doctorID, date, minute, ok := h.parseReservation(w, r)
	if !ok {
		return
	}
	if err := h.guard.Release(r.Context(), doctorID, date, minute); err != nil {
		h.logger.Error("booking handler: release", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) parseReservation(w http.ResponseWriter, r *http.Request) (uuid.UUID, schedule.DateKey, int, bool) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return uuid.Nil, "", 0, false
	}
	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return uuid.Nil, "", 0, false
	}
	date, err := schedule.ParseDateKey(req.Date)
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return uuid.Nil, "", 0, false
	}
	minute, err := schedule.ParseMinute(req.Time)
	if err != nil {
		http.Error(w, "time must be HH:MM", http.StatusBadRequest)
		return uuid.Nil, "", 0, false
	}
	return doctorID, date, minute, true
}
