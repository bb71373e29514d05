package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// Handler exposes availability generation over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates an availability HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts availability endpoints under a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/doctors/{doctorID}/availability", h.getAvailability)
}

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	date, err := schedule.ParseDateKey(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	var durationOverride *int
	if raw := r.URL.Query().Get("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil || d <= 0 {
			http.Error(w, "duration must be a positive integer", http.StatusBadRequest)
			return
		}
		durationOverride = &d
	}

	minutes, err := h.service.Availability(r.Context(), doctorID, date, durationOverride)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("availability handler: generate", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	times := make([]string, 0, len(minutes))
	for _, m := range minutes {
		times = append(times, schedule.FormatMinute(m))
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"doctor_id": doctorID,
		"date":      date,
		"times":     times,
		"minutes":   minutes,
		"count":     len(minutes),
	})
}
