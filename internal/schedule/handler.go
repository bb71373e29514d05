package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// Handler exposes slot resolution and slot CRUD over HTTP.
type Handler struct {
	service  *Service
	resolver *Resolver
	logger   *logging.Logger
}

// NewHandler creates a schedule HTTP handler.
func NewHandler(service *Service, resolver *Resolver, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, resolver: resolver, logger: logger}
}

// RegisterRoutes mounts schedule endpoints under a chi router.
// Expected to be mounted under /api/v1.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/doctors/{doctorID}/slots", h.resolveSlots)
	r.Post("/doctors/{doctorID}/slots", h.createSlot)
	r.Delete("/slots/{slotID}", h.deleteSlot)
	r.Post("/doctors/{doctorID}/months/{month}/materialize", h.materializeMonth)
}

type createSlotRequest struct {
	DayOfWeek               *int   `json:"day_of_week,omitempty"`
	SpecificDate            string `json:"specific_date,omitempty"`
	StartTime               string `json:"start_time"`
	EndTime                 string `json:"end_time"`
	Status                  string `json:"status"`
	Type                    string `json:"type,omitempty"`
	Room                    string `json:"room,omitempty"`
	ConsultationFeeCents    int    `json:"consultation_fee_cents,omitempty"`
	AppointmentDurationMins *int   `json:"appointment_duration_minutes,omitempty"`
}

func (h *Handler) resolveSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	date, err := ParseDateKey(r.URL.Query().Get("date"))
	if err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	slots, err := h.resolver.Resolve(r.Context(), doctorID, date)
	if err != nil {
		h.writeError(w, "resolve slots", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id": doctorID,
		"date":      date,
		"slots":     slots,
		"count":     len(slots),
	})
}

func (h *Handler) createSlot(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	var req createSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	slot, err := req.toSlot(doctorID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.service.CreateSlot(r.Context(), slot); err != nil {
		h.writeError(w, "create slot", err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

func (h *Handler) deleteSlot(w http.ResponseWriter, r *http.Request) {
	slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		http.Error(w, "invalid slot id", http.StatusBadRequest)
		return
	}
	if err := h.service.DeleteSlot(r.Context(), slotID); err != nil {
		h.writeError(w, "delete slot", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) materializeMonth(w http.ResponseWriter, r *http.Request) {
	doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	year, month, err := parseYearMonth(chi.URLParam(r, "month"))
	if err != nil {
		http.Error(w, "month must be YYYY-MM", http.StatusBadRequest)
		return
	}

	created, err := h.service.EnsureMonthMaterialized(r.Context(), doctorID, year, month)
	if err != nil {
		h.writeError(w, "materialize month", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"doctor_id":     doctorID,
		"year":          year,
		"month":         int(month),
		"slots_created": created,
	})
}

func (req *createSlotRequest) toSlot(doctorID uuid.UUID) (*Slot, error) {
	start, err := ParseMinute(req.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseMinute(req.EndTime)
	if err != nil {
		return nil, err
	}
	slot := &Slot{
		DoctorID:                doctorID,
		DayOfWeek:               req.DayOfWeek,
		StartMinute:             start,
		EndMinute:               end,
		Status:                  SlotStatus(req.Status),
		Type:                    SlotType(req.Type),
		Room:                    req.Room,
		ConsultationFeeCents:    req.ConsultationFeeCents,
		AppointmentDurationMins: req.AppointmentDurationMins,
	}
	if req.SpecificDate != "" {
		date, err := ParseDateKey(req.SpecificDate)
		if err != nil {
			return nil, err
		}
		slot.SpecificDate = &date
	}
	return slot, nil
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidSlot):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrInsufficientVacationBalance):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrPastRecordImmutable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("schedule handler: "+op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseYearMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Year(), t.Month(), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
