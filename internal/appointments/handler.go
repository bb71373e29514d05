package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/booking"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// Handler exposes the appointment lifecycle over HTTP.
type Handler struct {
	machine *Machine
	logger  *logging.Logger
}

// NewHandler creates an appointments HTTP handler.
func NewHandler(machine *Machine, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{machine: machine, logger: logger}
}

// RegisterRoutes mounts appointment endpoints under a chi router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/appointments", h.create)
	r.Get("/appointments/pending", h.pending)
	r.Get("/appointments/{appointmentID}", h.get)
	r.Post("/appointments/{appointmentID}/confirm", h.confirm)
	r.Post("/appointments/{appointmentID}/reschedule", h.reschedule)
	r.Post("/appointments/{appointmentID}/cancel", h.cancel)
	r.Post("/appointments/{appointmentID}/complete", h.complete)
}

type createAppointmentRequest struct {
	DoctorID   string `json:"doctor_id"`
	PatientRef string `json:"patient_ref"`
	Date       string `json:"date"`
	Time       string `json:"time"`
	Note       string `json:"note,omitempty"`
}

type rescheduleRequest struct {
	DoctorID string `json:"doctor_id"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reason   string `json:"reason,omitempty"`
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	at, err := parseVisitTime(req.Date, req.Time)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.PatientRef == "" {
		http.Error(w, "patient_ref is required", http.StatusBadRequest)
		return
	}

	a := &Appointment{
		DoctorID:    doctorID,
		PatientRef:  req.PatientRef,
		ScheduledAt: at,
		Note:        req.Note,
	}
	if err := h.machine.Create(r.Context(), a); err != nil {
		h.writeError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	a, err := h.machine.View(r.Context(), id)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	ids := h.machine.PendingSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"pending": ids,
		"count":   len(ids),
	})
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.machine.Confirm(r.Context(), id); err != nil {
		h.writeError(w, "confirm", err)
		return
	}
	h.writeUpdated(w, r, id)
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		http.Error(w, "invalid doctor id", http.StatusBadRequest)
		return
	}
	at, err := parseVisitTime(req.Date, req.Time)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.machine.Reschedule(r.Context(), id, doctorID, at, req.Reason); err != nil {
		h.writeError(w, "reschedule", err)
		return
	}
	h.writeUpdated(w, r, id)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.machine.Cancel(r.Context(), id, req.Reason); err != nil {
		h.writeError(w, "cancel", err)
		return
	}
	h.writeUpdated(w, r, id)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.appointmentID(w, r)
	if !ok {
		return
	}
	if err := h.machine.MarkCompleted(r.Context(), id); err != nil {
		h.writeError(w, "complete", err)
		return
	}
	h.writeUpdated(w, r, id)
}

func (h *Handler) appointmentID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "appointmentID"))
	if err != nil {
		http.Error(w, "invalid appointment id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeUpdated(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	a, err := h.machine.View(r.Context(), id)
	if err != nil {
		h.writeError(w, "load updated", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrIllegalStateTransition),
		errors.Is(err, ErrOperationInFlight),
		errors.Is(err, booking.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("appointments handler: "+op, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func parseVisitTime(date, hhmm string) (time.Time, error) {
	d, err := schedule.ParseDateKey(date)
	if err != nil {
		return time.Time{}, err
	}
	minute, err := schedule.ParseMinute(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time().Add(time.Duration(minute) * time.Minute), nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
