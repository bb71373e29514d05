package appointments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/scheduling-engine/internal/observability/metrics"
	"github.com/clinicore/scheduling-engine/internal/schedule"
	"github.com/clinicore/scheduling-engine/pkg/logging"
)

// TransitionStore is the slice of the store the machine needs.
type TransitionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Create(ctx context.Context, a *Appointment) error
	SaveTransition(ctx context.Context, a *Appointment) error
}

// MinuteReserver claims and frees minute slots. Implemented by the booking
// conflict guard.
type MinuteReserver interface {
	Reserve(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey, minuteOfDay int) error
	Release(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey, minuteOfDay int) error
}

// Machine drives appointment status transitions with optimistic updates.
//
// Every mutating operation snapshots the prior record, applies the change
// to the machine's local view, writes, and on write failure restores the
// snapshot before surfacing ErrPersistenceFailure. A pending set serializes
// operations per appointment id: the second concurrent operation on the
// same id fails fast with ErrOperationInFlight. Operations on distinct ids
// proceed independently.
type Machine struct {
	store       TransitionStore
	reserver    MinuteReserver
	invalidator schedule.AvailabilityInvalidator
	metrics     *metrics.SchedulingMetrics
	logger      *logging.Logger

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
	view    map[uuid.UUID]Appointment
}

// NewMachine constructs a state machine. reserver, invalidator and metrics
// may be nil.
func NewMachine(store TransitionStore, reserver MinuteReserver, invalidator schedule.AvailabilityInvalidator, m *metrics.SchedulingMetrics, logger *logging.Logger) *Machine {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Machine{
		store:       store,
		reserver:    reserver,
		invalidator: invalidator,
		metrics:     m,
		logger:      logger,
		pending:     make(map[uuid.UUID]struct{}),
		view:        make(map[uuid.UUID]Appointment),
	}
}

// PendingSnapshot returns the ids with an operation currently in flight.
// Callers use it to gate conflicting user actions.
func (m *Machine) PendingSnapshot() []uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(m.pending))
	for id := range m.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// View returns the machine's read model for the appointment: the optimistic
// local copy when one exists, the persisted record otherwise.
func (m *Machine) View(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	if a, ok := m.view[id]; ok {
		m.mu.Unlock()
		snapshot := a
		return &snapshot, nil
	}
	m.mu.Unlock()
	return m.store.Get(ctx, id)
}

// Create books the minute slot through the conflict guard and records a new
// awaiting appointment. A failed insert frees the reserved minute again.
func (m *Machine) Create(ctx context.Context, a *Appointment) error {
	if m.reserver != nil {
		if err := m.reserver.Reserve(ctx, a.DoctorID, a.DateKey(), a.MinuteOfDay()); err != nil {
			return err
		}
	}
	if err := m.store.Create(ctx, a); err != nil {
		m.releaseMinute(ctx, a.DoctorID, a.DateKey(), a.MinuteOfDay())
		return fmt.Errorf("%w: create: %s", ErrPersistenceFailure, err)
	}
	m.invalidate(ctx, a.DoctorID, a.DateKey())
	m.logger.Info("appointment created", "appointment_id", a.ID, "doctor_id", a.DoctorID, "scheduled_at", a.ScheduledAt)
	return nil
}

// Confirm moves an awaiting (or re-scheduled) appointment to accepted.
func (m *Machine) Confirm(ctx context.Context, id uuid.UUID) error {
	return m.transition(ctx, id, StatusAccepted, func(a *Appointment) {})
}

// Cancel moves any non-terminal appointment to cancelled and records the
// reason. Irreversible. The booked minute is freed on success.
func (m *Machine) Cancel(ctx context.Context, id uuid.UUID, reason string) error {
	var freedDoctor uuid.UUID
	var freedDate schedule.DateKey
	var freedMinute int
	err := m.transition(ctx, id, StatusCancelled, func(a *Appointment) {
		freedDoctor, freedDate, freedMinute = a.DoctorID, a.DateKey(), a.MinuteOfDay()
		a.CancellationReason = reason
	})
	if err != nil {
		return err
	}
	m.releaseMinute(ctx, freedDoctor, freedDate, freedMinute)
	m.invalidate(ctx, freedDoctor, freedDate)
	return nil
}

// MarkCompleted records that the visit happened: legal only from accepted,
// sets both the completed status and the authoritative IsCompleted flag.
func (m *Machine) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return m.transition(ctx, id, StatusCompleted, func(a *Appointment) {
		a.IsCompleted = true
	})
}

// Reschedule moves an accepted appointment to a new doctor and time. The
// new minute is reserved before anything is written; the old minute is
// freed only after the write succeeds, so a failure leaves the prior
// reservation intact.
func (m *Machine) Reschedule(ctx context.Context, id uuid.UUID, newDoctorID uuid.UUID, newTime time.Time, reason string) error {
	if err := m.acquire(id); err != nil {
		return err
	}
	defer m.release(id)

	current, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(StatusScheduled) {
		m.metrics.ObserveTransition(string(current.Status), string(StatusScheduled), "illegal")
		return fmt.Errorf("%w: %s -> %s for appointment %s", ErrIllegalStateTransition, current.Status, StatusScheduled, id)
	}

	next := *current
	next.Status = StatusScheduled
	next.DoctorID = newDoctorID
	next.ScheduledAt = newTime
	next.RescheduleNote = rescheduleNote(newTime, reason)

	if m.reserver != nil {
		if err := m.reserver.Reserve(ctx, next.DoctorID, next.DateKey(), next.MinuteOfDay()); err != nil {
			m.metrics.ObserveTransition(string(current.Status), string(StatusScheduled), "conflict")
			return err
		}
	}

	prior := *current
	m.setView(next)
	if err := m.store.SaveTransition(ctx, &next); err != nil {
		m.setView(prior)
		m.releaseMinute(ctx, next.DoctorID, next.DateKey(), next.MinuteOfDay())
		m.metrics.ObserveTransition(string(prior.Status), string(StatusScheduled), "rollback")
		return fmt.Errorf("%w: reschedule %s: %s", ErrPersistenceFailure, id, err)
	}

	m.releaseMinute(ctx, prior.DoctorID, prior.DateKey(), prior.MinuteOfDay())
	m.invalidate(ctx, prior.DoctorID, prior.DateKey())
	m.invalidate(ctx, next.DoctorID, next.DateKey())
	m.metrics.ObserveTransition(string(prior.Status), string(StatusScheduled), "ok")
	m.logger.Info("appointment rescheduled", "appointment_id", id, "doctor_id", newDoctorID, "scheduled_at", newTime)
	return nil
}

// transition runs the shared optimistic-update command: gate, load, check
// legality, snapshot, apply locally, persist, roll back on failure.
func (m *Machine) transition(ctx context.Context, id uuid.UUID, to Status, mutate func(*Appointment)) error {
	if err := m.acquire(id); err != nil {
		return err
	}
	defer m.release(id)

	current, err := m.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !current.Status.CanTransitionTo(to) {
		m.metrics.ObserveTransition(string(current.Status), string(to), "illegal")
		return fmt.Errorf("%w: %s -> %s for appointment %s", ErrIllegalStateTransition, current.Status, to, id)
	}

	prior := *current
	next := *current
	next.Status = to
	mutate(&next)

	m.setView(next)
	if err := m.store.SaveTransition(ctx, &next); err != nil {
		m.setView(prior)
		m.metrics.ObserveTransition(string(prior.Status), string(to), "rollback")
		return fmt.Errorf("%w: %s %s: %s", ErrPersistenceFailure, to, id, err)
	}
	m.metrics.ObserveTransition(string(prior.Status), string(to), "ok")
	m.logger.Info("appointment transition", "appointment_id", id, "from", prior.Status, "to", to)
	return nil
}

func (m *Machine) acquire(id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.pending[id]; busy {
		return fmt.Errorf("%w: appointment %s", ErrOperationInFlight, id)
	}
	m.pending[id] = struct{}{}
	return nil
}

func (m *Machine) release(id uuid.UUID) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

func (m *Machine) setView(a Appointment) {
	m.mu.Lock()
	m.view[a.ID] = a
	m.mu.Unlock()
}

func (m *Machine) releaseMinute(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey, minute int) {
	if m.reserver == nil {
		return
	}
	if err := m.reserver.Release(ctx, doctorID, date, minute); err != nil {
		m.logger.Warn("minute release failed", "doctor_id", doctorID, "date", date, "minute", minute, "error", err)
	}
}

func (m *Machine) invalidate(ctx context.Context, doctorID uuid.UUID, date schedule.DateKey) {
	if m.invalidator == nil {
		return
	}
	if err := m.invalidator.Invalidate(ctx, doctorID, date); err != nil {
		m.logger.Warn("availability cache invalidation failed", "doctor_id", doctorID, "date", date, "error", err)
	}
}

func rescheduleNote(newTime time.Time, reason string) string {
	note := fmt.Sprintf("Rescheduled to %s %s", schedule.DateKeyFromTime(newTime.UTC()), newTime.UTC().Format("15:04"))
	if reason != "" {
		note += ": " + reason
	}
	return note
}
