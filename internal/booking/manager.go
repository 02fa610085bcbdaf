package booking

import (
	"context"
	"sync"
	"time"

	"github.com/quickbooking/qr-booking/internal/observability/metrics"
	"github.com/quickbooking/qr-booking/pkg/logging"
)

// Store persists session state between wizard commands. Implementations
// return ErrSessionNotFound for unknown or expired ids.
type Store interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

// Manager is the single owner of session state. Every command goes
// through it: it takes the per-session in-flight guard, loads the
// session, applies the flow transition, and saves the result. One
// command per session at a time; a second command while one is in
// flight gets ErrSessionBusy, never queued, because the upstream
// booking call is not idempotent.
type Manager struct {
	flow    *Flow
	store   Store
	ttl     time.Duration
	metrics *metrics.BookingMetrics
	logger  *logging.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewManager wires a manager. metrics may be nil.
func NewManager(flow *Flow, store Store, ttl time.Duration, m *metrics.BookingMetrics, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		flow:     flow,
		store:    store,
		ttl:      ttl,
		metrics:  m,
		logger:   logger,
		inflight: make(map[string]struct{}),
	}
}

func (m *Manager) acquire(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inflight[id]; busy {
		return ErrSessionBusy
	}
	m.inflight[id] = struct{}{}
	return nil
}

func (m *Manager) release(id string) {
	m.mu.Lock()
	delete(m.inflight, id)
	m.mu.Unlock()
}

// StartSession creates and stores a session for the given launch
// context. The session is stored even when the launch is invalid so the
// presenter can re-render the terminal error screen.
func (m *Manager) StartSession(ctx context.Context, launch LaunchContext) (*Session, error) {
	s, startErr := m.flow.Start(launch)
	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		return nil, err
	}
	m.metrics.ObserveSessionStarted(outcome(startErr))
	return s, startErr
}

// GetSession loads a session without applying any transition.
func (m *Manager) GetSession(ctx context.Context, id string) (*Session, error) {
	return m.store.Load(ctx, id)
}

// SubmitDetails validates, registers and loads slots for the session.
func (m *Manager) SubmitDetails(ctx context.Context, id string, d PatientDetails) (*Session, error) {
	return m.apply(ctx, id, "submit_details", func(s *Session) error {
		return m.flow.SubmitDetails(ctx, s, d)
	})
}

// NavigateDate moves the date cursor by direction.
func (m *Manager) NavigateDate(ctx context.Context, id string, direction int) (*Session, error) {
	return m.apply(ctx, id, "navigate_date", func(s *Session) error {
		return m.flow.NavigateDate(s, direction)
	})
}

// SelectSlot picks a slot by id and moves to confirmation.
func (m *Manager) SelectSlot(ctx context.Context, id, slotID string) (*Session, error) {
	return m.apply(ctx, id, "select_slot", func(s *Session) error {
		return m.flow.SelectSlot(s, slotID)
	})
}

// ReturnToDetails resets the session back to the details screen.
func (m *Manager) ReturnToDetails(ctx context.Context, id string) (*Session, error) {
	return m.apply(ctx, id, "return_to_details", func(s *Session) error {
		return m.flow.ReturnToDetails(s)
	})
}

// ConfirmBooking books the selected slot.
func (m *Manager) ConfirmBooking(ctx context.Context, id string) (*Session, error) {
	return m.apply(ctx, id, "confirm_booking", func(s *Session) error {
		return m.flow.ConfirmBooking(ctx, s)
	})
}

// apply runs one guarded load-transition-save cycle. The session is
// returned alongside the command error: a failed transition still has a
// well-defined resulting screen the presenter needs to render.
func (m *Manager) apply(ctx context.Context, id, command string, fn func(*Session) error) (*Session, error) {
	if err := m.acquire(id); err != nil {
		m.metrics.ObserveTransition(command, "busy")
		return nil, err
	}
	defer m.release(id)

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	cmdErr := fn(s)
	s.UpdatedAt = time.Now()

	if err := m.store.Save(ctx, s, m.ttl); err != nil {
		m.logger.Error("failed to save session", "session_id", id, "error", err)
		return nil, err
	}
	m.metrics.ObserveTransition(command, outcome(cmdErr))
	return s, cmdErr
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
