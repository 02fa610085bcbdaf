// Package booking drives the QR booking wizard: one session per QR
// scan, moving through details -> slots -> confirm -> success, backed
// by the remote scheduling API.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/quickbooking/qr-booking/internal/slots"
	"github.com/quickbooking/qr-booking/pkg/logging"
)

// Screen tags the wizard screen a session currently shows. Loading
// phases (registration+slot fetch, the booking call) run to completion
// inside a single command, so a stored session always rests on one of
// these.
type Screen string

const (
	ScreenDetails Screen = "details"
	ScreenSlots   Screen = "slots"
	ScreenConfirm Screen = "confirm"
	ScreenSuccess Screen = "success"
	ScreenError   Screen = "error" // terminal, invalid launch only
)

// PendingConfirmation is shown when the API books the appointment but
// omits an identifier in its response.
const PendingConfirmation = "Pending"

// RegisteredUser is the identity the scheduling API assigned to this
// patient. Registration is idempotent by phone number upstream; an
// "already exists" answer is a success with IsExisting set.
type RegisteredUser struct {
	UserID     string `json:"user_id"`
	IsExisting bool   `json:"is_existing"`
}

// Confirmation carries the outcome of a successful booking.
type Confirmation struct {
	AppointmentID string `json:"appointment_id"`
}

// BookingRequest is what the flow hands the scheduler to book a slot.
type BookingRequest struct {
	UserID        string
	DoctorID      string
	WorkplaceID   string
	RequestedTime string // RFC3339 instant derived from the slot date
	Slot          string // display time exactly as surfaced to the patient
	Notes         string
}

// Scheduler is the outbound face of the wizard: registration, slot
// fetch and booking against the remote scheduling API. The slot payload
// comes back raw; the flow normalizes it.
type Scheduler interface {
	Register(ctx context.Context, details PatientDetails) (RegisteredUser, error)
	FetchSlots(ctx context.Context, doctorID, workplaceID string) (json.RawMessage, error)
	Book(ctx context.Context, req BookingRequest) (Confirmation, error)
}

// Session is the whole state of one wizard visit. It is owned by the
// Manager and mutated only through Flow transitions; everything on it
// is JSON-serializable so it can round-trip through the session store.
type Session struct {
	ID           string          `json:"id"`
	Launch       LaunchContext   `json:"launch"`
	Screen       Screen          `json:"screen"`
	Details      *PatientDetails `json:"details,omitempty"`
	User         *RegisteredUser `json:"user,omitempty"`
	Catalog      slots.Catalog   `json:"catalog"`
	Selected     *slots.Slot     `json:"selected,omitempty"`
	Confirmation *Confirmation   `json:"confirmation,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Flow applies wizard transitions to a session. It is stateless itself;
// all per-visit state lives on the Session.
type Flow struct {
	scheduler Scheduler
	logger    *logging.Logger
	now       func() time.Time
}

// NewFlow creates a flow backed by the given scheduler.
func NewFlow(scheduler Scheduler, logger *logging.Logger) *Flow {
	if logger == nil {
		logger = logging.Default()
	}
	return &Flow{
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// Start creates a session from the launch parameters. A launch without
// both ids lands on the terminal error screen; no API call can succeed
// without them, so there is nothing to retry.
func (f *Flow) Start(launch LaunchContext) (*Session, error) {
	now := f.now()
	s := &Session{
		ID:        uuid.NewString(),
		Launch:    launch,
		Catalog:   slots.NewCatalog(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if !launch.Valid() {
		s.Screen = ScreenError
		f.logger.Warn("session started with invalid launch context", "session_id", s.ID)
		return s, ErrInvalidLaunchContext
	}
	s.Screen = ScreenDetails
	f.logger.Info("session started",
		"session_id", s.ID,
		"doctor_id", launch.DoctorID,
		"workplace_id", launch.WorkplaceID,
	)
	return s, nil
}

// SubmitDetails validates the form, registers the patient and loads the
// slot catalog, all as one user-visible action. Validation and
// registration failures leave the session on the details screen
// untouched; once registration succeeds the details and user survive
// even if the slot fetch then fails.
func (f *Flow) SubmitDetails(ctx context.Context, s *Session, d PatientDetails) error {
	if s.Screen != ScreenDetails {
		return ErrInvalidCommand
	}
	if err := d.Validate(); err != nil {
		return err
	}

	user, err := f.scheduler.Register(ctx, d)
	if err != nil {
		f.logger.Warn("registration failed", "session_id", s.ID, "error", err)
		return fmt.Errorf("registration failed: %w", err)
	}
	s.Details = &d
	s.User = &user
	f.logger.Info("patient registered",
		"session_id", s.ID,
		"user_id", user.UserID,
		"existing", user.IsExisting,
	)

	return f.loadSlots(ctx, s)
}

// loadSlots fetches and normalizes the catalog. An empty catalog is a
// valid outcome and still lands on the slots screen; the presenter owns
// the "no slots" display. A failed fetch returns the session to the
// details screen so the patient can retry by resubmitting.
func (f *Flow) loadSlots(ctx context.Context, s *Session) error {
	raw, err := f.scheduler.FetchSlots(ctx, s.Launch.DoctorID, s.Launch.WorkplaceID)
	if err != nil {
		s.Screen = ScreenDetails
		f.logger.Warn("slot fetch failed", "session_id", s.ID, "error", err)
		return fmt.Errorf("slot fetch failed: %w", err)
	}

	s.Catalog = slots.Normalize(raw, f.now())
	s.Selected = nil
	s.Screen = ScreenSlots
	f.logger.Info("slots loaded", "session_id", s.ID, "dates", len(s.Catalog.Dates))
	return nil
}

// NavigateDate moves the date cursor by direction (+1 next, -1
// previous), clamped at either end of the date range.
func (f *Flow) NavigateDate(s *Session, direction int) error {
	if s.Screen != ScreenSlots {
		return ErrInvalidCommand
	}
	s.Catalog.Navigate(direction)
	return nil
}

// SelectSlot resolves a slot id anywhere in the catalog and moves to
// the confirmation screen. Ids are unique across the whole session, not
// just the displayed date.
func (f *Flow) SelectSlot(s *Session, slotID string) error {
	if s.Screen != ScreenSlots {
		return ErrInvalidCommand
	}
	slot, ok := s.Catalog.Find(slotID)
	if !ok {
		return ErrSlotNotFound
	}
	s.Selected = &slot
	s.Screen = ScreenConfirm
	return nil
}

// ReturnToDetails abandons everything after the form: details,
// registration, catalog and selection are cleared and a new
// registration is required.
func (f *Flow) ReturnToDetails(s *Session) error {
	switch s.Screen {
	case ScreenSlots, ScreenConfirm:
	default:
		return ErrInvalidCommand
	}
	s.reset()
	return nil
}

// reset clears everything entered after the launch and returns the
// session to the details form.
func (s *Session) reset() {
	s.Details = nil
	s.User = nil
	s.Selected = nil
	s.Confirmation = nil
	s.Catalog = slots.NewCatalog()
	s.Screen = ScreenDetails
}

// ConfirmBooking books the selected slot under the registered user. A
// failed booking keeps the session on the confirmation screen so the
// patient can retry without re-entering anything.
func (f *Flow) ConfirmBooking(ctx context.Context, s *Session) error {
	if s.Screen != ScreenConfirm {
		return ErrInvalidCommand
	}
	if s.User == nil || s.User.UserID == "" {
		// A session that lost its registration restarts from a clean
		// details form; a fresh registration is required either way.
		s.reset()
		return ErrUserNotRegistered
	}
	if s.Selected == nil {
		return ErrInvalidCommand
	}

	notes := ""
	if s.Details != nil {
		notes = s.Details.Notes
	}
	req := BookingRequest{
		UserID:        s.User.UserID,
		DoctorID:      s.Launch.DoctorID,
		WorkplaceID:   s.Launch.WorkplaceID,
		RequestedTime: requestedTime(s.Selected.Date),
		Slot:          s.Selected.Time,
		Notes:         notes,
	}

	conf, err := f.scheduler.Book(ctx, req)
	if err != nil {
		f.logger.Warn("booking failed", "session_id", s.ID, "error", err)
		return fmt.Errorf("booking failed: %w", err)
	}
	if conf.AppointmentID == "" {
		conf.AppointmentID = PendingConfirmation
	}
	s.Confirmation = &conf
	s.Screen = ScreenSuccess
	f.logger.Info("appointment booked",
		"session_id", s.ID,
		"appointment_id", conf.AppointmentID,
		"date", s.Selected.Date,
	)
	return nil
}

// requestedTime renders the slot's calendar date as an RFC3339 instant
// at UTC midnight, which is what the booking endpoint expects alongside
// the display time.
func requestedTime(date string) string {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return day.UTC().Format(time.RFC3339)
}
