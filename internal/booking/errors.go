package booking

import "errors"

var (
	// ErrInvalidLaunchContext is returned when the QR launch parameters are
	// missing the doctor or workplace id. Nothing can be booked without
	// them, so the session lands on the terminal error screen.
	ErrInvalidLaunchContext = errors.New("doctorId and workplaceId are required")

	// Validation sentinels, one per patient detail field. Validate surfaces
	// at most one of these per submission, in field order.
	ErrInvalidName   = errors.New("name must be at least 2 characters")
	ErrInvalidPhone  = errors.New("phone must be exactly 10 digits")
	ErrInvalidEmail  = errors.New("email address is not valid")
	ErrInvalidAge    = errors.New("age must be between 1 and 120")
	ErrMissingGender = errors.New("gender is required")
	ErrInvalidCity   = errors.New("city must be at least 2 characters")

	// ErrSlotNotFound is returned when a selected slot id is not in the
	// catalog (stale id after a re-fetch, or a bad request).
	ErrSlotNotFound = errors.New("slot not found")

	// ErrUserNotRegistered guards the booking call. The flow cannot reach
	// confirmation without a registration, but a lost or corrupted session
	// could; the user is sent back to the details screen.
	ErrUserNotRegistered = errors.New("user is not registered")

	// ErrInvalidCommand is returned when a command arrives for a screen
	// that does not accept it.
	ErrInvalidCommand = errors.New("command not valid on the current screen")

	// ErrSessionNotFound is returned by stores for unknown or expired ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned while another command for the same session
	// is still in flight. Booking is not idempotent upstream, so duplicate
	// submissions must be rejected, not queued.
	ErrSessionBusy = errors.New("another action is already in flight for this session")
)
