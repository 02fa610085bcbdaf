// Package handlers exposes the booking wizard over HTTP. Each endpoint
// applies one wizard command and returns the resulting session view, so
// the presenter can always render whatever screen came back.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quickbooking/qr-booking/internal/booking"
	"github.com/quickbooking/qr-booking/internal/schedapi"
	"github.com/quickbooking/qr-booking/pkg/logging"
)

// WizardHandler serves the booking wizard session endpoints.
type WizardHandler struct {
	manager *booking.Manager
	logger  *logging.Logger
}

// NewWizardHandler creates the handler.
func NewWizardHandler(manager *booking.Manager, logger *logging.Logger) *WizardHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &WizardHandler{manager: manager, logger: logger}
}

// SessionView is what every endpoint returns: the full state the
// presenter needs to draw the current screen.
type SessionView struct {
	SessionID    string                  `json:"sessionId"`
	Screen       booking.Screen          `json:"screen"`
	Launch       booking.LaunchContext   `json:"launch"`
	Details      *booking.PatientDetails `json:"details,omitempty"`
	User         *booking.RegisteredUser `json:"user,omitempty"`
	Dates        []string                `json:"dates"`
	CurrentDate  string                  `json:"currentDate,omitempty"`
	Slots        []slotView              `json:"slots"`
	Selected     *slotView               `json:"selected,omitempty"`
	Confirmation *booking.Confirmation   `json:"confirmation,omitempty"`
}

type slotView struct {
	ID   string `json:"id"`
	Date string `json:"date"`
	Time string `json:"time"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type detailsRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
	City   string `json:"city"`
	Notes  string `json:"notes"`
}

type navigateRequest struct {
	Direction int `json:"direction"`
}

type selectRequest struct {
	SlotID string `json:"slotId"`
}

// StartSession creates a wizard session from the QR link's query
// parameters. An invalid launch still creates a session; it just rests
// on the terminal error screen.
func (h *WizardHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	launch := booking.LaunchContextFromQuery(r.URL.Query())
	s, err := h.manager.StartSession(r.Context(), launch)
	if err != nil && !errors.Is(err, booking.ErrInvalidLaunchContext) {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(s))
}

// GetSession returns the current state of a session.
func (h *WizardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(s))
}

// SubmitDetails validates the form, registers the patient and loads
// slots as one action.
func (h *WizardHandler) SubmitDetails(w http.ResponseWriter, r *http.Request) {
	var req detailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	details := booking.PatientDetails{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Age:    req.Age,
		Gender: req.Gender,
		City:   req.City,
		Notes:  req.Notes,
	}
	s, err := h.manager.SubmitDetails(r.Context(), chi.URLParam(r, "sessionID"), details)
	h.respond(w, s, err)
}

// NavigateDate moves the visible date forward or back.
func (h *WizardHandler) NavigateDate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	s, err := h.manager.NavigateDate(r.Context(), chi.URLParam(r, "sessionID"), req.Direction)
	h.respond(w, s, err)
}

// SelectSlot picks a slot and moves to confirmation.
func (h *WizardHandler) SelectSlot(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: "invalid JSON body"})
		return
	}
	s, err := h.manager.SelectSlot(r.Context(), chi.URLParam(r, "sessionID"), req.SlotID)
	h.respond(w, s, err)
}

// ReturnToDetails resets the session to the details form.
func (h *WizardHandler) ReturnToDetails(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.ReturnToDetails(r.Context(), chi.URLParam(r, "sessionID"))
	h.respond(w, s, err)
}

// ConfirmBooking books the selected slot.
func (h *WizardHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.ConfirmBooking(r.Context(), chi.URLParam(r, "sessionID"))
	h.respond(w, s, err)
}

// HealthCheck reports liveness.
func (h *WizardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respond maps a command outcome to HTTP. After a failed command the
// presenter refetches the session to learn which screen it landed on.
func (h *WizardHandler) respond(w http.ResponseWriter, s *booking.Session, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, viewOf(s))
		return
	}
	h.writeError(w, err)
}

func (h *WizardHandler) writeError(w http.ResponseWriter, err error) {
	status, resp := classifyError(err)
	if status >= 500 {
		h.logger.Error("wizard request failed", "error", err)
	}
	writeJSON(w, status, resp)
}

func classifyError(err error) (int, errorResponse) {
	if field, ok := booking.ValidationField(err); ok {
		return http.StatusUnprocessableEntity, errorResponse{Error: "validation_failed", Message: err.Error(), Field: field}
	}

	var apiErr *schedapi.APIError
	switch {
	case errors.Is(err, booking.ErrInvalidLaunchContext):
		return http.StatusUnprocessableEntity, errorResponse{Error: "invalid_launch_context", Message: err.Error()}
	case errors.Is(err, booking.ErrSessionNotFound):
		return http.StatusNotFound, errorResponse{Error: "session_not_found", Message: "session not found or expired"}
	case errors.Is(err, booking.ErrSlotNotFound):
		return http.StatusNotFound, errorResponse{Error: "slot_not_found", Message: "slot is not in the current catalog"}
	case errors.Is(err, booking.ErrSessionBusy):
		return http.StatusConflict, errorResponse{Error: "session_busy", Message: "another command is in progress"}
	case errors.Is(err, booking.ErrInvalidCommand):
		return http.StatusConflict, errorResponse{Error: "invalid_command", Message: "command not valid on the current screen"}
	case errors.Is(err, booking.ErrUserNotRegistered):
		return http.StatusConflict, errorResponse{Error: "user_not_registered", Message: "registration required before booking"}
	case errors.Is(err, schedapi.ErrNetworkUnavailable):
		return http.StatusBadGateway, errorResponse{Error: "upstream_unreachable", Message: "cannot connect to the scheduling service"}
	case errors.As(err, &apiErr):
		// Surface the upstream message verbatim; the presenter shows it.
		return http.StatusBadGateway, errorResponse{Error: "upstream_error", Message: apiErr.Message}
	}
	return http.StatusInternalServerError, errorResponse{Error: "internal_error", Message: "internal server error"}
}

func viewOf(s *booking.Session) SessionView {
	view := SessionView{
		SessionID:    s.ID,
		Screen:       s.Screen,
		Launch:       s.Launch,
		Details:      s.Details,
		User:         s.User,
		Dates:        s.Catalog.Dates,
		CurrentDate:  s.Catalog.CurrentDate(),
		Slots:        []slotView{},
		Confirmation: s.Confirmation,
	}
	for _, slot := range s.Catalog.CurrentSlots() {
		view.Slots = append(view.Slots, slotView{ID: slot.ID, Date: slot.Date, Time: slot.Time})
	}
	if s.Selected != nil {
		view.Selected = &slotView{ID: s.Selected.ID, Date: s.Selected.Date, Time: s.Selected.Time}
	}
	if view.Dates == nil {
		view.Dates = []string{}
	}
	return view
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
