package schedapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNetworkUnavailable marks transport-level failures (connection
// refused, DNS, timeout) as opposed to responses the API actually sent.
var ErrNetworkUnavailable = errors.New("cannot connect to scheduling API")

// APIError is a non-2xx response from the scheduling API, carrying the
// upstream message verbatim so the presenter can show it.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("scheduling API returned %d: %s", e.Status, e.Message)
}

// newAPIError extracts the "message" field from an error body, falling
// back to a generic status line when the body is not JSON or has none.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{Status: status, Message: payload.Message}
	}
	return &APIError{Status: status, Message: fmt.Sprintf("HTTP error, status=%d", status)}
}

// flexID tolerates the API sending ids as either JSON strings or
// numbers.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*f = ""
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

type registerRequest struct {
	MobileNumber string `json:"mobileNumber"`
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	Address      string `json:"address"`
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode"`
	Country      string `json:"country"`
}

type registerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	UserID  flexID `json:"userId"`
	ID      flexID `json:"id"`
}

func (r registerResponse) userID() string {
	if r.UserID != "" {
		return r.UserID.String()
	}
	return r.ID.String()
}

type bookRequest struct {
	DoctorID      string `json:"doctorId"`
	WorkplaceID   string `json:"workplaceId"`
	RequestedTime string `json:"requestedTime"`
	Slot          string `json:"slot"`
	Notes         string `json:"notes"`
}

type bookResponse struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	AppointmentID flexID `json:"appointmentId"`
	ID            flexID `json:"id"`
}

func (r bookResponse) appointmentID() string {
	if r.AppointmentID != "" {
		return r.AppointmentID.String()
	}
	return r.ID.String()
}
