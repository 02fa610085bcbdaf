// Package schedapi is the REST client for the clinic scheduling API
// that backs registration, slot availability and booking.
package schedapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quickbooking/qr-booking/internal/booking"
	"github.com/quickbooking/qr-booking/internal/observability/metrics"
	"github.com/quickbooking/qr-booking/pkg/logging"
)

const (
	defaultBaseURL = "http://localhost:8081/api"
	defaultTimeout = 15 * time.Second
)

// Client wraps the scheduling API's user endpoints. It satisfies
// booking.Scheduler.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *logging.Logger
	metrics    *metrics.BookingMetrics
}

// NewClient constructs a scheduling API client. metrics may be nil.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger, m *metrics.BookingMetrics) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		metrics:    m,
	}
}

var _ booking.Scheduler = (*Client)(nil)

// Register creates the patient upstream. Registration is idempotent by
// phone number: the API answers a duplicate with status ERROR, an
// "already exists" message and the existing userId, which counts as
// success here.
func (c *Client) Register(ctx context.Context, details booking.PatientDetails) (booking.RegisteredUser, error) {
	body := registerRequest{
		MobileNumber: details.Phone,
		FullName:     details.Name,
		Email:        details.Email,
		City:         details.City,
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/user/register", body, "register")
	if err != nil {
		return booking.RegisteredUser{}, err
	}

	var resp registerResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return booking.RegisteredUser{}, fmt.Errorf("decode register response: %w", err)
	}

	if resp.Status == "ERROR" && strings.Contains(resp.Message, "already exists") && resp.userID() != "" {
		c.logger.Info("existing patient matched by phone", "user_id", resp.userID())
		return booking.RegisteredUser{UserID: resp.userID(), IsExisting: true}, nil
	}

	if (status < 200 || status > 299) && resp.userID() == "" {
		c.logger.Warn("registration rejected", "status", status, "message", resp.Message)
		return booking.RegisteredUser{}, newAPIError(status, respBody)
	}
	if resp.userID() == "" {
		return booking.RegisteredUser{}, fmt.Errorf("register response missing userId")
	}
	return booking.RegisteredUser{UserID: resp.userID()}, nil
}

// FetchSlots returns the availability payload as the API sent it; the
// caller normalizes the shape.
func (c *Client) FetchSlots(ctx context.Context, doctorID, workplaceID string) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("doctorId", doctorID)
	q.Set("workplaceId", workplaceID)

	status, respBody, err := c.do(ctx, http.MethodGet, "/user/available-slots?"+q.Encode(), nil, "slots")
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		c.logger.Warn("slot fetch rejected", "status", status)
		return nil, newAPIError(status, respBody)
	}
	return json.RawMessage(respBody), nil
}

// Book books the slot under the registered user.
func (c *Client) Book(ctx context.Context, req booking.BookingRequest) (booking.Confirmation, error) {
	body := bookRequest{
		DoctorID:      req.DoctorID,
		WorkplaceID:   req.WorkplaceID,
		RequestedTime: req.RequestedTime,
		Slot:          req.Slot,
		Notes:         bookingNotes(req.Notes),
	}
	path := fmt.Sprintf("/user/%s/appointments/book", url.PathEscape(req.UserID))

	status, respBody, err := c.do(ctx, http.MethodPost, path, body, "book")
	if err != nil {
		return booking.Confirmation{}, err
	}
	if status < 200 || status > 299 {
		c.logger.Warn("booking rejected", "status", status)
		return booking.Confirmation{}, newAPIError(status, respBody)
	}

	var resp bookResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return booking.Confirmation{}, fmt.Errorf("decode booking response: %w", err)
	}
	return booking.Confirmation{AppointmentID: resp.appointmentID()}, nil
}

// bookingNotes renders the notes field the booking endpoint expects,
// embedding whatever the patient typed.
func bookingNotes(notes string) string {
	if notes == "" {
		notes = "None"
	}
	return "Booking via QuickBooking. Notes: " + notes
}

// do executes one request and hands back status plus body. Transport
// failures come back wrapped in ErrNetworkUnavailable so callers can
// distinguish "API unreachable" from "API said no".
func (c *Client) do(ctx context.Context, method, path string, body interface{}, call string) (int, []byte, error) {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.ObserveUpstreamLatency(call, time.Since(start).Seconds())
	if err != nil {
		c.logger.Warn("scheduling API unreachable", "path", path, "error", err)
		return 0, nil, fmt.Errorf("%w: %v", ErrNetworkUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
