package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quickbooking/qr-booking/internal/booking"
	"github.com/quickbooking/qr-booking/internal/schedapi"
)

type stubScheduler struct {
	registerErr error
	fetchErr    error
	bookErr     error
}

func (s *stubScheduler) Register(ctx context.Context, d booking.PatientDetails) (booking.RegisteredUser, error) {
	if s.registerErr != nil {
		return booking.RegisteredUser{}, s.registerErr
	}
	return booking.RegisteredUser{UserID: "user-1"}, nil
}

func (s *stubScheduler) FetchSlots(ctx context.Context, doctorID, workplaceID string) (json.RawMessage, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return json.RawMessage(`{"slotsByDate":{"2030-06-10":["10:00 AM","11:30 AM"]}}`), nil
}

func (s *stubScheduler) Book(ctx context.Context, req booking.BookingRequest) (booking.Confirmation, error) {
	if s.bookErr != nil {
		return booking.Confirmation{}, s.bookErr
	}
	return booking.Confirmation{AppointmentID: "appt-1"}, nil
}

func newTestServer(t *testing.T, sched booking.Scheduler) *httptest.Server {
	t.Helper()
	flow := booking.NewFlow(sched, nil)
	manager := booking.NewManager(flow, booking.NewMemoryStore(), time.Minute, nil, nil)
	h := NewWizardHandler(manager, nil)

	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Route("/booking/sessions", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/details", h.SubmitDetails)
			r.Post("/navigate", h.NavigateDate)
			r.Post("/select", h.SelectSlot)
			r.Post("/back", h.ReturnToDetails)
			r.Post("/confirm", h.ConfirmBooking)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func startSession(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := postJSON(t, srv.URL+"/booking/sessions?doctorId=doc-1&workplaceId=wp-9&doctorName=Dr.+Mehta", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id, _ := body["sessionId"].(string)
	require.NotEmpty(t, id)
	return id
}

func detailsBody() map[string]any {
	return map[string]any{
		"name":   "Asha Rao",
		"phone":  "9876543210",
		"email":  "asha@example.com",
		"age":    34,
		"gender": "female",
		"city":   "Pune",
	}
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartSessionFromQRQuery(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	resp, body := postJSON(t, srv.URL+"/booking/sessions?doctorId=doc-1&workplaceId=wp-9&clinicName=Skin+First", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "details", body["screen"])

	launch := body["launch"].(map[string]any)
	assert.Equal(t, "doc-1", launch["doctor_id"])
	assert.Equal(t, "Skin First", launch["clinic_name"])
	assert.Equal(t, "Doctor", launch["doctor_name"])
}

func TestStartSessionInvalidLaunch(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	resp, body := postJSON(t, srv.URL+"/booking/sessions", nil)
	// Session is still created; it rests on the terminal error screen.
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "error", body["screen"])
}

func TestFullWizardFlow(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	id := startSession(t, srv)
	base := srv.URL + "/booking/sessions/" + id

	resp, body := postJSON(t, base+"/details", detailsBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "slots", body["screen"])
	assert.Equal(t, "2030-06-10", body["currentDate"])
	slots := body["slots"].([]any)
	require.Len(t, slots, 2)
	first := slots[0].(map[string]any)
	assert.Equal(t, "2030-06-10-0", first["id"])
	assert.Equal(t, "10:00 AM", first["time"])

	resp, body = postJSON(t, base+"/select", map[string]any{"slotId": "2030-06-10-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "confirm", body["screen"])
	selected := body["selected"].(map[string]any)
	assert.Equal(t, "11:30 AM", selected["time"])

	resp, body = postJSON(t, base+"/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "success", body["screen"])
	conf := body["confirmation"].(map[string]any)
	assert.Equal(t, "appt-1", conf["appointment_id"])

	// GET reflects the stored state.
	getResp, err := http.Get(base + "/")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var got map[string]any
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	assert.Equal(t, "success", got["screen"])
}

func TestSubmitDetailsValidationError(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	id := startSession(t, srv)

	bad := detailsBody()
	bad["phone"] = "123"
	resp, body := postJSON(t, srv.URL+"/booking/sessions/"+id+"/details", bad)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, "phone", body["field"])
}

func TestSubmitDetailsUpstreamUnreachable(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{registerErr: schedapi.ErrNetworkUnavailable})
	id := startSession(t, srv)

	resp, body := postJSON(t, srv.URL+"/booking/sessions/"+id+"/details", detailsBody())
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "upstream_unreachable", body["error"])
}

func TestConfirmUpstreamErrorVerbatim(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{
		bookErr: &schedapi.APIError{Status: 409, Message: "slot no longer available"},
	})
	id := startSession(t, srv)
	base := srv.URL + "/booking/sessions/" + id

	_, _ = postJSON(t, base+"/details", detailsBody())
	_, _ = postJSON(t, base+"/select", map[string]any{"slotId": "2030-06-10-0"})

	resp, body := postJSON(t, base+"/confirm", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "upstream_error", body["error"])
	assert.Equal(t, "slot no longer available", body["message"])

	// The session stays on confirm for a retry in place.
	getResp, err := http.Get(base + "/")
	require.NoError(t, err)
	defer getResp.Body.Close()
	var got map[string]any
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&got))
	assert.Equal(t, "confirm", got["screen"])
}

func TestSelectUnknownSlot(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	id := startSession(t, srv)
	base := srv.URL + "/booking/sessions/" + id

	_, _ = postJSON(t, base+"/details", detailsBody())
	resp, body := postJSON(t, base+"/select", map[string]any{"slotId": "2030-06-10-99"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "slot_not_found", body["error"])
}

func TestUnknownSession(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	resp, body := postJSON(t, srv.URL+"/booking/sessions/nope/confirm", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "session_not_found", body["error"])
}

func TestCommandOnWrongScreen(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	id := startSession(t, srv)

	resp, body := postJSON(t, srv.URL+"/booking/sessions/"+id+"/confirm", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_command", body["error"])
}

func TestReturnToDetailsResets(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	id := startSession(t, srv)
	base := srv.URL + "/booking/sessions/" + id

	_, _ = postJSON(t, base+"/details", detailsBody())
	resp, body := postJSON(t, base+"/back", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "details", body["screen"])
	assert.Nil(t, body["user"])
	assert.Empty(t, body["slots"])
}

func TestMalformedBody(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{})
	id := startSession(t, srv)

	resp, err := http.Post(srv.URL+"/booking/sessions/"+id+"/details", "application/json", bytes.NewReader([]byte("{nope")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	srv := newTestServer(t, &stubScheduler{registerErr: errors.New("pq: connection reset")})
	id := startSession(t, srv)

	resp, body := postJSON(t, srv.URL+"/booking/sessions/"+id+"/details", detailsBody())
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", body["error"])
	assert.NotContains(t, body["message"], "pq:")
}
