package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/barbershop-scheduling/internal/assistant"
	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/metrics"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

type fakeBooking struct {
	bookErr error
	lastReq booking.BookingRequest

	appts    []booking.Appointment
	barbers  []booking.Barber
	services []booking.ShopService

	nextSlot  booking.Slot
	nextFound bool
	slots     []booking.Slot

	lastSuggest struct {
		date            string
		start           timegrid.TimeOfDay
		duration, limit int
	}
}

func (f *fakeBooking) Book(_ context.Context, req booking.BookingRequest) (*booking.Appointment, error) {
	f.lastReq = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	start, _ := timegrid.NormalizeTime(req.Time)
	return &booking.Appointment{
		ID:         uuid.New(),
		UserID:     req.UserID,
		BarberName: req.BarberName,
		Date:       req.Date,
		Time:       start,
		Status:     booking.StatusBooked,
	}, nil
}

func (f *fakeBooking) CancelLatestAppointment(context.Context, string) (*booking.Appointment, error) {
	if len(f.appts) == 0 {
		return nil, &booking.Error{Kind: booking.KindNotFound, Msg: "you have no active appointments to cancel"}
	}
	a := f.appts[len(f.appts)-1]
	a.Status = booking.StatusCancelled
	return &a, nil
}

func (f *fakeBooking) ViewAppointments(context.Context, string) ([]booking.Appointment, error) {
	return f.appts, nil
}

func (f *fakeBooking) ListBarbers(context.Context) ([]booking.Barber, error) {
	return f.barbers, nil
}

func (f *fakeBooking) ListServices(context.Context) ([]booking.ShopService, error) {
	return f.services, nil
}

func (f *fakeBooking) FindNextAvailableSlot(_ context.Context, _ uuid.UUID, _ int) (booking.Slot, bool, error) {
	return f.nextSlot, f.nextFound, nil
}

func (f *fakeBooking) SuggestAlternatives(_ context.Context, _ uuid.UUID, date string, start timegrid.TimeOfDay, duration, limit int) ([]booking.Slot, error) {
	f.lastSuggest.date = date
	f.lastSuggest.start = start
	f.lastSuggest.duration = duration
	f.lastSuggest.limit = limit
	return f.slots, nil
}

type fakeChat struct {
	last  assistant.Request
	reply assistant.Reply
	err   error
}

func (f *fakeChat) Handle(_ context.Context, req assistant.Request) (assistant.Reply, error) {
	f.last = req
	return f.reply, f.err
}

func newTestServer(t *testing.T, fb *fakeBooking, fc *fakeChat, checks ...Check) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewRouter(RouterConfig{
		Booking: fb,
		Chat:    fc,
		Health:  NewHealthHandler("test", "v0", checks...),
		Metrics: metrics.New("barbershop"),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateAppointment(t *testing.T) {
	fb := &fakeBooking{}
	srv := newTestServer(t, fb, &fakeChat{})

	resp := postJSON(t, srv.URL+"/appointments", CreateAppointmentRequest{
		UserID: "u1", Barber: "Ali", Service: "Haircut", Date: "2024-01-02", Time: "14:00", Duration: 30,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	got := decode[AppointmentResponse](t, resp)
	assert.Equal(t, "Ali", got.BarberName)
	assert.Equal(t, "14:00", got.Time)
	assert.Equal(t, "booked", got.Status)
	assert.Equal(t, booking.BookingRequest{
		UserID: "u1", BarberName: "Ali", ServiceName: "Haircut", Date: "2024-01-02", Time: "14:00", DurationMinutes: 30,
	}, fb.lastReq)
}

func TestCreateAppointment_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"input", &booking.Error{Kind: booking.KindInput, Reason: booking.ReasonInvalidTime, Msg: "invalid time"}, http.StatusBadRequest, "input"},
		{"constraint", &booking.Error{Kind: booking.KindConstraint, Reason: booking.ReasonAlreadyBooked, Msg: "taken"}, http.StatusConflict, "constraint"},
		{"exhausted", &booking.Error{Kind: booking.KindExhausted, Msg: "no slots"}, http.StatusUnprocessableEntity, "exhausted"},
		{"not found", &booking.Error{Kind: booking.KindNotFound, Msg: "no barbers found"}, http.StatusNotFound, "not_found"},
		{"repository", &booking.Error{Kind: booking.KindRepository, Msg: "store failed", Err: errors.New("conn reset")}, http.StatusBadGateway, "repository"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, &fakeBooking{bookErr: tt.err}, &fakeChat{})
			resp := postJSON(t, srv.URL+"/appointments", CreateAppointmentRequest{UserID: "u1"})
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, resp).Error)
		})
	}
}

func TestCreateAppointment_ConflictCarriesAlternatives(t *testing.T) {
	fb := &fakeBooking{bookErr: &booking.Error{
		Kind:         booking.KindConstraint,
		Reason:       booking.ReasonAlreadyBooked,
		Msg:          "time slot already booked",
		Alternatives: []booking.Slot{{Date: "2024-01-02", Time: timegrid.Clock(15, 0)}},
	}}
	srv := newTestServer(t, fb, &fakeChat{})

	resp := postJSON(t, srv.URL+"/appointments", CreateAppointmentRequest{UserID: "u1", Barber: "Ali", Date: "2024-01-02", Time: "14:00"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	got := decode[ErrorResponse](t, resp)
	assert.Equal(t, "already_booked", got.Reason)
	assert.Equal(t, []SlotResponse{{Date: "2024-01-02", Time: "15:00"}}, got.Alternatives)
}

func TestCreateAppointment_BadBody(t *testing.T) {
	srv := newTestServer(t, &fakeBooking{}, &fakeChat{})
	resp, err := http.Post(srv.URL+"/appointments", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUserAppointments(t *testing.T) {
	fb := &fakeBooking{appts: []booking.Appointment{
		{ID: uuid.New(), UserID: "u1", BarberName: "Ali", Date: "2024-01-02", Time: timegrid.Clock(11, 0), Status: booking.StatusBooked},
	}}
	srv := newTestServer(t, fb, &fakeChat{})

	resp := get(t, srv.URL+"/users/u1/appointments")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]AppointmentResponse](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "11:00", list[0].Time)
	assert.Equal(t, booking.DefaultDurationMinutes, list[0].DurationMinutes)

	resp = postJSON(t, srv.URL+"/users/u1/appointments/cancel-latest", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", decode[AppointmentResponse](t, resp).Status)

	fb.appts = nil
	resp = postJSON(t, srv.URL+"/users/u1/appointments/cancel-latest", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCatalog(t *testing.T) {
	brk := booking.Hours{Start: timegrid.Clock(13, 0), End: timegrid.Clock(14, 0)}
	fb := &fakeBooking{
		barbers:  []booking.Barber{{ID: uuid.New(), Name: "Ali", WorkingHours: booking.DefaultWorkingHours, BreakTime: &brk}},
		services: []booking.ShopService{{ID: uuid.New(), Name: "Haircut", Price: 800}},
	}
	srv := newTestServer(t, fb, &fakeChat{})

	barbers := decode[[]BarberResponse](t, get(t, srv.URL+"/barbers"))
	require.Len(t, barbers, 1)
	assert.Equal(t, HoursResponse{Start: "10:00", End: "22:00"}, barbers[0].WorkingHours)
	assert.Equal(t, &HoursResponse{Start: "13:00", End: "14:00"}, barbers[0].BreakTime)

	services := decode[[]ServiceResponse](t, get(t, srv.URL+"/services"))
	require.Len(t, services, 1)
	assert.Equal(t, 800.0, services[0].Price)
}

func TestNextSlotAndSuggestions(t *testing.T) {
	fb := &fakeBooking{
		nextSlot:  booking.Slot{Date: "2024-01-01", Time: timegrid.Clock(10, 0)},
		nextFound: true,
		slots:     []booking.Slot{{Date: "2024-01-02", Time: timegrid.Clock(15, 0)}},
	}
	srv := newTestServer(t, fb, &fakeChat{})
	id := uuid.New().String()

	next := decode[NextSlotResponse](t, get(t, srv.URL+"/barbers/"+id+"/next-slot?duration=30"))
	assert.True(t, next.Found)
	assert.Equal(t, &SlotResponse{Date: "2024-01-01", Time: "10:00"}, next.Slot)

	fb.nextFound = false
	next = decode[NextSlotResponse](t, get(t, srv.URL+"/barbers/"+id+"/next-slot"))
	assert.False(t, next.Found)
	assert.Nil(t, next.Slot)

	slots := decode[[]SlotResponse](t, get(t, srv.URL+"/barbers/"+id+"/suggestions?date=2024-01-02&time=2pm&limit=5"))
	assert.Equal(t, []SlotResponse{{Date: "2024-01-02", Time: "15:00"}}, slots)
	assert.Equal(t, "2024-01-02", fb.lastSuggest.date)
	assert.Equal(t, timegrid.Clock(14, 0), fb.lastSuggest.start)
	assert.Equal(t, 5, fb.lastSuggest.limit)

	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/barbers/not-a-uuid/next-slot").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/barbers/"+id+"/next-slot?duration=long").StatusCode)
	assert.Equal(t, http.StatusBadRequest, get(t, srv.URL+"/barbers/"+id+"/suggestions?time=noonish").StatusCode)
}

func TestChat(t *testing.T) {
	fc := &fakeChat{reply: assistant.Reply{
		Success:      false,
		Intent:       assistant.IntentBook,
		Text:         "time slot already booked. Next available: 2024-01-02 15:00",
		Alternatives: []booking.Slot{{Date: "2024-01-02", Time: timegrid.Clock(15, 0)}},
	}}
	srv := newTestServer(t, &fakeBooking{}, fc)

	resp := postJSON(t, srv.URL+"/chat", ChatRequest{UserID: "u1", Message: "book ali tomorrow at 2pm"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[ChatResponse](t, resp)
	assert.Equal(t, assistant.IntentBook, got.Intent)
	assert.Len(t, got.Alternatives, 1)
	assert.Equal(t, "u1", fc.last.SessionID)

	resp = postJSON(t, srv.URL+"/chat", ChatRequest{Message: "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	fc.err = errors.New("session store down")
	resp = postJSON(t, srv.URL+"/chat", ChatRequest{SessionID: "s1", UserID: "u1", Message: "hi"})
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	var pgErr, redisErr error
	checks := []Check{
		{Name: "postgres", Critical: true, Ping: func(context.Context) error { return pgErr }},
		{Name: "redis", Ping: func(context.Context) error { return redisErr }},
	}
	srv := newTestServer(t, &fakeBooking{}, &fakeChat{}, checks...)

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/health/live").StatusCode)

	resp := get(t, srv.URL+"/health/ready")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decode[ReadinessResponse](t, resp).Status)

	redisErr = errors.New("down")
	resp = get(t, srv.URL+"/health/ready")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	ready := decode[ReadinessResponse](t, resp)
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, "down", ready.Dependencies["redis"])

	pgErr = errors.New("down")
	resp = get(t, srv.URL+"/health/ready")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "error", decode[ReadinessResponse](t, resp).Status)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeBooking{}, &fakeChat{})
	get(t, srv.URL+"/barbers")

	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `barbershop_http_requests_total{method="GET",route="/barbers",status="200"} 1`)
}
