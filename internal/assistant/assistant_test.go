package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/session"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

// monday 2024-01-01 09:00 UTC
var testNow = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func TestDetectDateTime(t *testing.T) {
	tests := []struct {
		msg       string
		wantDate  string
		wantClock string
	}{
		{"book me today at 3pm", "2024-01-01", "15:00"},
		{"Tomorrow evening please", "2024-01-02", "17:00"},
		{"how about friday morning", "2024-01-05", "10:00"},
		{"monday at 14:30", "2024-01-08", "14:30"},
		{"on 2024-02-10 at 11:15 am", "2024-02-10", "11:15"},
		{"2024/02/10", "2024-02-10", ""},
		{"as soon as possible", "", ""},
		{"asap tomorrow", "2024-01-02", ""},
		{"book 2 haircuts", "", ""},
		{"book tomorrow at 10", "2024-01-02", "10:00"},
		{"at 7 for 2 people", "", "07:00"},
		{"a table for 2 people", "", ""},
		{"on 2024/2/5 at 16", "2024-02-05", "16:00"},
		{"at 25:00", "", ""},
		{"afternoon", "", "14:00"},
		{"hello there", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			date, clock := DetectDateTime(tt.msg, testNow)
			assert.Equal(t, tt.wantDate, date)
			assert.Equal(t, tt.wantClock, clock)
		})
	}
}

func TestClassify(t *testing.T) {
	tests := map[string]string{
		"hey":                          IntentSmallTalk,
		"what services do you offer":   IntentListServices,
		"what are your prices":         IntentListServices,
		"who are the barbers":          IntentListBarbers,
		"book me tomorrow":             IntentBook,
		"can you set up a slot":        IntentBook,
		"please cancel it":             IntentCancel,
		"show my appointments":         IntentView,
		"what is upcoming":             IntentView,
		"which day works":              IntentSmallTalk,
		"":                             IntentSmallTalk,
		"I want to schedule a haircut": IntentBook,
	}
	for msg, want := range tests {
		assert.Equal(t, want, Classify(msg), msg)
	}
}

type fakeBooker struct {
	barbers  []booking.Barber
	services []booking.ShopService
	appts    []booking.Appointment

	bookErr   error
	cancelErr error
	listErr   error

	lastReq booking.BookingRequest
}

func (f *fakeBooker) Book(_ context.Context, req booking.BookingRequest) (*booking.Appointment, error) {
	f.lastReq = req
	if f.bookErr != nil {
		return nil, f.bookErr
	}
	start, _ := timegrid.NormalizeTime(req.Time)
	a := booking.Appointment{ID: uuid.New(), UserID: req.UserID, BarberName: req.BarberName, Date: req.Date, Time: start, Status: booking.StatusBooked}
	f.appts = append(f.appts, a)
	return &a, nil
}

func (f *fakeBooker) CancelLatestAppointment(context.Context, string) (*booking.Appointment, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	a := f.appts[len(f.appts)-1]
	a.Status = booking.StatusCancelled
	return &a, nil
}

func (f *fakeBooker) ViewAppointments(context.Context, string) ([]booking.Appointment, error) {
	return f.appts, nil
}

func (f *fakeBooker) ListBarbers(context.Context) ([]booking.Barber, error) {
	return f.barbers, f.listErr
}

func (f *fakeBooker) ListServices(context.Context) ([]booking.ShopService, error) {
	return f.services, f.listErr
}

type countingRecorder map[string]int

func (c countingRecorder) ObserveIntent(intent string, success bool) {
	if success {
		c[intent]++
	}
}

func newTestRouter(b Booker, store session.Store, opts ...RouterOption) *Router {
	opts = append([]RouterOption{WithNow(func() time.Time { return testNow })}, opts...)
	return NewRouter(b, store, time.UTC, nil, opts...)
}

func TestRouter_Listings(t *testing.T) {
	fb := &fakeBooker{
		barbers:  []booking.Barber{{Name: "Ali"}, {Name: "Bilal"}},
		services: []booking.ShopService{{Name: "Haircut", Price: 800}, {Name: "Shave", Price: 450.5}},
	}
	rec := countingRecorder{}
	rt := newTestRouter(fb, session.NewMemoryStore(time.Hour), WithIntentRecorder(rec))
	ctx := context.Background()

	reply, err := rt.Handle(ctx, Request{SessionID: "s1", Message: "who are your barbers?"})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, IntentListBarbers, reply.Intent)
	assert.Equal(t, "We have 2 barbers: Ali, Bilal.", reply.Text)

	reply, err = rt.Handle(ctx, Request{SessionID: "s1", Intent: IntentListServices})
	require.NoError(t, err)
	assert.Equal(t, "Our services:\nHaircut - 800 PKR\nShave - 450.5 PKR", reply.Text)

	reply, err = rt.Handle(ctx, Request{SessionID: "s1", Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help you today?", reply.Text)

	reply, err = rt.Handle(ctx, Request{SessionID: "s1", Intent: "order_pizza"})
	require.NoError(t, err)
	assert.False(t, reply.Success)

	assert.Equal(t, countingRecorder{IntentListBarbers: 1, IntentListServices: 1, IntentSmallTalk: 1}, rec)

	fb.listErr = errors.New("boom")
	reply, err = rt.Handle(ctx, Request{SessionID: "s1", Intent: IntentListBarbers})
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Contains(t, reply.Text, "Couldn't fetch barbers")
}

func TestRouter_BookingAccumulatesSlotsAcrossTurns(t *testing.T) {
	fb := &fakeBooker{barbers: []booking.Barber{{Name: "Ali"}}}
	fb.bookErr = &booking.Error{Kind: booking.KindInput, Reason: booking.ReasonMissingDateTime, Msg: "missing date or time"}
	store := session.NewMemoryStore(time.Hour)
	rt := newTestRouter(fb, store)
	ctx := context.Background()

	reply, err := rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Intent: IntentBook, Barber: "Ali", Date: "2024-01-02", Message: "book with ali"})
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, booking.BookingRequest{UserID: "u", BarberName: "Ali", Date: "2024-01-02"}, fb.lastReq)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.Session{Intent: IntentBook, Barber: "Ali", Date: "2024-01-02"}, sess)

	fb.bookErr = nil
	reply, err = rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Intent: IntentBook, Time: "3pm"})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, booking.BookingRequest{UserID: "u", BarberName: "Ali", Date: "2024-01-02", Time: "3pm"}, fb.lastReq)
	assert.Equal(t, "Appointment booked with Ali on 2024-01-02 at 15:00.", reply.Text)

	sess, err = store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.Session{}, sess)
}

func TestRouter_DetectedSlotsDoNotPersistAcrossTurns(t *testing.T) {
	fb := &fakeBooker{barbers: []booking.Barber{{Name: "Ali"}}}
	fb.bookErr = &booking.Error{Kind: booking.KindConstraint, Reason: booking.ReasonOutsideHours, Msg: "outside working hours"}
	store := session.NewMemoryStore(time.Hour)
	rt := newTestRouter(fb, store)
	ctx := context.Background()

	_, err := rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Intent: IntentBook, Message: "book ali tomorrow at 9am"})
	require.NoError(t, err)
	assert.Equal(t, booking.BookingRequest{UserID: "u", BarberName: "Ali", Date: "2024-01-02", Time: "09:00"}, fb.lastReq)

	sess, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, session.Session{Intent: IntentBook}, sess)

	fb.bookErr = nil
	reply, err := rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Intent: IntentBook, Message: "ok book ali tomorrow at 11am instead"})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, "11:00", fb.lastReq.Time)
	assert.Equal(t, "2024-01-02", fb.lastReq.Date)
}

func TestRouter_BookingFailureListsAlternatives(t *testing.T) {
	fb := &fakeBooker{bookErr: &booking.Error{
		Kind:   booking.KindConstraint,
		Reason: booking.ReasonAlreadyBooked,
		Msg:    "no barber available on 2024-01-02 at 14:00 (time slot already booked)",
		Alternatives: []booking.Slot{
			{Date: "2024-01-02", Time: timegrid.Clock(15, 0)},
			{Date: "2024-01-02", Time: timegrid.Clock(15, 15)},
		},
	}}
	rt := newTestRouter(fb, session.NewMemoryStore(time.Hour))

	reply, err := rt.Handle(context.Background(), Request{SessionID: "s1", UserID: "u", Intent: IntentBook, Barber: "Ali", Date: "2024-01-02", Time: "14:00"})
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Len(t, reply.Alternatives, 2)
	assert.Equal(t, "no barber available on 2024-01-02 at 14:00 (time slot already booked). Next available: 2024-01-02 15:00, 2024-01-02 15:15", reply.Text)
}

func TestRouter_ViewAndCancel(t *testing.T) {
	fb := &fakeBooker{}
	rt := newTestRouter(fb, session.NewMemoryStore(time.Hour))
	ctx := context.Background()

	reply, err := rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Intent: IntentView})
	require.NoError(t, err)
	assert.Equal(t, "You have no upcoming appointments.", reply.Text)

	fb.appts = []booking.Appointment{
		{BarberName: "Ali", Date: "2024-01-02", Time: timegrid.Clock(11, 0), Status: booking.StatusCancelled},
		{BarberName: "Bilal", Date: "2024-01-03", Time: timegrid.Clock(15, 0), Status: booking.StatusBooked},
	}
	reply, err = rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Intent: IntentView})
	require.NoError(t, err)
	assert.Equal(t, "Your appointments:\nAli on 2024-01-02 at 11:00 (cancelled)\nBilal on 2024-01-03 at 15:00", reply.Text)

	reply, err = rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Message: "cancel my booking"})
	require.NoError(t, err)
	assert.True(t, reply.Success)
	assert.Equal(t, "Cancelled your appointment with Bilal on 2024-01-03 at 15:00.", reply.Text)

	fb.cancelErr = &booking.Error{Kind: booking.KindNotFound, Msg: "you have no active appointments to cancel"}
	reply, err = rt.Handle(ctx, Request{SessionID: "s1", UserID: "u", Intent: IntentCancel})
	require.NoError(t, err)
	assert.False(t, reply.Success)
	assert.Equal(t, "you have no active appointments to cancel", reply.Text)
}

func TestRouter_RequiresSessionID(t *testing.T) {
	rt := newTestRouter(&fakeBooker{}, session.NewMemoryStore(time.Hour))
	_, err := rt.Handle(context.Background(), Request{Intent: IntentSmallTalk})
	assert.ErrorIs(t, err, session.ErrInvalidID)
}
