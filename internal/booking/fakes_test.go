package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/hackgods/barbershop-scheduling/internal/redis"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

var errStoreDown = errors.New("store unavailable")

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// memRepo is an in-memory Repository with per-operation error injection.
type memRepo struct {
	mu       sync.Mutex
	barbers  []Barber
	services []ShopService
	appts    []Appointment
	events   []EventLog

	listBarbersErr error
	barberDateErr  error
	userListErr    error
	insertErr      error
	eventErr       error

	inserts int
}

func newMemRepo(barbers ...Barber) *memRepo {
	return &memRepo{barbers: barbers}
}

func (r *memRepo) GetBarberByID(_ context.Context, id uuid.UUID) (*Barber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.barbers {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, ErrBarberNotFound
}

func (r *memRepo) ListBarbers(context.Context) ([]Barber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listBarbersErr != nil {
		return nil, r.listBarbersErr
	}
	return append([]Barber(nil), r.barbers...), nil
}

func (r *memRepo) ListServices(context.Context) ([]ShopService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ShopService(nil), r.services...), nil
}

func (r *memRepo) GetServiceByName(_ context.Context, name string) (*ShopService, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.services {
		if s.Name == name {
			s := s
			return &s, nil
		}
	}
	return nil, ErrServiceNotFound
}

func (r *memRepo) ListAppointmentsForBarberOnDate(_ context.Context, barberID uuid.UUID, date string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.barberDateErr != nil {
		return nil, r.barberDateErr
	}
	var out []Appointment
	for _, a := range r.appts {
		if a.BarberID == barberID && a.Date == date {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) ListAppointmentsForUser(_ context.Context, userID string) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.userListErr != nil {
		return nil, r.userListErr
	}
	var out []Appointment
	for _, a := range r.appts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memRepo) InsertAppointment(_ context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return nil, r.insertErr
	}
	r.inserts++
	appt.CreatedAt = time.Now()
	appt.UpdatedAt = appt.CreatedAt
	r.appts = append(r.appts, appt)
	return &appt, nil
}

func (r *memRepo) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.appts {
		if r.appts[i].ID == id && r.appts[i].Status == from {
			r.appts[i].Status = to
			a := r.appts[i]
			return &a, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.eventErr != nil {
		return r.eventErr
	}
	r.events = append(r.events, ev)
	return nil
}

// seed stores a booked appointment directly, bypassing the service.
func (r *memRepo) seed(user string, b Barber, date string, start timegrid.TimeOfDay, duration int) Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := Appointment{
		ID:              uuid.New(),
		UserID:          user,
		BarberID:        b.ID,
		BarberName:      b.Name,
		Date:            date,
		Time:            start,
		DurationMinutes: duration,
		Status:          StatusBooked,
	}
	r.appts = append(r.appts, a)
	return a
}

func (r *memRepo) active() []Appointment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Appointment
	for _, a := range r.appts {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

func newBarber(name string) Barber {
	return Barber{ID: uuid.New(), Name: name, WorkingHours: DefaultWorkingHours}
}

func testPolicy() Policy {
	return DefaultPolicy()
}

// at returns a wall-clock instant in the shop timezone.
func at(t *testing.T, date string, hour, minute int) time.Time {
	t.Helper()
	ts, err := timegrid.ToLocalDateTime(date, timegrid.Clock(hour, minute), testPolicy().Location)
	if err != nil {
		t.Fatalf("at: %v", err)
	}
	return ts
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo Repository, now time.Time, opts ...Option) *Service {
	opts = append([]Option{WithClock(fixedClock{t: now})}, opts...)
	return NewService(repo, redisclient.NewNopLocker(), testPolicy(), discardLogger(), opts...)
}
