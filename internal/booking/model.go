package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

type AppointmentStatus string

const (
	StatusBooked    AppointmentStatus = "booked"
	StatusCancelled AppointmentStatus = "cancelled"
)

const DefaultDurationMinutes = 60

// DefaultWorkingHours applies to barbers stored without explicit hours.
var DefaultWorkingHours = Hours{Start: timegrid.Clock(10, 0), End: timegrid.Clock(22, 0)}

// Hours is a daily [Start, End) window in shop-local time.
type Hours struct {
	Start timegrid.TimeOfDay
	End   timegrid.TimeOfDay
}

func (h Hours) Minutes() int {
	return int(h.End - h.Start)
}

type Barber struct {
	ID           uuid.UUID
	Name         string
	WorkingHours Hours
	BreakTime    *Hours
	Speciality   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ShopService is a catalog entry. It does not affect scheduling.
type ShopService struct {
	ID        uuid.UUID
	Name      string
	Price     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID              uuid.UUID
	UserID          string
	BarberID        uuid.UUID
	BarberName      string
	ServiceID       *uuid.UUID
	ServiceName     *string
	Date            string
	Time            timegrid.TimeOfDay
	DurationMinutes int
	Status          AppointmentStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsActive reports whether the appointment still occupies its interval.
func (a Appointment) IsActive() bool {
	return a.Status != StatusCancelled
}

// Duration falls back to the default for records stored without one.
func (a Appointment) Duration() int {
	if a.DurationMinutes <= 0 {
		return DefaultDurationMinutes
	}
	return a.DurationMinutes
}

func (a Appointment) Slot() Slot {
	return Slot{Date: a.Date, Time: a.Time}
}

// Slot is a concrete (date, time) start.
type Slot struct {
	Date string
	Time timegrid.TimeOfDay
}

// Before orders slots by (date, time). Dates are YYYY-MM-DD so string order
// is calendar order.
func (s Slot) Before(o Slot) bool {
	if s.Date != o.Date {
		return s.Date < o.Date
	}
	return s.Time < o.Time
}

func (s Slot) String() string {
	return fmt.Sprintf("%s %s", s.Date, s.Time)
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
