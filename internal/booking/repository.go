package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrBarberNotFound      = errors.New("barber not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrSlotTaken means the store refused a second booked row at the same start.
	ErrSlotTaken           = errors.New("slot already taken")
)

// Repository contains all store interactions needed by the service.
type Repository interface {
	GetBarberByID(ctx context.Context, id uuid.UUID) (*Barber, error)
	// ListBarbers returns the roster in its stable order.
	ListBarbers(ctx context.Context) ([]Barber, error)

	ListServices(ctx context.Context) ([]ShopService, error)
	GetServiceByName(ctx context.Context, name string) (*ShopService, error)

	// For conflict checks
	ListAppointmentsForBarberOnDate(ctx context.Context, barberID uuid.UUID, date string) ([]Appointment, error)
	ListAppointmentsForUser(ctx context.Context, userID string) ([]Appointment, error)

	// Creation and updates. A booking is exactly one InsertAppointment call.
	InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
