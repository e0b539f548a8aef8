package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/barbershop-scheduling/internal/booking"
)

type CreateAppointmentRequest struct {
	UserID   string `json:"user_id"`
	Barber   string `json:"barber,omitempty"`
	Service  string `json:"service,omitempty"`
	Date     string `json:"date,omitempty"`
	Time     string `json:"time,omitempty"`
	Duration int    `json:"duration,omitempty"`
}

type ChatRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Intent    string `json:"intent,omitempty"`
	Barber    string `json:"barber,omitempty"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time,omitempty"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	Success      bool                 `json:"success"`
	Intent       string               `json:"intent"`
	Reply        string               `json:"reply"`
	Appointment  *AppointmentResponse `json:"appointment,omitempty"`
	Alternatives []SlotResponse       `json:"alternatives,omitempty"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	UserID          string     `json:"user_id"`
	BarberID        uuid.UUID  `json:"barber_id"`
	BarberName      string     `json:"barber_name"`
	ServiceID       *uuid.UUID `json:"service_id,omitempty"`
	ServiceName     *string    `json:"service_name,omitempty"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	DurationMinutes int        `json:"duration"`
	Status          string     `json:"status"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

type SlotResponse struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type NextSlotResponse struct {
	Found bool          `json:"found"`
	Slot  *SlotResponse `json:"slot,omitempty"`
}

type HoursResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type BarberResponse struct {
	ID           uuid.UUID      `json:"id"`
	Name         string         `json:"name"`
	WorkingHours HoursResponse  `json:"working_hours"`
	BreakTime    *HoursResponse `json:"break_time,omitempty"`
	Speciality   *string        `json:"speciality,omitempty"`
}

type ServiceResponse struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Price float64   `json:"price"`
}

type ErrorResponse struct {
	Error        string         `json:"error"`
	Reason       string         `json:"reason,omitempty"`
	Details      string         `json:"details,omitempty"`
	Alternatives []SlotResponse `json:"alternatives,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	resp := AppointmentResponse{
		ID:              a.ID,
		UserID:          a.UserID,
		BarberID:        a.BarberID,
		BarberName:      a.BarberName,
		ServiceID:       a.ServiceID,
		ServiceName:     a.ServiceName,
		Date:            a.Date,
		Time:            a.Time.String(),
		DurationMinutes: a.Duration(),
		Status:          string(a.Status),
	}
	if !a.CreatedAt.IsZero() {
		created := a.CreatedAt
		resp.CreatedAt = &created
	}
	return resp
}

func toSlotResponses(slots []booking.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, SlotResponse{Date: s.Date, Time: s.Time.String()})
	}
	return out
}

func toHoursResponse(h booking.Hours) HoursResponse {
	return HoursResponse{Start: h.Start.String(), End: h.End.String()}
}

func toBarberResponse(b booking.Barber) BarberResponse {
	resp := BarberResponse{
		ID:           b.ID,
		Name:         b.Name,
		WorkingHours: toHoursResponse(b.WorkingHours),
		Speciality:   b.Speciality,
	}
	if b.BreakTime != nil {
		bt := toHoursResponse(*b.BreakTime)
		resp.BreakTime = &bt
	}
	return resp
}
