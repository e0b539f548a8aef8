package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/barbershop-scheduling/internal/assistant"
	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

// BookingService is the booking surface exposed over HTTP.
type BookingService interface {
	Book(ctx context.Context, req booking.BookingRequest) (*booking.Appointment, error)
	CancelLatestAppointment(ctx context.Context, userID string) (*booking.Appointment, error)
	ViewAppointments(ctx context.Context, userID string) ([]booking.Appointment, error)
	ListBarbers(ctx context.Context) ([]booking.Barber, error)
	ListServices(ctx context.Context) ([]booking.ShopService, error)
	FindNextAvailableSlot(ctx context.Context, barberID uuid.UUID, duration int) (booking.Slot, bool, error)
	SuggestAlternatives(ctx context.Context, barberID uuid.UUID, date string, start timegrid.TimeOfDay, duration, limit int) ([]booking.Slot, error)
}

type ChatRouter interface {
	Handle(ctx context.Context, req assistant.Request) (assistant.Reply, error)
}

func createAppointmentHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Book(r.Context(), booking.BookingRequest{
			UserID:          req.UserID,
			BarberName:      req.Barber,
			ServiceName:     req.Service,
			Date:            req.Date,
			Time:            req.Time,
			DurationMinutes: req.Duration,
		})
		if err != nil {
			writeBookingError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func listUserAppointmentsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appts, err := svc.ViewAppointments(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeBookingError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func cancelLatestHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.CancelLatestAppointment(r.Context(), chi.URLParam(r, "userID"))
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listBarbersHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barbers, err := svc.ListBarbers(r.Context())
		if err != nil {
			writeBookingError(w, err)
			return
		}

		resp := make([]BarberResponse, 0, len(barbers))
		for _, b := range barbers {
			resp = append(resp, toBarberResponse(b))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listServicesHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services, err := svc.ListServices(r.Context())
		if err != nil {
			writeBookingError(w, err)
			return
		}

		resp := make([]ServiceResponse, 0, len(services))
		for _, s := range services {
			resp = append(resp, ServiceResponse{ID: s.ID, Name: s.Name, Price: s.Price})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func nextSlotHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barberID, ok := barberIDParam(w, r)
		if !ok {
			return
		}
		duration, ok := intQuery(w, r, "duration")
		if !ok {
			return
		}

		slot, found, err := svc.FindNextAvailableSlot(r.Context(), barberID, duration)
		if err != nil {
			writeBookingError(w, err)
			return
		}

		resp := NextSlotResponse{Found: found}
		if found {
			resp.Slot = &SlotResponse{Date: slot.Date, Time: slot.Time.String()}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func suggestionsHandler(svc BookingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barberID, ok := barberIDParam(w, r)
		if !ok {
			return
		}
		duration, ok := intQuery(w, r, "duration")
		if !ok {
			return
		}
		limit, ok := intQuery(w, r, "limit")
		if !ok {
			return
		}

		start := timegrid.Unset
		if raw := strings.TrimSpace(r.URL.Query().Get("time")); raw != "" {
			t, err := timegrid.NormalizeTime(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_time", err.Error())
				return
			}
			start = t
		}

		slots, err := svc.SuggestAlternatives(r.Context(), barberID, r.URL.Query().Get("date"), start, duration, limit)
		if err != nil {
			writeBookingError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toSlotResponses(slots))
	}
}

func chatHandler(router ChatRouter, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.UserID) == "" {
			writeError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
			return
		}
		if strings.TrimSpace(req.SessionID) == "" {
			req.SessionID = req.UserID
		}

		reply, err := router.Handle(r.Context(), assistant.Request{
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Intent:    req.Intent,
			Barber:    req.Barber,
			Date:      req.Date,
			Time:      req.Time,
			Message:   req.Message,
		})
		if err != nil {
			logger.Error("chat turn failed", "session_id", req.SessionID, "request_id", GetRequestID(r.Context()), "err", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "could not process message")
			return
		}

		resp := ChatResponse{
			Success: reply.Success,
			Intent:  reply.Intent,
			Reply:   reply.Text,
		}
		if reply.Appointment != nil {
			a := toAppointmentResponse(reply.Appointment)
			resp.Appointment = &a
		}
		if len(reply.Alternatives) > 0 {
			resp.Alternatives = toSlotResponses(reply.Alternatives)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func barberIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_barber_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// intQuery reads an optional integer query parameter; absent means 0.
func intQuery(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be an integer")
		return 0, false
	}
	return n, true
}
