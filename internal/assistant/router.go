// Package assistant turns recognized chat intents into booking operations and
// short customer-facing replies.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hackgods/barbershop-scheduling/internal/booking"
	"github.com/hackgods/barbershop-scheduling/internal/session"
)

const (
	IntentBook         = "book_appointment"
	IntentCancel       = "cancel_appointment"
	IntentView         = "view_appointments"
	IntentListBarbers  = "list_barbers"
	IntentListServices = "list_services"
	IntentSmallTalk    = "small_talk"
)

// Booker is the part of booking.Service the router drives.
type Booker interface {
	Book(ctx context.Context, req booking.BookingRequest) (*booking.Appointment, error)
	CancelLatestAppointment(ctx context.Context, userID string) (*booking.Appointment, error)
	ViewAppointments(ctx context.Context, userID string) ([]booking.Appointment, error)
	ListBarbers(ctx context.Context) ([]booking.Barber, error)
	ListServices(ctx context.Context) ([]booking.ShopService, error)
}

// IntentRecorder observes routed intents.
type IntentRecorder interface {
	ObserveIntent(intent string, success bool)
}

type Request struct {
	SessionID string
	UserID    string
	// Intent comes from an upstream classifier. When empty the message is
	// classified by keywords.
	Intent  string
	Barber  string
	Date    string
	Time    string
	Message string
}

type Reply struct {
	Success      bool
	Intent       string
	Text         string
	Appointment  *booking.Appointment
	Alternatives []booking.Slot
}

type Router struct {
	booker   Booker
	sessions session.Store
	loc      *time.Location
	now      func() time.Time
	recorder IntentRecorder
	logger   *slog.Logger
}

type RouterOption func(*Router)

func WithIntentRecorder(r IntentRecorder) RouterOption {
	return func(rt *Router) { rt.recorder = r }
}

func WithNow(now func() time.Time) RouterOption {
	return func(rt *Router) { rt.now = now }
}

func NewRouter(booker Booker, sessions session.Store, loc *time.Location, logger *slog.Logger, opts ...RouterOption) *Router {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Router{
		booker:   booker,
		sessions: sessions,
		loc:      loc,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle routes one chat turn. The returned error is reserved for session
// store failures; booking failures come back as a Reply with Success false.
func (r *Router) Handle(ctx context.Context, req Request) (Reply, error) {
	intent := strings.TrimSpace(req.Intent)
	if intent == "" {
		intent = Classify(req.Message)
	}

	sess, err := r.sessions.Get(ctx, req.SessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("load session: %w", err)
	}
	sess = sess.Merge(session.Session{
		Intent: intent,
		Barber: strings.TrimSpace(req.Barber),
		Date:   strings.TrimSpace(req.Date),
		Time:   strings.TrimSpace(req.Time),
	})

	var reply Reply
	switch intent {
	case IntentListBarbers:
		reply = r.listBarbers(ctx)
	case IntentListServices:
		reply = r.listServices(ctx)
	case IntentBook:
		reply = r.book(ctx, req, sess)
	case IntentView:
		reply = r.view(ctx, req.UserID)
	case IntentCancel:
		reply = r.cancel(ctx, req.UserID)
	case IntentSmallTalk:
		reply = Reply{Success: true, Text: "Hi! How can I help you today?"}
	default:
		reply = Reply{Text: "Sorry, I couldn't understand that."}
	}
	reply.Intent = intent

	if intent == IntentBook && reply.Success {
		err = r.sessions.Delete(ctx, req.SessionID)
	} else {
		err = r.sessions.Save(ctx, req.SessionID, sess)
	}
	if err != nil {
		return Reply{}, fmt.Errorf("store session: %w", err)
	}

	if r.recorder != nil {
		r.recorder.ObserveIntent(intent, reply.Success)
	}
	return reply, nil
}

// book fills gaps in the session from the message. Values detected in free
// text apply to this turn only and are never saved.
func (r *Router) book(ctx context.Context, req Request, sess session.Session) Reply {
	barber, date, clock := sess.Barber, sess.Date, sess.Time
	if date == "" || clock == "" {
		detectedDate, detectedClock := DetectDateTime(req.Message, r.now().In(r.loc))
		if date == "" {
			date = detectedDate
		}
		if clock == "" {
			clock = detectedClock
		}
	}
	if barber == "" {
		if barbers, err := r.booker.ListBarbers(ctx); err == nil {
			barber = mentionedBarber(req.Message, barbers)
		}
	}

	appt, err := r.booker.Book(ctx, booking.BookingRequest{
		UserID:     req.UserID,
		BarberName: barber,
		Date:       date,
		Time:       clock,
	})
	if err != nil {
		r.logger.Info("chat booking failed", "session_id", req.SessionID, "kind", booking.KindOf(err).String(), "err", err)
		reply := Reply{Text: booking.Message(err)}
		var be *booking.Error
		if errors.As(err, &be) && len(be.Alternatives) > 0 {
			reply.Alternatives = be.Alternatives
			reply.Text += ". Next available: " + joinSlots(be.Alternatives)
		}
		return reply
	}

	return Reply{
		Success:     true,
		Text:        fmt.Sprintf("Appointment booked with %s on %s at %s.", appt.BarberName, appt.Date, appt.Time),
		Appointment: appt,
	}
}

func (r *Router) listBarbers(ctx context.Context) Reply {
	barbers, err := r.booker.ListBarbers(ctx)
	if err != nil {
		return Reply{Text: "Couldn't fetch barbers: " + booking.Message(err)}
	}
	if len(barbers) == 0 {
		return Reply{Text: "No barbers found."}
	}
	names := make([]string, 0, len(barbers))
	for _, b := range barbers {
		names = append(names, b.Name)
	}
	return Reply{Success: true, Text: fmt.Sprintf("We have %d barbers: %s.", len(barbers), strings.Join(names, ", "))}
}

func (r *Router) listServices(ctx context.Context) Reply {
	services, err := r.booker.ListServices(ctx)
	if err != nil {
		return Reply{Text: "Couldn't fetch services: " + booking.Message(err)}
	}
	if len(services) == 0 {
		return Reply{Text: "No services found."}
	}
	lines := make([]string, 0, len(services))
	for _, s := range services {
		lines = append(lines, fmt.Sprintf("%s - %s PKR", s.Name, strconv.FormatFloat(s.Price, 'f', -1, 64)))
	}
	return Reply{Success: true, Text: "Our services:\n" + strings.Join(lines, "\n")}
}

func (r *Router) view(ctx context.Context, userID string) Reply {
	appts, err := r.booker.ViewAppointments(ctx, userID)
	if err != nil {
		return Reply{Text: "Couldn't fetch appointments: " + booking.Message(err)}
	}
	if len(appts) == 0 {
		return Reply{Success: true, Text: "You have no upcoming appointments."}
	}
	lines := make([]string, 0, len(appts))
	for _, a := range appts {
		line := fmt.Sprintf("%s on %s at %s", a.BarberName, a.Date, a.Time)
		if a.Status == booking.StatusCancelled {
			line += " (cancelled)"
		}
		lines = append(lines, line)
	}
	return Reply{Success: true, Text: "Your appointments:\n" + strings.Join(lines, "\n")}
}

func (r *Router) cancel(ctx context.Context, userID string) Reply {
	appt, err := r.booker.CancelLatestAppointment(ctx, userID)
	if err != nil {
		return Reply{Text: booking.Message(err)}
	}
	return Reply{
		Success:     true,
		Text:        fmt.Sprintf("Cancelled your appointment with %s on %s at %s.", appt.BarberName, appt.Date, appt.Time),
		Appointment: appt,
	}
}

func mentionedBarber(message string, barbers []booking.Barber) string {
	words := wordRE.FindAllString(strings.ToLower(message), -1)
	for _, b := range barbers {
		name := strings.ToLower(strings.TrimSpace(b.Name))
		if name == "" {
			continue
		}
		if strings.Contains(" "+strings.Join(words, " ")+" ", " "+name+" ") {
			return b.Name
		}
	}
	return ""
}

func joinSlots(slots []booking.Slot) string {
	parts := make([]string, 0, len(slots))
	for _, s := range slots {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, ", ")
}
