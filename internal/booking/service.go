package booking

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/hackgods/barbershop-scheduling/internal/redis"
	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

const (
	EventAppointmentBooked    = "APPOINTMENT_BOOKED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
)

// Mode is the resolution strategy picked from which of date and time a
// request carries.
type Mode string

const (
	ModeDateTime Mode = "date_time"
	ModeDateOnly Mode = "date_only"
	ModeTimeOnly Mode = "time_only"
	ModeASAP     Mode = "asap"
)

func modeOf(date string, start timegrid.TimeOfDay) Mode {
	switch {
	case date != "" && start.IsSet():
		return ModeDateTime
	case date != "":
		return ModeDateOnly
	case start.IsSet():
		return ModeTimeOnly
	default:
		return ModeASAP
	}
}

// BookingRequest is a partially specified booking. Date and Time may be raw
// user phrases ("tomorrow", "2pm", "evening", "asap") or normalized values.
type BookingRequest struct {
	UserID          string
	BarberName      string
	ServiceName     string
	Date            string
	Time            string
	DurationMinutes int
}

// Recorder observes booking outcomes.
type Recorder interface {
	ObserveBooking(mode, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveBooking(string, string) {}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

type Service struct {
	repo      Repository
	locker    redisclient.Locker
	policy    Policy
	clock     Clock
	validator *Validator
	recorder  Recorder
	logger    *slog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, policy Policy, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		repo:     repo,
		locker:   locker,
		policy:   policy,
		clock:    systemClock{},
		recorder: nopRecorder{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.validator = NewValidator(policy, s.clock)
	return s
}

func (s *Service) Policy() Policy {
	return s.policy
}

// Book resolves a request to one concrete (barber, date, time) and commits
// it. The chosen slot is re-validated against freshly read appointments and
// against the customer's own calendar before the single insert.
func (s *Service) Book(ctx context.Context, req BookingRequest) (appt *Appointment, err error) {
	mode := ModeASAP
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = KindOf(err).String()
		}
		s.recorder.ObserveBooking(string(mode), outcome)
	}()

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return nil, inputError(ReasonMissingUser, "missing user", nil)
	}
	duration, err := s.durationOrDefault(req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	now := s.validator.now()
	date, err := timegrid.NormalizeDate(req.Date, now)
	if err != nil {
		return nil, inputError(ReasonInvalidDate, fmt.Sprintf("could not understand the date %q", req.Date), err)
	}
	start, err := timegrid.NormalizeTime(req.Time)
	if err != nil {
		return nil, inputError(ReasonInvalidTime, fmt.Sprintf("could not understand the time %q", req.Time), err)
	}
	mode = modeOf(date, start)

	svc, err := s.lookupService(ctx, req.ServiceName)
	if err != nil {
		return nil, err
	}
	barbers, err := s.candidates(ctx, req.BarberName)
	if err != nil {
		return nil, err
	}

	var (
		chosen Barber
		slot   Slot
	)
	switch mode {
	case ModeDateTime:
		chosen, slot, err = s.resolveDateTime(ctx, barbers, date, start, duration)
	case ModeDateOnly:
		chosen, slot, err = s.resolveDateOnly(ctx, barbers, date, duration)
	case ModeTimeOnly:
		chosen, slot, err = s.resolveTimeOnly(ctx, barbers, start, duration, now)
	default:
		chosen, slot, err = s.resolveASAP(ctx, barbers, duration, now)
	}
	if err != nil {
		if mode == ModeDateTime && len(barbers) == 1 {
			s.attachAlternatives(ctx, err, barbers[0], date, start, duration)
		}
		s.logger.Info("booking not resolved", "user_id", userID, "mode", mode, "err", err)
		return nil, err
	}

	appt, err = s.commit(ctx, userID, chosen, slot, duration, svc, req.ServiceName)
	if err != nil {
		s.logger.Info("booking rejected at commit", "user_id", userID, "mode", mode, "barber_id", chosen.ID, "slot", slot.String(), "err", err)
		return nil, err
	}

	s.logger.Info("appointment booked", "appointment_id", appt.ID, "user_id", userID, "mode", mode, "barber_id", chosen.ID, "slot", slot.String())
	return appt, nil
}

func (s *Service) resolveDateTime(ctx context.Context, barbers []Barber, date string, start timegrid.TimeOfDay, duration int) (Barber, Slot, error) {
	var lastErr error
	for _, b := range barbers {
		existing, err := s.repo.ListAppointmentsForBarberOnDate(ctx, b.ID, date)
		if err != nil {
			return Barber{}, Slot{}, repositoryError("list barber appointments", err)
		}
		err = s.validator.Check(date, start, duration, b, existing)
		if err == nil {
			return b, Slot{Date: date, Time: start}, nil
		}
		lastErr = err
	}

	e := &Error{
		Kind:   KindConstraint,
		Reason: ReasonOf(lastErr),
		Msg:    fmt.Sprintf("no barber available on %s at %s", date, start),
	}
	if KindOf(lastErr) == KindInput {
		e.Kind = KindInput
	}
	if len(barbers) == 1 {
		e.Msg += " (" + Message(lastErr) + ")"
	}
	return Barber{}, Slot{}, e
}

func (s *Service) resolveDateOnly(ctx context.Context, barbers []Barber, date string, duration int) (Barber, Slot, error) {
	if _, err := timegrid.ParseDate(date, s.policy.Location); err != nil {
		return Barber{}, Slot{}, inputError(ReasonInvalidDate, fmt.Sprintf("invalid date %q", date), err)
	}
	for _, b := range barbers {
		existing, err := s.repo.ListAppointmentsForBarberOnDate(ctx, b.ID, date)
		if err != nil {
			return Barber{}, Slot{}, repositoryError("list barber appointments", err)
		}
		if t, ok := s.firstAdmissible(b, date, b.WorkingHours.Start, duration, existing); ok {
			return b, Slot{Date: date, Time: t}, nil
		}
	}
	return Barber{}, Slot{}, exhaustedError(fmt.Sprintf("no free slots on %s", date))
}

func (s *Service) resolveTimeOnly(ctx context.Context, barbers []Barber, start timegrid.TimeOfDay, duration int, now time.Time) (Barber, Slot, error) {
	today := timegrid.DateOf(now)
	for _, b := range barbers {
		for d := 0; d <= s.policy.LookaheadDays; d++ {
			date, err := timegrid.AddDays(today, d)
			if err != nil {
				return Barber{}, Slot{}, err
			}
			existing, err := s.repo.ListAppointmentsForBarberOnDate(ctx, b.ID, date)
			if err != nil {
				return Barber{}, Slot{}, repositoryError("list barber appointments", err)
			}
			if s.validator.Admissible(date, start, duration, b, existing) {
				return b, Slot{Date: date, Time: start}, nil
			}
		}
	}
	return Barber{}, Slot{}, exhaustedError(
		fmt.Sprintf("no barbers free at %s in the next %d days", start, s.policy.LookaheadDays))
}

func (s *Service) resolveASAP(ctx context.Context, barbers []Barber, duration int, now time.Time) (Barber, Slot, error) {
	var (
		best   Barber
		bestAt Slot
		found  bool
	)
	for _, b := range barbers {
		slot, ok, err := s.nextSlotFor(ctx, b, duration, now)
		if err != nil {
			return Barber{}, Slot{}, err
		}
		// strict Before keeps roster order on ties
		if ok && (!found || slot.Before(bestAt)) {
			best, bestAt, found = b, slot, true
		}
	}
	if !found {
		return Barber{}, Slot{}, exhaustedError(
			fmt.Sprintf("couldn't find any available barber in the next %d days", s.policy.LookaheadDays))
	}
	return best, bestAt, nil
}

func (s *Service) commit(ctx context.Context, userID string, b Barber, slot Slot, duration int, svc *ShopService, serviceName string) (*Appointment, error) {
	var created *Appointment

	err := s.locker.WithLock(ctx, redisclient.UserDateKey(userID, slot.Date), func(ctx context.Context) error {
		return s.locker.WithLock(ctx, redisclient.BarberDateKey(b.ID, slot.Date), func(lockCtx context.Context) error {
			existing, err := s.repo.ListAppointmentsForBarberOnDate(lockCtx, b.ID, slot.Date)
			if err != nil {
				return repositoryError("recheck barber appointments", err)
			}
			if err := s.validator.Check(slot.Date, slot.Time, duration, b, existing); err != nil {
				return err
			}

			mine, err := s.repo.ListAppointmentsForUser(lockCtx, userID)
			if err != nil {
				return repositoryError("recheck user appointments", err)
			}
			for _, a := range mine {
				if a.IsActive() && a.Date == slot.Date && timegrid.Overlaps(slot.Time, duration, a.Time, a.Duration()) {
					return constraintError(ReasonUserOverlap, "you already have an overlapping appointment")
				}
			}

			appt := Appointment{
				ID:              uuid.New(),
				UserID:          userID,
				BarberID:        b.ID,
				BarberName:      b.Name,
				Date:            slot.Date,
				Time:            slot.Time,
				DurationMinutes: duration,
				Status:          StatusBooked,
			}
			if svc != nil {
				appt.ServiceID = &svc.ID
				appt.ServiceName = &svc.Name
			} else if name := strings.TrimSpace(serviceName); name != "" {
				appt.ServiceName = &name
			}

			inserted, err := s.repo.InsertAppointment(lockCtx, appt)
			if errors.Is(err, ErrSlotTaken) {
				return constraintError(ReasonAlreadyBooked, "time slot already booked")
			}
			if err != nil {
				return repositoryError("insert appointment", err)
			}
			created = inserted

			s.logEvent(lockCtx, inserted.ID, EventAppointmentBooked, map[string]any{
				"user_id":   userID,
				"barber_id": b.ID.String(),
				"date":      slot.Date,
				"time":      slot.Time.String(),
				"duration":  duration,
			})
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, &Error{
				Kind:   KindConstraint,
				Reason: ReasonSlotBusy,
				Msg:    "slot is currently being booked, please retry shortly",
				Err:    err,
			}
		}
		var be *Error
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, repositoryError("booking lock", err)
	}
	return created, nil
}

func (s *Service) attachAlternatives(ctx context.Context, err error, b Barber, date string, start timegrid.TimeOfDay, duration int) {
	var be *Error
	if !errors.As(err, &be) || be.Kind != KindConstraint {
		return
	}
	alts, sErr := s.suggestFor(ctx, b, date, start, duration, DefaultSuggestionLimit)
	if sErr != nil {
		s.logger.Warn("suggest alternatives failed", "barber_id", b.ID, "err", sErr)
		return
	}
	be.Alternatives = alts
}

// CancelLatestAppointment cancels the customer's booked appointment with the
// greatest (date, time).
func (s *Service) CancelLatestAppointment(ctx context.Context, userID string) (*Appointment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, inputError(ReasonMissingUser, "missing user", nil)
	}

	appts, err := s.repo.ListAppointmentsForUser(ctx, userID)
	if err != nil {
		return nil, repositoryError("list user appointments", err)
	}

	var latest *Appointment
	for i := range appts {
		a := &appts[i]
		if a.Status != StatusBooked {
			continue
		}
		if latest == nil || latest.Slot().Before(a.Slot()) {
			latest = a
		}
	}
	if latest == nil {
		return nil, notFoundError("you have no active appointments to cancel", nil)
	}

	cancelled, err := s.repo.UpdateAppointmentStatus(ctx, latest.ID, StatusBooked, StatusCancelled)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, notFoundError("you have no active appointments to cancel", err)
		}
		return nil, repositoryError("cancel appointment", err)
	}

	s.logEvent(ctx, cancelled.ID, EventAppointmentCancelled, map[string]any{
		"user_id": userID,
		"reason":  "cancel_latest",
	})
	s.logger.Info("appointment cancelled", "appointment_id", cancelled.ID, "user_id", userID)
	return cancelled, nil
}

// ViewAppointments lists every appointment of the customer ascending by
// (date, time), cancelled ones included.
func (s *Service) ViewAppointments(ctx context.Context, userID string) ([]Appointment, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, inputError(ReasonMissingUser, "missing user", nil)
	}
	appts, err := s.repo.ListAppointmentsForUser(ctx, userID)
	if err != nil {
		return nil, repositoryError("list user appointments", err)
	}
	slices.SortStableFunc(appts, func(a, b Appointment) int {
		if c := cmp.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Time, b.Time)
	})
	return appts, nil
}

func (s *Service) ListBarbers(ctx context.Context) ([]Barber, error) {
	barbers, err := s.repo.ListBarbers(ctx)
	if err != nil {
		return nil, repositoryError("list barbers", err)
	}
	return barbers, nil
}

func (s *Service) ListServices(ctx context.Context) ([]ShopService, error) {
	services, err := s.repo.ListServices(ctx)
	if err != nil {
		return nil, repositoryError("list services", err)
	}
	return services, nil
}

func (s *Service) candidates(ctx context.Context, name string) ([]Barber, error) {
	barbers, err := s.repo.ListBarbers(ctx)
	if err != nil {
		return nil, repositoryError("list barbers", err)
	}
	if len(barbers) == 0 {
		return nil, notFoundError("no barbers found", nil)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return barbers, nil
	}
	for _, b := range barbers {
		if strings.EqualFold(strings.TrimSpace(b.Name), name) {
			return []Barber{b}, nil
		}
	}
	return nil, inputError(ReasonUnknownBarber, fmt.Sprintf("barber %q not found", name), nil)
}

func (s *Service) lookupService(ctx context.Context, name string) (*ShopService, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	svc, err := s.repo.GetServiceByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, nil
		}
		return nil, repositoryError("lookup service", err)
	}
	return svc, nil
}

func (s *Service) barber(ctx context.Context, id uuid.UUID) (*Barber, error) {
	b, err := s.repo.GetBarberByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrBarberNotFound) {
			return nil, notFoundError("barber not found", err)
		}
		return nil, repositoryError("load barber", err)
	}
	return b, nil
}

func (s *Service) durationOrDefault(minutes int) (int, error) {
	switch {
	case minutes == 0:
		return s.policy.DefaultDuration, nil
	case minutes < 0 || minutes > 24*60:
		return 0, inputError(ReasonInvalidDuration, fmt.Sprintf("invalid duration %d minutes", minutes), nil)
	default:
		return minutes, nil
	}
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("marshal event payload", "event_type", eventType, "err", err)
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.clock.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("insert event log", "event_type", eventType, "appointment_id", appointmentID, "err", err)
	}
}
