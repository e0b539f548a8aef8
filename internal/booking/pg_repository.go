package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/barbershop-scheduling/internal/timegrid"
)

type PgRepository struct {
	pool *pgxpool.Pool
	psql sq.StatementBuilderType
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{
		pool: pool,
		psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var appointmentColumns = []string{
	"a.id", "a.user_id", "a.barber_id", "b.name", "a.service_id", "a.service_name",
	"a.appt_date", "a.start_minute", "a.duration_minutes", "a.status", "a.created_at", "a.updated_at",
}

// appointmentFilter narrows an appointment listing. Zero fields are ignored.
type appointmentFilter struct {
	BarberID uuid.UUID
	UserID   string
	Date     string
	Status   AppointmentStatus
}

// Helpers

func scanBarber(row pgx.Row) (*Barber, error) {
	var (
		b                    Barber
		workStart, workEnd   *int32
		breakStart, breakEnd *int32
		speciality           *string
	)

	err := row.Scan(
		&b.ID,
		&b.Name,
		&workStart,
		&workEnd,
		&breakStart,
		&breakEnd,
		&speciality,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBarberNotFound
		}
		return nil, err
	}

	b.WorkingHours = DefaultWorkingHours
	if workStart != nil && workEnd != nil {
		b.WorkingHours = Hours{Start: timegrid.TimeOfDay(*workStart), End: timegrid.TimeOfDay(*workEnd)}
	}
	if breakStart != nil && breakEnd != nil {
		b.BreakTime = &Hours{Start: timegrid.TimeOfDay(*breakStart), End: timegrid.TimeOfDay(*breakEnd)}
	}
	b.Speciality = speciality
	return &b, nil
}

func scanShopService(row pgx.Row) (*ShopService, error) {
	var s ShopService

	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Price,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		a           Appointment
		date        time.Time
		startMinute int32
		duration    int32
	)

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.BarberID,
		&a.BarberName,
		&a.ServiceID,
		&a.ServiceName,
		&date,
		&startMinute,
		&duration,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = date.Format(timegrid.DateLayout)
	a.Time = timegrid.TimeOfDay(startMinute)
	a.DurationMinutes = int(duration)
	return &a, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var result []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// dateParam converts a YYYY-MM-DD string to the value bound to DATE columns.
func dateParam(date string) (time.Time, error) {
	return timegrid.ParseDate(date, time.UTC)
}

// Interface methods

const barberColumns = `id, name, work_start_minute, work_end_minute, break_start_minute, break_end_minute, speciality, created_at, updated_at`

func (r *PgRepository) GetBarberByID(ctx context.Context, id uuid.UUID) (*Barber, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+barberColumns+`
		FROM barbers
		WHERE id = $1
	`, id)
	return scanBarber(row)
}

func (r *PgRepository) ListBarbers(ctx context.Context) ([]Barber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+barberColumns+`
		FROM barbers
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list barbers: %w", err)
	}
	return collect(rows, scanBarber)
}

func (r *PgRepository) ListServices(ctx context.Context) ([]ShopService, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, price, created_at, updated_at
		FROM services
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return collect(rows, scanShopService)
}

func (r *PgRepository) GetServiceByName(ctx context.Context, name string) (*ShopService, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, price, created_at, updated_at
		FROM services
		WHERE lower(name) = lower($1)
		LIMIT 1
	`, name)
	return scanShopService(row)
}

func (r *PgRepository) ListAppointmentsForBarberOnDate(ctx context.Context, barberID uuid.UUID, date string) ([]Appointment, error) {
	return r.listAppointments(ctx, appointmentFilter{BarberID: barberID, Date: date})
}

func (r *PgRepository) ListAppointmentsForUser(ctx context.Context, userID string) ([]Appointment, error) {
	return r.listAppointments(ctx, appointmentFilter{UserID: userID})
}

func (r *PgRepository) appointmentQuery(f appointmentFilter) (string, []any, error) {
	q := r.psql.Select(appointmentColumns...).
		From("appointments a").
		Join("barbers b ON b.id = a.barber_id").
		OrderBy("a.appt_date", "a.start_minute", "a.created_at")

	if f.BarberID != uuid.Nil {
		q = q.Where(sq.Eq{"a.barber_id": f.BarberID})
	}
	if f.UserID != "" {
		q = q.Where(sq.Eq{"a.user_id": f.UserID})
	}
	if f.Date != "" {
		d, err := dateParam(f.Date)
		if err != nil {
			return "", nil, fmt.Errorf("list appointments: %w", err)
		}
		q = q.Where(sq.Eq{"a.appt_date": d})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"a.status": f.Status})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("build appointment query: %w", err)
	}
	return query, args, nil
}

func (r *PgRepository) listAppointments(ctx context.Context, f appointmentFilter) ([]Appointment, error) {
	query, args, err := r.appointmentQuery(f)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return collect(rows, scanAppointment)
}

func (r *PgRepository) InsertAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	d, err := dateParam(appt.Date)
	if err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO appointments (id, user_id, barber_id, service_id, service_name, appt_date, start_minute, duration_minutes, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
			RETURNING *
		)
		SELECT a.id, a.user_id, a.barber_id, b.name, a.service_id, a.service_name,
		       a.appt_date, a.start_minute, a.duration_minutes, a.status, a.created_at, a.updated_at
		FROM inserted a
		JOIN barbers b ON b.id = a.barber_id
	`, appt.ID, appt.UserID, appt.BarberID, appt.ServiceID, appt.ServiceName, d, int32(appt.Time), int32(appt.Duration()), appt.Status)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

// UpdateAppointmentStatus flips status only while it still equals from.
// ErrAppointmentNotFound is returned when no row matched.
func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		WITH updated AS (
			UPDATE appointments
			SET status = $2,
			    updated_at = now()
			WHERE id = $1
			  AND status = $3
			RETURNING *
		)
		SELECT a.id, a.user_id, a.barber_id, b.name, a.service_id, a.service_name,
		       a.appt_date, a.start_minute, a.duration_minutes, a.status, a.created_at, a.updated_at
		FROM updated a
		JOIN barbers b ON b.id = a.barber_id
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

// CreateBarber and CreateService back the seed and admin tooling.

func (r *PgRepository) CreateBarber(ctx context.Context, b Barber) (*Barber, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	wh := b.WorkingHours
	if wh == (Hours{}) {
		wh = DefaultWorkingHours
	}
	var breakStart, breakEnd *int32
	if b.BreakTime != nil {
		s, e := int32(b.BreakTime.Start), int32(b.BreakTime.End)
		breakStart, breakEnd = &s, &e
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO barbers (id, name, work_start_minute, work_end_minute, break_start_minute, break_end_minute, speciality, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING `+barberColumns,
		b.ID, b.Name, int32(wh.Start), int32(wh.End), breakStart, breakEnd, b.Speciality)
	return scanBarber(row)
}

func (r *PgRepository) CreateService(ctx context.Context, s ShopService) (*ShopService, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO services (id, name, price, created_at, updated_at)
		VALUES ($1, $2, $3, now(), now())
		RETURNING id, name, price, created_at, updated_at
	`, s.ID, s.Name, s.Price)
	return scanShopService(row)
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
