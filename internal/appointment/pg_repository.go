package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const appointmentColumns = `id, doctor_id, patient_id, appt_date, start_time, end_time, reason, status, version, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var date pgtype.Date
	var start, end pgtype.Time

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&date,
		&start,
		&end,
		&a.Reason,
		&a.Status,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Date = timeslot.DateFromPG(date)
	a.StartTime = timeslot.TimeFromPG(start)
	a.EndTime = timeslot.TimeFromPG(end)
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// versionMiss tells a missing row apart from a stale version after a
// conditional update matched nothing.
func (r *PgRepository) versionMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrAppointmentNotFound
	}
	return ErrConcurrentUpdate
}

func activeStatusArgs() []string {
	out := make([]string, len(ActiveStatuses))
	for i, s := range ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) HasActiveAt(ctx context.Context, doctorID uuid.UUID, date timeslot.Date, start timeslot.TimeOfDay, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_id = $1
			  AND appt_date = $2
			  AND start_time = $3
			  AND status = ANY($4)
			  AND id <> $5
		)
	`, doctorID, date.PG(), start.PG(), activeStatusArgs(), excludeID).Scan(&exists)
	return exists, err
}

func (r *PgRepository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor_id, patient_id, appt_date, start_time, end_time, reason, status, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, a.DoctorID, a.PatientID, a.Date.PG(), a.StartTime.PG(), a.EndTime.PG(), a.Reason, a.Status)

	created, err := scanAppointment(row)
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintActiveAppointment) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}
	return created, nil
}

func (r *PgRepository) UpdateStatus(ctx context.Context, id uuid.UUID, version int, to Status) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		  AND version = $2
		RETURNING `+appointmentColumns,
		id, version, to)

	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, r.versionMiss(ctx, id)
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}
	return updated, nil
}

func (r *PgRepository) Reschedule(ctx context.Context, id uuid.UUID, version int, rg timeslot.Range) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE appointments
		SET appt_date = $3,
		    start_time = $4,
		    end_time = $5,
		    version = version + 1,
		    updated_at = now()
		WHERE id = $1
		  AND version = $2
		RETURNING `+appointmentColumns,
		id, version, rg.Date.PG(), rg.Start.PG(), rg.End.PG())

	updated, err := scanAppointment(row)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			return nil, r.versionMiss(ctx, id)
		case db.IsUniqueViolation(err, db.ConstraintActiveAppointment):
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}
	return updated, nil
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY appt_date DESC, start_time DESC, id
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *timeslot.Date) ([]Appointment, error) {
	var dateArg *time.Time
	if date != nil {
		t := date.Time()
		dateArg = &t
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND ($2::date IS NULL OR appt_date = $2::date)
		ORDER BY appt_date, start_time, id
	`, doctorID, dateArg)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) CountByDoctorOnDate(ctx context.Context, doctorID uuid.UUID, date timeslot.Date) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments WHERE doctor_id = $1 AND appt_date = $2
	`, doctorID, date.PG()).Scan(&n)
	return n, err
}

func (r *PgRepository) CountDistinctPatients(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(DISTINCT patient_id) FROM appointments WHERE doctor_id = $1 AND status = ANY($2)
	`, doctorID, activeStatusArgs()).Scan(&n)
	return n, err
}

func (r *PgRepository) CountPendingFrom(ctx context.Context, doctorID uuid.UUID, from timeslot.Date) (int64, error) {
	var n int64
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM appointments WHERE doctor_id = $1 AND status = $2 AND appt_date >= $3
	`, doctorID, StatusPending, from.PG()).Scan(&n)
	return n, err
}
