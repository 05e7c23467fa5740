package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-scheduling/internal/db"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const slotColumns = `id, doctor_id, slot_date, start_time, end_time, is_open, created_at, updated_at`

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var date pgtype.Date
	var start, end pgtype.Time

	err := row.Scan(
		&s.ID,
		&s.DoctorID,
		&date,
		&start,
		&end,
		&s.IsOpen,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Date = timeslot.DateFromPG(date)
	s.StartTime = timeslot.TimeFromPG(start)
	s.EndTime = timeslot.TimeFromPG(end)
	return &s, nil
}

func collectSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func translateWriteErr(err error) error {
	switch {
	case db.IsUniqueViolation(err, db.ConstraintSlotStart):
		return ErrSlotExists
	case db.IsExclusionViolation(err, db.ConstraintSlotOverlap):
		return ErrSlotOverlap
	case db.IsForeignKeyViolation(err, db.ConstraintSlotDoctor):
		return directory.ErrDoctorNotFound
	}
	return err
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.q.QueryRow(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE id = $1`, id)
	return scanSlot(row)
}

func (r *PgRepository) Create(ctx context.Context, s Slot) (*Slot, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, slot_date, start_time, end_time, is_open, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+slotColumns,
		s.ID, s.DoctorID, s.Date.PG(), s.StartTime.PG(), s.EndTime.PG(), s.IsOpen)

	created, err := scanSlot(row)
	if err != nil {
		return nil, fmt.Errorf("insert slot: %w", translateWriteErr(err))
	}
	return created, nil
}

func (r *PgRepository) Update(ctx context.Context, s Slot) (*Slot, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE availability_slots
		SET slot_date = $2,
		    start_time = $3,
		    end_time = $4,
		    is_open = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+slotColumns,
		s.ID, s.Date.PG(), s.StartTime.PG(), s.EndTime.PG(), s.IsOpen)

	updated, err := scanSlot(row)
	if err != nil {
		return nil, fmt.Errorf("update slot: %w", translateWriteErr(err))
	}
	return updated, nil
}

func (r *PgRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM availability_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *timeslot.Date) ([]Slot, error) {
	var dateArg *time.Time
	if date != nil {
		t := date.Time()
		dateArg = &t
	}

	rows, err := r.q.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND ($2::date IS NULL OR slot_date = $2::date)
		ORDER BY slot_date, start_time, id
	`, doctorID, dateArg)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) ExistsAtStart(ctx context.Context, doctorID uuid.UUID, date timeslot.Date, start timeslot.TimeOfDay, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM availability_slots
			WHERE doctor_id = $1 AND slot_date = $2 AND start_time = $3 AND id <> $4
		)
	`, doctorID, date.PG(), start.PG(), excludeID).Scan(&exists)
	return exists, err
}

func (r *PgRepository) FindOverlapping(ctx context.Context, doctorID uuid.UUID, rg timeslot.Range, excludeID uuid.UUID) ([]Slot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND slot_date = $2
		  AND start_time < $4
		  AND end_time > $3
		  AND id <> $5
		ORDER BY start_time
	`, doctorID, rg.Date.PG(), rg.Start.PG(), rg.End.PG(), excludeID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgRepository) FindOpenExact(ctx context.Context, doctorID uuid.UUID, rg timeslot.Range) (*Slot, error) {
	// FOR SHARE keeps the slot from being deleted or closed until the booking commits.
	row := r.q.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND slot_date = $2
		  AND start_time = $3
		  AND end_time = $4
		  AND is_open
		FOR SHARE
	`, doctorID, rg.Date.PG(), rg.Start.PG(), rg.End.PG())
	return scanSlot(row)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *PgRepository) SearchOpenByDoctorName(ctx context.Context, nameQuery string) ([]DoctorSlot, error) {
	rows, err := r.q.Query(ctx, `
		SELECT d.id, d.name, d.specialty,
		       s.id, s.doctor_id, s.slot_date, s.start_time, s.end_time, s.is_open, s.created_at, s.updated_at
		FROM doctors d
		JOIN availability_slots s ON s.doctor_id = d.id
		WHERE d.name ILIKE '%' || $1 || '%'
		  AND s.is_open
		ORDER BY d.name, d.id, s.slot_date, s.start_time
	`, likeEscaper.Replace(nameQuery))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DoctorSlot
	for rows.Next() {
		var ds DoctorSlot
		var date pgtype.Date
		var start, end pgtype.Time
		if err := rows.Scan(
			&ds.Doctor.ID, &ds.Doctor.Name, &ds.Doctor.Specialty,
			&ds.Slot.ID, &ds.Slot.DoctorID, &date, &start, &end, &ds.Slot.IsOpen, &ds.Slot.CreatedAt, &ds.Slot.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ds.Slot.Date = timeslot.DateFromPG(date)
		ds.Slot.StartTime = timeslot.TimeFromPG(start)
		ds.Slot.EndTime = timeslot.TimeFromPG(end)
		result = append(result, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
