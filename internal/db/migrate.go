package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Constraint names the repositories translate into domain errors.
const (
	ConstraintSlotStart         = "availability_slots_doctor_date_start_key"
	ConstraintSlotOverlap       = "availability_slots_no_overlap"
	ConstraintSlotDoctor        = "availability_slots_doctor_id_fkey"
	ConstraintActiveAppointment = "appointments_active_slot_idx"
	ConstraintRecordAppointment = "medical_records_appointment_id_key"
)

var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS btree_gist`,
	`CREATE TABLE IF NOT EXISTS doctors (
		id         uuid PRIMARY KEY,
		name       text NOT NULL,
		specialty  text,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS patients (
		id         uuid PRIMARY KEY,
		name       text NOT NULL,
		email      text,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS availability_slots (
		id         uuid PRIMARY KEY,
		doctor_id  uuid NOT NULL REFERENCES doctors(id),
		slot_date  date NOT NULL,
		start_time time NOT NULL,
		end_time   time NOT NULL,
		is_open    boolean NOT NULL DEFAULT true,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now(),
		CONSTRAINT availability_slots_range_check CHECK (end_time > start_time),
		CONSTRAINT availability_slots_doctor_date_start_key UNIQUE (doctor_id, slot_date, start_time),
		CONSTRAINT availability_slots_no_overlap EXCLUDE USING gist (
			doctor_id WITH =,
			tsrange(slot_date + start_time, slot_date + end_time) WITH &&
		)
	)`,
	`CREATE TABLE IF NOT EXISTS appointments (
		id         uuid PRIMARY KEY,
		doctor_id  uuid NOT NULL REFERENCES doctors(id),
		patient_id uuid NOT NULL REFERENCES patients(id),
		appt_date  date NOT NULL,
		start_time time NOT NULL,
		end_time   time NOT NULL,
		reason     text,
		status     text NOT NULL,
		version    integer NOT NULL DEFAULT 1,
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot_idx
		ON appointments (doctor_id, appt_date, start_time)
		WHERE status IN ('PENDING', 'CONFIRMED', 'COMPLETED')`,
	`CREATE INDEX IF NOT EXISTS appointments_patient_idx ON appointments (patient_id, appt_date)`,
	`CREATE TABLE IF NOT EXISTS medical_records (
		id             uuid PRIMARY KEY,
		appointment_id uuid NOT NULL REFERENCES appointments(id),
		doctor_id      uuid NOT NULL,
		patient_id     uuid NOT NULL,
		reason         text,
		diagnosis      text,
		notes          text,
		prescriptions  jsonb NOT NULL DEFAULT '[]',
		created_at     timestamptz NOT NULL DEFAULT now(),
		CONSTRAINT medical_records_appointment_id_key UNIQUE (appointment_id)
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id             uuid PRIMARY KEY,
		appointment_id uuid NOT NULL REFERENCES appointments(id),
		recipient_type text NOT NULL,
		recipient_id   uuid NOT NULL,
		title          text NOT NULL,
		message        text NOT NULL,
		created_at     timestamptz NOT NULL DEFAULT now(),
		is_read        boolean NOT NULL DEFAULT false,
		published_at   timestamptz
	)`,
	`CREATE INDEX IF NOT EXISTS notifications_recipient_idx
		ON notifications (recipient_type, recipient_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS notifications_unpublished_idx
		ON notifications (created_at) WHERE published_at IS NULL`,
}

// Migrate applies the schema idempotently.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
