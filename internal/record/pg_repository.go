package record

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

type PgRepository struct {
	q db.Querier
}

func NewPgRepository(q db.Querier) *PgRepository {
	return &PgRepository{q: q}
}

const recordColumns = `id, appointment_id, doctor_id, patient_id, reason, diagnosis, notes, prescriptions, created_at`

func scanRecord(row pgx.Row) (*MedicalRecord, error) {
	var rec MedicalRecord
	var prescriptions []byte

	err := row.Scan(
		&rec.ID,
		&rec.AppointmentID,
		&rec.DoctorID,
		&rec.PatientID,
		&rec.Reason,
		&rec.Diagnosis,
		&rec.Notes,
		&prescriptions,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(prescriptions) > 0 {
		if err := json.Unmarshal(prescriptions, &rec.Prescriptions); err != nil {
			return nil, fmt.Errorf("decode prescriptions: %w", err)
		}
	}
	return &rec, nil
}

func (r *PgRepository) Create(ctx context.Context, rec MedicalRecord) (*MedicalRecord, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Prescriptions == nil {
		rec.Prescriptions = []Prescription{}
	}
	payload, err := json.Marshal(rec.Prescriptions)
	if err != nil {
		return nil, fmt.Errorf("encode prescriptions: %w", err)
	}

	row := r.q.QueryRow(ctx, `
		INSERT INTO medical_records (id, appointment_id, doctor_id, patient_id, reason, diagnosis, notes, prescriptions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING `+recordColumns,
		rec.ID, rec.AppointmentID, rec.DoctorID, rec.PatientID, rec.Reason, rec.Diagnosis, rec.Notes, payload)

	created, err := scanRecord(row)
	if err != nil {
		if db.IsUniqueViolation(err, db.ConstraintRecordAppointment) {
			return nil, ErrRecordExists
		}
		return nil, fmt.Errorf("insert medical record: %w", err)
	}
	return created, nil
}

func (r *PgRepository) list(ctx context.Context, column string, id uuid.UUID) ([]MedicalRecord, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+recordColumns+`
		FROM medical_records
		WHERE `+column+` = $1
		ORDER BY created_at DESC, id
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []MedicalRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]MedicalRecord, error) {
	return r.list(ctx, "patient_id", patientID)
}

func (r *PgRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]MedicalRecord, error) {
	return r.list(ctx, "doctor_id", doctorID)
}
