package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/record"
)

type Records struct{ handle }

func (r *Records) Create(_ context.Context, rec record.MedicalRecord) (*record.MedicalRecord, error) {
	var out *record.MedicalRecord
	err := r.run(func(d *data) error {
		for _, existing := range d.records {
			if existing.AppointmentID == rec.AppointmentID {
				return record.ErrRecordExists
			}
		}
		if rec.ID == uuid.Nil {
			rec.ID = uuid.New()
		}
		rec.Prescriptions = append([]record.Prescription(nil), rec.Prescriptions...)
		rec.CreatedAt = r.now()
		d.records = append(d.records, rec)
		out = &rec
		return nil
	})
	return out, err
}

// newest first; insertion order breaks timestamp ties
func (r *Records) list(keep func(record.MedicalRecord) bool) ([]record.MedicalRecord, error) {
	var out []record.MedicalRecord
	err := r.run(func(d *data) error {
		for i := len(d.records) - 1; i >= 0; i-- {
			if keep(d.records[i]) {
				out = append(out, d.records[i])
			}
		}
		return nil
	})
	return out, err
}

func (r *Records) ListByPatient(_ context.Context, patientID uuid.UUID) ([]record.MedicalRecord, error) {
	return r.list(func(rec record.MedicalRecord) bool { return rec.PatientID == patientID })
}

func (r *Records) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]record.MedicalRecord, error) {
	return r.list(func(rec record.MedicalRecord) bool { return rec.DoctorID == doctorID })
}
