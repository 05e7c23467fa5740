package memstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/directory"
)

type Directory struct{ handle }

// AddDoctor inserts or replaces a doctor; a nil id is assigned.
func (r *Directory) AddDoctor(doc directory.Doctor) directory.Doctor {
	_ = r.run(func(d *data) error {
		if doc.ID == uuid.Nil {
			doc.ID = uuid.New()
		}
		now := r.now()
		doc.CreatedAt, doc.UpdatedAt = now, now
		d.doctors[doc.ID] = doc
		return nil
	})
	return doc
}

func (r *Directory) AddPatient(p directory.Patient) directory.Patient {
	_ = r.run(func(d *data) error {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		now := r.now()
		p.CreatedAt, p.UpdatedAt = now, now
		d.patients[p.ID] = p
		return nil
	})
	return p
}

func (r *Directory) GetPatientByID(_ context.Context, id uuid.UUID) (*directory.Patient, error) {
	var out *directory.Patient
	err := r.run(func(d *data) error {
		p, ok := d.patients[id]
		if !ok {
			return directory.ErrPatientNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *Directory) GetDoctorByID(_ context.Context, id uuid.UUID) (*directory.Doctor, error) {
	var out *directory.Doctor
	err := r.run(func(d *data) error {
		doc, ok := d.doctors[id]
		if !ok {
			return directory.ErrDoctorNotFound
		}
		out = &doc
		return nil
	})
	return out, err
}
