package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/appointment"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

type Appointments struct{ handle }

func (d *data) activeAt(doctorID uuid.UUID, date timeslot.Date, start timeslot.TimeOfDay, excludeID uuid.UUID) bool {
	for _, a := range d.appointments {
		if a.ID != excludeID && a.DoctorID == doctorID && a.Date == date && a.StartTime == start && a.Status.Active() {
			return true
		}
	}
	return false
}

// versioned loads id and checks the expected version.
func (d *data) versioned(id uuid.UUID, version int) (appointment.Appointment, error) {
	a, ok := d.appointments[id]
	if !ok {
		return a, appointment.ErrAppointmentNotFound
	}
	if a.Version != version {
		return a, appointment.ErrConcurrentUpdate
	}
	return a, nil
}

func (r *Appointments) GetByID(_ context.Context, id uuid.UUID) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.run(func(d *data) error {
		a, ok := d.appointments[id]
		if !ok {
			return appointment.ErrAppointmentNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *Appointments) HasActiveAt(_ context.Context, doctorID uuid.UUID, date timeslot.Date, start timeslot.TimeOfDay, excludeID uuid.UUID) (bool, error) {
	var found bool
	err := r.run(func(d *data) error {
		found = d.activeAt(doctorID, date, start, excludeID)
		return nil
	})
	return found, err
}

func (r *Appointments) Create(_ context.Context, a appointment.Appointment) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.run(func(d *data) error {
		if a.ID == uuid.Nil {
			a.ID = uuid.New()
		}
		if a.Status.Active() && d.activeAt(a.DoctorID, a.Date, a.StartTime, a.ID) {
			return appointment.ErrSlotTaken
		}
		now := r.now()
		a.Version = 1
		a.CreatedAt, a.UpdatedAt = now, now
		d.appointments[a.ID] = a
		out = &a
		return nil
	})
	return out, err
}

func (r *Appointments) UpdateStatus(_ context.Context, id uuid.UUID, version int, to appointment.Status) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.run(func(d *data) error {
		a, err := d.versioned(id, version)
		if err != nil {
			return err
		}
		if to.Active() && !a.Status.Active() && d.activeAt(a.DoctorID, a.Date, a.StartTime, a.ID) {
			return appointment.ErrSlotTaken
		}
		a.Status = to
		a.Version++
		a.UpdatedAt = r.now()
		d.appointments[id] = a
		out = &a
		return nil
	})
	return out, err
}

func (r *Appointments) Reschedule(_ context.Context, id uuid.UUID, version int, rg timeslot.Range) (*appointment.Appointment, error) {
	var out *appointment.Appointment
	err := r.run(func(d *data) error {
		a, err := d.versioned(id, version)
		if err != nil {
			return err
		}
		if a.Status.Active() && d.activeAt(a.DoctorID, rg.Date, rg.Start, a.ID) {
			return appointment.ErrSlotTaken
		}
		a.Date, a.StartTime, a.EndTime = rg.Date, rg.Start, rg.End
		a.Version++
		a.UpdatedAt = r.now()
		d.appointments[id] = a
		out = &a
		return nil
	})
	return out, err
}

func (r *Appointments) filter(keep func(appointment.Appointment) bool) ([]appointment.Appointment, error) {
	var out []appointment.Appointment
	err := r.run(func(d *data) error {
		for _, a := range d.appointments {
			if keep(a) {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

func ascending(a, b appointment.Appointment) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c < 0
	}
	if a.StartTime != b.StartTime {
		return a.StartTime < b.StartTime
	}
	return a.ID.String() < b.ID.String()
}

func (r *Appointments) ListByPatient(_ context.Context, patientID uuid.UUID) ([]appointment.Appointment, error) {
	out, err := r.filter(func(a appointment.Appointment) bool { return a.PatientID == patientID })
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Date != b.Date || a.StartTime != b.StartTime {
			return ascending(b, a)
		}
		return a.ID.String() < b.ID.String()
	})
	return out, err
}

func (r *Appointments) ListByDoctor(_ context.Context, doctorID uuid.UUID, date *timeslot.Date) ([]appointment.Appointment, error) {
	out, err := r.filter(func(a appointment.Appointment) bool {
		return a.DoctorID == doctorID && (date == nil || a.Date == *date)
	})
	sort.Slice(out, func(i, j int) bool { return ascending(out[i], out[j]) })
	return out, err
}

func (r *Appointments) CountByDoctorOnDate(_ context.Context, doctorID uuid.UUID, date timeslot.Date) (int64, error) {
	out, err := r.filter(func(a appointment.Appointment) bool { return a.DoctorID == doctorID && a.Date == date })
	return int64(len(out)), err
}

func (r *Appointments) CountDistinctPatients(_ context.Context, doctorID uuid.UUID) (int64, error) {
	out, err := r.filter(func(a appointment.Appointment) bool { return a.DoctorID == doctorID && a.Status.Active() })
	seen := make(map[uuid.UUID]struct{}, len(out))
	for _, a := range out {
		seen[a.PatientID] = struct{}{}
	}
	return int64(len(seen)), err
}

func (r *Appointments) CountPendingFrom(_ context.Context, doctorID uuid.UUID, from timeslot.Date) (int64, error) {
	out, err := r.filter(func(a appointment.Appointment) bool {
		return a.DoctorID == doctorID && a.Status == appointment.StatusPending && !a.Date.Before(from)
	})
	return int64(len(out)), err
}
