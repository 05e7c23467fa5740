package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

type Slots struct{ handle }

func (d *data) slotCollision(s availability.Slot) error {
	for _, other := range d.slots {
		if other.ID == s.ID || other.DoctorID != s.DoctorID {
			continue
		}
		if other.Date == s.Date && other.StartTime == s.StartTime {
			return availability.ErrSlotExists
		}
		if other.Range().Overlaps(s.Range()) {
			return availability.ErrSlotOverlap
		}
	}
	return nil
}

func (r *Slots) GetByID(_ context.Context, id uuid.UUID) (*availability.Slot, error) {
	var out *availability.Slot
	err := r.run(func(d *data) error {
		s, ok := d.slots[id]
		if !ok {
			return availability.ErrSlotNotFound
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *Slots) Create(_ context.Context, s availability.Slot) (*availability.Slot, error) {
	var out *availability.Slot
	err := r.run(func(d *data) error {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
		if err := d.slotCollision(s); err != nil {
			return err
		}
		now := r.now()
		s.CreatedAt, s.UpdatedAt = now, now
		d.slots[s.ID] = s
		out = &s
		return nil
	})
	return out, err
}

func (r *Slots) Update(_ context.Context, s availability.Slot) (*availability.Slot, error) {
	var out *availability.Slot
	err := r.run(func(d *data) error {
		existing, ok := d.slots[s.ID]
		if !ok {
			return availability.ErrSlotNotFound
		}
		if err := d.slotCollision(s); err != nil {
			return err
		}
		s.CreatedAt = existing.CreatedAt
		s.UpdatedAt = r.now()
		d.slots[s.ID] = s
		out = &s
		return nil
	})
	return out, err
}

func (r *Slots) Delete(_ context.Context, id uuid.UUID) error {
	return r.run(func(d *data) error {
		if _, ok := d.slots[id]; !ok {
			return availability.ErrSlotNotFound
		}
		delete(d.slots, id)
		return nil
	})
}

func sortSlots(slots []availability.Slot) {
	sort.Slice(slots, func(i, j int) bool {
		a, b := slots[i], slots[j]
		if a.Date != b.Date || a.StartTime != b.StartTime {
			return availability.Less(a, b)
		}
		return a.ID.String() < b.ID.String()
	})
}

func (r *Slots) ListByDoctor(_ context.Context, doctorID uuid.UUID, date *timeslot.Date) ([]availability.Slot, error) {
	var out []availability.Slot
	err := r.run(func(d *data) error {
		for _, s := range d.slots {
			if s.DoctorID != doctorID {
				continue
			}
			if date != nil && s.Date != *date {
				continue
			}
			out = append(out, s)
		}
		return nil
	})
	sortSlots(out)
	return out, err
}

func (r *Slots) ExistsAtStart(_ context.Context, doctorID uuid.UUID, date timeslot.Date, start timeslot.TimeOfDay, excludeID uuid.UUID) (bool, error) {
	var found bool
	err := r.run(func(d *data) error {
		for _, s := range d.slots {
			if s.ID != excludeID && s.DoctorID == doctorID && s.Date == date && s.StartTime == start {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *Slots) FindOverlapping(_ context.Context, doctorID uuid.UUID, rg timeslot.Range, excludeID uuid.UUID) ([]availability.Slot, error) {
	var out []availability.Slot
	err := r.run(func(d *data) error {
		for _, s := range d.slots {
			if s.ID != excludeID && s.DoctorID == doctorID && s.Range().Overlaps(rg) {
				out = append(out, s)
			}
		}
		return nil
	})
	sortSlots(out)
	return out, err
}

func (r *Slots) FindOpenExact(_ context.Context, doctorID uuid.UUID, rg timeslot.Range) (*availability.Slot, error) {
	var out *availability.Slot
	err := r.run(func(d *data) error {
		for _, s := range d.slots {
			if s.DoctorID == doctorID && s.IsOpen && s.Matches(rg) {
				out = &s
				return nil
			}
		}
		return availability.ErrSlotNotFound
	})
	return out, err
}

func (r *Slots) SearchOpenByDoctorName(_ context.Context, nameQuery string) ([]availability.DoctorSlot, error) {
	q := strings.ToLower(strings.TrimSpace(nameQuery))

	var out []availability.DoctorSlot
	err := r.run(func(d *data) error {
		for _, s := range d.slots {
			if !s.IsOpen {
				continue
			}
			doc, ok := d.doctors[s.DoctorID]
			if !ok || !strings.Contains(strings.ToLower(doc.Name), q) {
				continue
			}
			out = append(out, availability.DoctorSlot{Doctor: doc, Slot: s})
		}
		return nil
	})

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Doctor.Name != b.Doctor.Name {
			return a.Doctor.Name < b.Doctor.Name
		}
		if a.Doctor.ID != b.Doctor.ID {
			return a.Doctor.ID.String() < b.Doctor.ID.String()
		}
		return availability.Less(a.Slot, b.Slot)
	})
	return out, err
}
