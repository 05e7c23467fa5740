// Package seed generates demo doctors, patients and availability.
package seed

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

var specialties = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

type Options struct {
	Doctors  int
	Patients int
	Days     []timeslot.Date

	// Working hours, split into SlotLength slots.
	DayStart   timeslot.TimeOfDay
	DayEnd     timeslot.TimeOfDay
	SlotLength int // minutes
}

func (o Options) withDefaults() Options {
	if o.DayEnd <= o.DayStart {
		o.DayStart, o.DayEnd = 9*60, 12*60
	}
	if o.SlotLength <= 0 {
		o.SlotLength = 30
	}
	return o
}

type Plan struct {
	Doctors  []directory.Doctor
	Patients []directory.Patient
	Slots    []availability.Slot
}

// Generate builds a plan with fresh ids. Slots of one doctor never overlap.
func Generate(opts Options) Plan {
	opts = opts.withDefaults()
	var p Plan

	for i := 0; i < opts.Doctors; i++ {
		spec := specialties[gofakeit.Number(0, len(specialties)-1)]
		doc := directory.Doctor{ID: uuid.New(), Name: gofakeit.Name(), Specialty: &spec}
		p.Doctors = append(p.Doctors, doc)

		for _, day := range opts.Days {
			for start := opts.DayStart; start+timeslot.TimeOfDay(opts.SlotLength) <= opts.DayEnd; start += timeslot.TimeOfDay(opts.SlotLength) {
				p.Slots = append(p.Slots, availability.Slot{
					ID:        uuid.New(),
					DoctorID:  doc.ID,
					Date:      day,
					StartTime: start,
					EndTime:   start + timeslot.TimeOfDay(opts.SlotLength),
					IsOpen:    true,
				})
			}
		}
	}

	for i := 0; i < opts.Patients; i++ {
		email := gofakeit.Email()
		p.Patients = append(p.Patients, directory.Patient{ID: uuid.New(), Name: gofakeit.Name(), Email: &email})
	}

	return p
}
