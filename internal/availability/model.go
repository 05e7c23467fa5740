package availability

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

var (
	ErrSlotNotFound       = apperr.New(apperr.ErrNotFound, "availability slot not found")
	ErrSlotExists         = apperr.New(apperr.ErrConflict, "the specified time slot is already registered for this doctor")
	ErrSlotOverlap        = apperr.New(apperr.ErrConflict, "the specified time slot overlaps an existing slot for this doctor")
	ErrNotSlotOwner       = apperr.New(apperr.ErrForbidden, "you can only modify your own availability slots")
	ErrSlotDoctorMismatch = apperr.New(apperr.ErrValidation, "availability slot does not belong to the given doctor")
)

// Slot is a doctor-declared bookable interval. Appointments copy its
// date and times by value and never reference the slot id.
type Slot struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	Date      timeslot.Date
	StartTime timeslot.TimeOfDay
	EndTime   timeslot.TimeOfDay
	IsOpen    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s Slot) Range() timeslot.Range {
	return timeslot.Range{Date: s.Date, Start: s.StartTime, End: s.EndTime}
}

// Matches reports whether s covers exactly r.
func (s Slot) Matches(r timeslot.Range) bool {
	return s.Range() == r
}

// SlotUpdate replaces a slot's range; IsOpen is left untouched when nil.
type SlotUpdate struct {
	Range  timeslot.Range
	IsOpen *bool
}

// DoctorSlot pairs an open slot with its doctor for public search.
type DoctorSlot struct {
	Doctor directory.Doctor
	Slot   Slot
}

// Less orders slots by date then start time.
func Less(a, b Slot) bool {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c < 0
	}
	return a.StartTime < b.StartTime
}
