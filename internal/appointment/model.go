package appointment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCanceled  Status = "CANCELED"
	StatusCompleted Status = "COMPLETED"
)

// ActiveStatuses occupy a (doctor, date, start) slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted}

func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

var (
	ErrAppointmentNotFound = apperr.New(apperr.ErrNotFound, "appointment not found")
	ErrNotOwner            = apperr.New(apperr.ErrForbidden, "caller does not own this appointment")
	ErrSlotTaken           = apperr.New(apperr.ErrSlotAlreadyBooked, "this time slot is already booked by another patient or is pending confirmation")
	ErrConcurrentUpdate    = apperr.New(apperr.ErrConflict, "appointment was modified concurrently, reload and retry")
)

type Appointment struct {
	ID        uuid.UUID
	DoctorID  uuid.UUID
	PatientID uuid.UUID
	Date      timeslot.Date
	StartTime timeslot.TimeOfDay
	EndTime   timeslot.TimeOfDay
	Reason    *string
	Status    Status
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (a Appointment) Range() timeslot.Range {
	return timeslot.Range{Date: a.Date, Start: a.StartTime, End: a.EndTime}
}

// Event is an edge label in the lifecycle graph:
//
//	(none)            --book-------> PENDING
//	PENDING           --confirm----> CONFIRMED
//	PENDING           --reject-----> REJECTED
//	PENDING|CONFIRMED --cancel-----> CANCELED
//	CONFIRMED         --complete---> COMPLETED
//	PENDING|CONFIRMED --reschedule-> same status
type Event string

const (
	EventConfirm    Event = "confirm"
	EventReject     Event = "reject"
	EventCancel     Event = "cancel"
	EventComplete   Event = "complete"
	EventReschedule Event = "reschedule"
)

var transitions = map[Event]map[Status]Status{
	EventConfirm:    {StatusPending: StatusConfirmed},
	EventReject:     {StatusPending: StatusRejected},
	EventCancel:     {StatusPending: StatusCanceled, StatusConfirmed: StatusCanceled},
	EventComplete:   {StatusConfirmed: StatusCompleted},
	EventReschedule: {StatusPending: StatusPending, StatusConfirmed: StatusConfirmed},
}

// Next returns the status reached from s by e, or an ErrInvalidTransition error.
func (s Status) Next(e Event) (Status, error) {
	if to, ok := transitions[e][s]; ok {
		return to, nil
	}
	return s, apperr.New(apperr.ErrInvalidTransition, fmt.Sprintf("cannot %s an appointment in status %s", e, s))
}
