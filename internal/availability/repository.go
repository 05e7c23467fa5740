package availability

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

// Repository persists slots. Create and Update must reject a second slot with
// the same (doctor, date, start) with ErrSlotExists and an intersecting range
// with ErrSlotOverlap, even under concurrent writers.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	Create(ctx context.Context, s Slot) (*Slot, error)
	Update(ctx context.Context, s Slot) (*Slot, error)
	Delete(ctx context.Context, id uuid.UUID) error

	// ListByDoctor orders by date then start time; date nil means all dates.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, date *timeslot.Date) ([]Slot, error)

	// For conflict checks; excludeID is ignored when uuid.Nil.
	ExistsAtStart(ctx context.Context, doctorID uuid.UUID, date timeslot.Date, start timeslot.TimeOfDay, excludeID uuid.UUID) (bool, error)
	FindOverlapping(ctx context.Context, doctorID uuid.UUID, r timeslot.Range, excludeID uuid.UUID) ([]Slot, error)

	// FindOpenExact returns the open slot covering exactly r or ErrSlotNotFound.
	FindOpenExact(ctx context.Context, doctorID uuid.UUID, r timeslot.Range) (*Slot, error)

	// SearchOpenByDoctorName matches doctor names case-insensitively by substring.
	SearchOpenByDoctorName(ctx context.Context, nameQuery string) ([]DoctorSlot, error)
}
