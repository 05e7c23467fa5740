package availability_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/db/dbtest"
	"github.com/hackgods/clinic-scheduling/internal/directory"
	"github.com/hackgods/clinic-scheduling/internal/identity"
)

func slotAt(doctorID uuid.UUID, date, start, end string) availability.Slot {
	r := rng(date, start, end)
	return availability.Slot{DoctorID: doctorID, Date: r.Date, StartTime: r.Start, EndTime: r.End, IsOpen: true}
}

func TestPgSlotConstraints(t *testing.T) {
	pool := dbtest.Pool(t)
	ctx := context.Background()
	doctorID := dbtest.InsertDoctor(t, pool, "Gregory House")
	repo := availability.NewPgRepository(pool)

	first, err := repo.Create(ctx, slotAt(doctorID, "2025-01-10", "09:00", "09:30"))
	require.NoError(t, err)
	assert.Equal(t, rng("2025-01-10", "09:00", "09:30"), first.Range())

	_, err = repo.Create(ctx, slotAt(doctorID, "2025-01-10", "09:00", "10:00"))
	assert.ErrorIs(t, err, availability.ErrSlotExists)

	_, err = repo.Create(ctx, slotAt(doctorID, "2025-01-10", "09:15", "09:45"))
	assert.ErrorIs(t, err, availability.ErrSlotOverlap)

	_, err = repo.Create(ctx, slotAt(doctorID, "2025-01-10", "09:30", "10:00"))
	require.NoError(t, err)

	_, err = repo.Create(ctx, slotAt(uuid.New(), "2025-01-10", "09:00", "09:30"))
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	listed, err := repo.ListByDoctor(ctx, doctorID, nil)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestPgManagerUnknownDoctor(t *testing.T) {
	pool := dbtest.Pool(t)
	m := availability.NewManager(availability.NewPgRepository(pool), directory.NewPgRepository(pool), zap.NewNop())

	ghost := identity.Caller{Role: identity.RoleDoctor, OwnerID: uuid.New()}
	_, err := m.AddAvailability(context.Background(), ghost, rng("2025-01-10", "09:00", "09:30"))
	assert.ErrorIs(t, err, directory.ErrDoctorNotFound)
}
