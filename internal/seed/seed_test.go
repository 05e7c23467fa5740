package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-scheduling/internal/timeslot"
)

func TestGenerate(t *testing.T) {
	days := []timeslot.Date{timeslot.MustDate("2025-01-10"), timeslot.MustDate("2025-01-11")}
	p := Generate(Options{Doctors: 3, Patients: 5, Days: days})

	require.Len(t, p.Doctors, 3)
	require.Len(t, p.Patients, 5)
	// 09:00-12:00 in 30 minute slots, per doctor per day
	require.Len(t, p.Slots, 3*2*6)

	for _, d := range p.Doctors {
		assert.NotEmpty(t, d.Name)
		require.NotNil(t, d.Specialty)
	}
	for _, pt := range p.Patients {
		require.NotNil(t, pt.Email)
	}

	for i, a := range p.Slots {
		assert.Empty(t, a.Range().Validate())
		for _, b := range p.Slots[i+1:] {
			if a.DoctorID == b.DoctorID {
				assert.False(t, a.Range().Overlaps(b.Range()), "%s overlaps %s", a.Range(), b.Range())
			}
		}
	}
}

func TestGenerateCustomHours(t *testing.T) {
	p := Generate(Options{
		Doctors:    1,
		Days:       []timeslot.Date{timeslot.MustDate("2025-01-10")},
		DayStart:   timeslot.MustTime("14:00"),
		DayEnd:     timeslot.MustTime("15:00"),
		SlotLength: 20,
	})

	require.Len(t, p.Slots, 3)
	assert.Equal(t, "14:40", p.Slots[2].StartTime.String())
	assert.Equal(t, "15:00", p.Slots[2].EndTime.String())
}
