package timeslot

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndFormat(t *testing.T) {
	d, err := ParseDate("2025-01-10")
	require.NoError(t, err)
	assert.Equal(t, Date{2025, time.January, 10}, d)
	assert.Equal(t, "2025-01-10", d.String())

	tm, err := ParseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, TimeOfDay(570), tm)
	assert.Equal(t, "09:30", tm.String())

	tm, err = ParseTimeOfDay("10:15:00")
	require.NoError(t, err)
	assert.Equal(t, "10:15", tm.String())

	_, err = ParseDate("10/01/2025")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("09:00:30")
	assert.Error(t, err)
}

func TestRangeJSON(t *testing.T) {
	var r Range
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2025-01-11","start_time":"10:00","end_time":"10:30"}`), &r))
	assert.Equal(t, MustDate("2025-01-11"), r.Date)
	assert.Equal(t, MustTime("10:00"), r.Start)
	assert.Equal(t, MustTime("10:30"), r.End)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2025-01-11","start_time":"10:00","end_time":"10:30"}`, string(out))
}

func TestRangeValidate(t *testing.T) {
	ok := Range{Date: MustDate("2025-01-10"), Start: MustTime("09:00"), End: MustTime("09:30")}
	assert.Empty(t, ok.Validate())

	inverted := Range{Date: MustDate("2025-01-10"), Start: MustTime("09:30"), End: MustTime("09:00")}
	assert.Contains(t, inverted.Validate(), "end_time must be after start_time")

	empty := Range{Date: MustDate("2025-01-10"), Start: MustTime("09:00"), End: MustTime("09:00")}
	assert.Contains(t, empty.Validate(), "end_time must be after start_time")

	assert.Contains(t, Range{Start: 60, End: 90}.Validate(), "date is required")
}

func TestRangeOverlaps(t *testing.T) {
	day := MustDate("2025-01-10")
	base := Range{Date: day, Start: MustTime("09:00"), End: MustTime("10:00")}

	cases := []struct {
		name  string
		other Range
		want  bool
	}{
		{"inside", Range{day, MustTime("09:15"), MustTime("09:45")}, true},
		{"straddles start", Range{day, MustTime("08:30"), MustTime("09:15")}, true},
		{"touching end", Range{day, MustTime("10:00"), MustTime("10:30")}, false},
		{"touching start", Range{day, MustTime("08:00"), MustTime("09:00")}, false},
		{"other day", Range{MustDate("2025-01-11"), MustTime("09:00"), MustTime("10:00")}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, base.Overlaps(tc.other))
			assert.Equal(t, tc.want, tc.other.Overlaps(base))
		})
	}
}

func TestPGRoundTrip(t *testing.T) {
	d := MustDate("2025-03-01")
	assert.Equal(t, d, DateFromPG(d.PG()))
	tm := MustTime("17:45")
	assert.Equal(t, tm, TimeFromPG(tm.PG()))
}
