package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockMinutes(t *testing.T) {
	cases := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"00:00", 0, false},
		{"09:30", 570, false},
		{"23:59", 1439, false},
		{"24:00", 1440, false},
		{"24:01", 0, true},
		{"25:00", 0, true},
		{"09:60", 0, true},
		{"9am", 0, true},
		{"", 0, true},
	}
	for _, tc := range cases {
		got, err := ClockMinutes(tc.raw)
		if tc.wantErr {
			assert.Error(t, err, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "09:30", FormatClock(570))
	assert.Equal(t, "24:00", FormatClock(1440))
}

func TestRangesOverlap(t *testing.T) {
	assert.True(t, RangesOverlap(600, 660, 630, 690))
	assert.True(t, RangesOverlap(600, 660, 540, 720))
	assert.True(t, RangesOverlap(600, 660, 600, 660))
	// Half-open ranges: touching endpoints do not overlap.
	assert.False(t, RangesOverlap(600, 660, 660, 720))
	assert.False(t, RangesOverlap(600, 660, 540, 600))
	assert.False(t, RangesOverlap(600, 660, 700, 760))
}

func TestDayOfWeekFor(t *testing.T) {
	// 2026-09-07 is a Monday.
	monday := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, Monday, DayOfWeekFor(monday))
	assert.Equal(t, Sunday, DayOfWeekFor(monday.AddDate(0, 0, -1)))
	assert.True(t, Monday.Valid())
	assert.False(t, DayOfWeek("FUNDAY").Valid())
}

func TestParseDate(t *testing.T) {
	parsed, err := ParseDate("2026-09-07")
	require.NoError(t, err)
	assert.Equal(t, 2026, parsed.Year())

	_, err = ParseDate("07/09/2026")
	assert.Error(t, err)
}

func TestVacationTypeWindow(t *testing.T) {
	start, end, ok := VacationFullDay.Window()
	require.True(t, ok)
	assert.Equal(t, 0, start)
	assert.Equal(t, 1440, end)

	start, end, ok = VacationMorning.Window()
	require.True(t, ok)
	assert.Equal(t, 0, start)
	assert.Equal(t, 720, end)

	start, end, ok = VacationAfternoon.Window()
	require.True(t, ok)
	assert.Equal(t, 720, start)
	assert.Equal(t, 1440, end)

	_, _, ok = VacationCustom.Window()
	assert.False(t, ok)
}

func TestScheduleStatusBlocking(t *testing.T) {
	assert.True(t, ScheduleStatusBooked.Blocking())
	assert.True(t, ScheduleStatusConfirmed.Blocking())
	assert.False(t, ScheduleStatusCompleted.Blocking())
	assert.False(t, ScheduleStatusCancelled.Blocking())

	assert.True(t, ScheduleStatusCompleted.Terminal())
	assert.False(t, ScheduleStatusBooked.Terminal())
}
